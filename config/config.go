// Package config loads and validates the daemon configuration.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/evhome/carnet-hass/core/metrics"
	infracarnet "github.com/evhome/carnet-hass/infra/carnet"
	"github.com/evhome/carnet-hass/infra/hass"
	"github.com/evhome/carnet-hass/infra/mqtt"
)

type Config struct {
	Carnet  infracarnet.Config `json:"carnet"`
	Entry   EntryConfig        `json:"entry"`
	MQTT    mqtt.Config        `json:"mqtt"`
	Bridge  hass.Config        `json:"bridge"`
	Metrics coremetrics.Config `json:"metrics"`
	Logging LoggingConfig      `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("CARNET_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "carnet_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Entry.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Entry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if cfg.Carnet.BaseURL == "" {
		return nil, fmt.Errorf("carnet.base_url is required")
	}
	if cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt.broker is required")
	}
	return &cfg, nil
}
