package metrics

import "github.com/evhome/carnet-hass/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort serves /metrics when a prometheus sink is configured.
	PrometheusPort string `json:"prometheus_port"`
}
