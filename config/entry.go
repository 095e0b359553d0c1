package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/evhome/carnet-hass/core/coordinator"
	"github.com/evhome/carnet-hass/core/dashboard"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/core/store"
)

// EntryConfig describes one monitored vehicle.
type EntryConfig struct {
	// Vehicle is the VIN of the monitored vehicle. Matching against the
	// account's vehicle list is case-insensitive.
	Vehicle string `json:"vehicle"`
	// Name is either a fixed display name (string) or a map of VIN to name.
	Name any `json:"name"`
	// Resources restricts which attributes surface as entities. Empty means
	// all reported attributes.
	Resources []string `json:"resources"`
	// Mutable enables the control entities (switches, climate).
	Mutable bool `json:"mutable"`
	// SPIN is the security PIN some control operations require.
	SPIN string `json:"spin"`
	// Convert selects distance unit conversion: no_conversion, imperial or
	// scandinavian_miles.
	Convert string `json:"convert"`
	// ScandinavianMiles is the legacy switch predating Convert. Ignored when
	// Convert is set.
	ScandinavianMiles bool `json:"scandinavian_miles"`
	// ReportRequest asks the vehicle for a fresh report during refresh.
	ReportRequest      bool `json:"report_request"`
	ReportIntervalDays int  `json:"report_interval_days"`
	// ScanIntervalMinutes is the refresh period.
	ScanIntervalMinutes int `json:"scan_interval_minutes"`
	// StatsWindow bounds the rolling statistics sample count per attribute.
	StatsWindow int `json:"stats_window"`
}

// SetDefaults applies sane defaults.
func (c *EntryConfig) SetDefaults() {
	if c.ScanIntervalMinutes <= 0 {
		c.ScanIntervalMinutes = 5
	}
	if c.ReportIntervalDays <= 0 {
		c.ReportIntervalDays = 3
	}
}

// Validate checks mandatory fields.
func (c EntryConfig) Validate() error {
	if c.Vehicle == "" {
		return fmt.Errorf("entry.vehicle is required")
	}
	switch c.Convert {
	case "", string(model.UnitsMetric), string(model.UnitsImperial), string(model.UnitsScandinavianMiles):
	default:
		return fmt.Errorf("unknown conversion %q", c.Convert)
	}
	switch c.Name.(type) {
	case nil, string, map[string]any:
	default:
		return fmt.Errorf("entry.name must be a string or a vin-to-name map")
	}
	return nil
}

// Units resolves the distance conversion. An explicit Convert wins over the
// legacy scandinavian_miles switch.
func (c EntryConfig) Units() model.Units {
	if c.Convert != "" {
		return model.Units(c.Convert)
	}
	if c.ScandinavianMiles {
		return model.UnitsScandinavianMiles
	}
	return model.UnitsMetric
}

// NamePolicy builds the vehicle naming policy from the flexible Name field.
func (c EntryConfig) NamePolicy() store.NamePolicy {
	switch n := c.Name.(type) {
	case string:
		return store.NamePolicy{Fixed: n}
	case map[string]any:
		mapping := make(map[string]string, len(n))
		for vin, name := range n {
			if s, ok := name.(string); ok {
				mapping[strings.ToLower(vin)] = s
			}
		}
		return store.NamePolicy{Mapping: mapping}
	default:
		return store.NamePolicy{}
	}
}

// CoordinatorConfig derives the coordinator settings for this entry.
func (c EntryConfig) CoordinatorConfig() coordinator.Config {
	return coordinator.Config{
		VIN:                c.Vehicle,
		ScanInterval:       time.Duration(c.ScanIntervalMinutes) * time.Minute,
		ReportRequest:      c.ReportRequest,
		ReportIntervalDays: c.ReportIntervalDays,
		StatsWindow:        c.StatsWindow,
		Dashboard: dashboard.Config{
			Mutable: c.Mutable,
			SPIN:    c.SPIN,
			Units:   c.Units(),
		},
	}
}
