package hass

import (
	"fmt"
	"strings"

	"github.com/evhome/carnet-hass/core/model"
)

// Topic layout, rooted at the configured prefix:
//
//	{prefix}/{vin}/availability
//	{prefix}/{vin}/{capability}/{attribute}/state
//	{prefix}/{vin}/{capability}/{attribute}/attributes
//	{prefix}/{vin}/service/{service}/set
//	{prefix}/{vin}/service/{service}/result
type topics struct {
	prefix string
	vin    string
}

func (t topics) availability() string {
	return fmt.Sprintf("%s/%s/availability", t.prefix, t.vin)
}

func (t topics) state(capability model.Capability, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/%s/state", t.prefix, t.vin, capability, attribute)
}

func (t topics) attributes(capability model.Capability, attribute string) string {
	return fmt.Sprintf("%s/%s/%s/%s/attributes", t.prefix, t.vin, capability, attribute)
}

func (t topics) command(service string) string {
	return fmt.Sprintf("%s/%s/service/%s/set", t.prefix, t.vin, service)
}

func (t topics) result(service string) string {
	return fmt.Sprintf("%s/%s/service/%s/result", t.prefix, t.vin, service)
}

// discoveryTopic follows the Home Assistant MQTT discovery convention:
// {discovery_prefix}/{component}/{node_id}/{object_id}/config. Object ids may
// only contain [a-zA-Z0-9_-].
func discoveryTopic(discoveryPrefix, vin string, capability model.Capability, attribute string) string {
	objectID := sanitizeID(attribute)
	return fmt.Sprintf("%s/%s/%s/%s/config", discoveryPrefix, component(capability), vin, objectID)
}

// component maps a capability group onto the Home Assistant platform name.
func component(capability model.Capability) string {
	switch capability {
	case model.CapabilityBinarySensor:
		return "binary_sensor"
	case model.CapabilitySwitch:
		return "switch"
	case model.CapabilityClimate:
		return "climate"
	case model.CapabilityDeviceTracker:
		return "device_tracker"
	default:
		return "sensor"
	}
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
