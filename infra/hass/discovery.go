package hass

import (
	"fmt"

	"github.com/evhome/carnet-hass/core/entity"
	"github.com/evhome/carnet-hass/core/model"
)

// deviceInfo groups all entities of one vehicle under a single Home Assistant
// device.
type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
}

// discoveryPayload is the per-entity discovery config consumed by Home
// Assistant.
type discoveryPayload struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	JSONAttributesTopic string     `json:"json_attributes_topic,omitempty"`
	AvailabilityTopic   string     `json:"availability_topic"`
	PayloadAvailable    string     `json:"payload_available"`
	PayloadNotAvailable string     `json:"payload_not_available"`
	Icon                string     `json:"icon,omitempty"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	DeviceClass         string     `json:"device_class,omitempty"`
	PayloadOn           string     `json:"payload_on,omitempty"`
	PayloadOff          string     `json:"payload_off,omitempty"`
	Device              deviceInfo `json:"device"`
}

const manufacturer = "Volkswagen"

func newDiscoveryPayload(e *entity.Entity, in model.Instrument, t topics, vehicleName string) discoveryPayload {
	p := discoveryPayload{
		Name:                e.Name(),
		UniqueID:            e.UniqueID(),
		StateTopic:          t.state(e.Capability(), e.Attribute()),
		JSONAttributesTopic: t.attributes(e.Capability(), e.Attribute()),
		AvailabilityTopic:   t.availability(),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
		Icon:                e.Icon(),
		UnitOfMeasurement:   in.Unit,
		DeviceClass:         in.DeviceClass,
		Device: deviceInfo{
			Identifiers:  []string{in.Vehicle.VIN},
			Manufacturer: manufacturer,
			Model:        fmt.Sprintf("%s/%s", in.Vehicle.Model, in.Vehicle.ModelYear),
			Name:         vehicleName,
		},
	}
	switch e.Capability() {
	case model.CapabilityBinarySensor, model.CapabilitySwitch:
		p.PayloadOn = "ON"
		p.PayloadOff = "OFF"
	}
	return p
}
