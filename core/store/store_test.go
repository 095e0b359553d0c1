package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evhome/carnet-hass/core/model"
)

func instruments(v *model.Vehicle) []model.Instrument {
	return []model.Instrument{
		{Vehicle: v, Capability: model.CapabilitySensor, Attribute: "battery_level", State: 42},
		{Vehicle: v, Capability: model.CapabilityBinarySensor, Attribute: "charging", State: true},
	}
}

func TestInstrumentLookup(t *testing.T) {
	v := &model.Vehicle{VIN: "VIN123"}
	s := New(NamePolicy{})
	s.Swap(instruments(v))

	got, ok := s.Instrument("VIN123", model.CapabilitySensor, "battery_level")
	assert.True(t, ok)
	assert.Equal(t, 42, got.State)

	_, ok = s.Instrument("VIN123", model.CapabilitySensor, "missing")
	assert.False(t, ok)
	_, ok = s.Instrument("OTHER", model.CapabilitySensor, "battery_level")
	assert.False(t, ok)
}

func TestSwapBumpsGeneration(t *testing.T) {
	v := &model.Vehicle{VIN: "VIN123"}
	s := New(NamePolicy{})
	assert.Equal(t, uint64(0), s.Generation())
	g1 := s.Swap(instruments(v))
	g2 := s.Swap(instruments(v))
	assert.Equal(t, uint64(1), g1)
	assert.Equal(t, uint64(2), g2)
}

func TestVehicleNameFixedString(t *testing.T) {
	s := New(NamePolicy{Fixed: "Fleet Car"})
	assert.Equal(t, "Fleet Car", s.VehicleName(&model.Vehicle{VIN: "ANY"}))
	assert.Equal(t, "Fleet Car", s.VehicleName(&model.Vehicle{}))
}

func TestVehicleNameMappingCaseInsensitive(t *testing.T) {
	s := New(NamePolicy{Mapping: map[string]string{"vin123": "My Car"}})
	assert.Equal(t, "My Car", s.VehicleName(&model.Vehicle{VIN: "VIN123"}))
	assert.Equal(t, "VIN999", s.VehicleName(&model.Vehicle{VIN: "VIN999"}))
	assert.Equal(t, "", s.VehicleName(&model.Vehicle{}))
	assert.Equal(t, "", s.VehicleName(nil))
}
