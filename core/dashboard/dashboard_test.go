package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evhome/carnet-hass/core/model"
)

func ptr[T any](v T) *T { return &v }

func testVehicle() *model.Vehicle {
	return &model.Vehicle{
		VIN:   "WVWZZZ1KZAW000001",
		Model: "ID.4",
		Status: model.Status{
			BatteryLevel:    ptr(42),
			Charging:        ptr(true),
			ElectricRangeKM: ptr(180.0),
			OdometerKM:      ptr(12345.0),
			WindowHeaterOn:  ptr(false),
			ClimatisationOn: ptr(false),
		},
	}
}

func find(t *testing.T, ins []model.Instrument, cap model.Capability, attr string) model.Instrument {
	t.Helper()
	for _, i := range ins {
		if i.Capability == cap && i.Attribute == attr {
			return i
		}
	}
	t.Fatalf("instrument %s/%s not built", cap, attr)
	return model.Instrument{}
}

func TestBuildOnlyReportedAttributes(t *testing.T) {
	v := &model.Vehicle{VIN: "X", Status: model.Status{BatteryLevel: ptr(50)}}
	ins := Build(v, Config{Units: model.UnitsMetric})
	assert.Len(t, ins, 1)
	assert.Equal(t, "battery_level", ins[0].Attribute)
}

func TestBuildDistanceConversion(t *testing.T) {
	cases := []struct {
		units model.Units
		want  float64
		unit  string
	}{
		{model.UnitsMetric, 180.0, "km"},
		{model.UnitsImperial, 111.8, "mi"},
		{model.UnitsScandinavianMiles, 18.0, "mil"},
	}
	for _, c := range cases {
		ins := Build(testVehicle(), Config{Units: c.units})
		rng := find(t, ins, model.CapabilitySensor, "electric_range")
		assert.Equal(t, c.want, rng.State, string(c.units))
		assert.Equal(t, c.unit, rng.Unit, string(c.units))
	}
}

func TestBuildMutableGatesControls(t *testing.T) {
	ins := Build(testVehicle(), Config{Units: model.UnitsMetric})
	for _, i := range ins {
		if i.Capability == model.CapabilitySwitch || i.Capability == model.CapabilityClimate {
			t.Fatalf("control instrument %s built without mutable flag", i.Attribute)
		}
	}

	ins = Build(testVehicle(), Config{Units: model.UnitsMetric, Mutable: true})
	find(t, ins, model.CapabilitySwitch, "window_heater")
	find(t, ins, model.CapabilitySwitch, "charging")
	find(t, ins, model.CapabilityClimate, "climatisation")
}

func TestBuildFreshInstrumentsPerCycle(t *testing.T) {
	v := testVehicle()
	a := Build(v, Config{Units: model.UnitsMetric})
	b := Build(v, Config{Units: model.UnitsMetric})
	assert.Equal(t, len(a), len(b))
	// Same identity, distinct objects: mutating one cycle's attributes must
	// not leak into the next.
	a[0].State = -1
	assert.NotEqual(t, a[0].State, b[0].State)
}
