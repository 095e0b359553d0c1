package entity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evhome/carnet-hass/core/carnet"
	"github.com/evhome/carnet-hass/core/coordinator"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/core/store"
	"github.com/evhome/carnet-hass/infra/logger"
)

func ptr[T any](v T) *T { return &v }

type staticAvail bool

func (a staticAvail) LastUpdateSuccess() bool { return bool(a) }

func newVehicle(charging bool, level int) *model.Vehicle {
	return &model.Vehicle{
		VIN:       "VIN1",
		Model:     "Passat GTE",
		ModelYear: "2021",
		Status: model.Status{
			BatteryLevel: ptr(level),
			Charging:     ptr(charging),
		},
	}
}

func seed(st *store.Store, v *model.Vehicle) {
	st.Swap([]model.Instrument{
		{Vehicle: v, Capability: model.CapabilitySensor, Attribute: "battery_level", Name: "Battery level", Icon: "mdi:battery", State: *v.Status.BatteryLevel},
		{Vehicle: v, Capability: model.CapabilitySensor, Attribute: "odometer", Name: "Odometer", Icon: "mdi:speedometer", State: 100.0},
	})
}

func TestUniqueIDStableAcrossCycles(t *testing.T) {
	st := store.New(store.NamePolicy{})
	v := newVehicle(false, 50)
	seed(st, v)
	e := New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")
	id1 := e.UniqueID()

	// Replace the snapshot wholesale: new objects, same identity.
	seed(st, newVehicle(true, 60))
	assert.Equal(t, id1, e.UniqueID())
	assert.Equal(t, "VIN1-sensor-battery_level", id1)
}

func TestNameCombinesVehicleAndInstrument(t *testing.T) {
	st := store.New(store.NamePolicy{Fixed: "My Car"})
	seed(st, newVehicle(false, 50))
	e := New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")
	assert.Equal(t, "My Car Battery level", e.Name())
}

func TestIconBatteryReflectsCharging(t *testing.T) {
	st := store.New(store.NamePolicy{})
	seed(st, newVehicle(false, 54))
	e := New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")
	assert.Equal(t, "mdi:battery-50", e.Icon())

	seed(st, newVehicle(true, 54))
	assert.Equal(t, "mdi:battery-charging-50", e.Icon())
}

func TestIconNonBatteryUsesInstrumentIcon(t *testing.T) {
	st := store.New(store.NamePolicy{})
	seed(st, newVehicle(true, 54))
	e := New(st, nil, "VIN1", model.CapabilitySensor, "odometer")
	assert.Equal(t, "mdi:speedometer", e.Icon())
}

func TestAvailabilityMirrorsCoordinator(t *testing.T) {
	st := store.New(store.NamePolicy{})
	seed(st, newVehicle(false, 50))
	e := New(st, staticAvail(false), "VIN1", model.CapabilitySensor, "battery_level")
	assert.False(t, e.Available())
	e = New(st, staticAvail(true), "VIN1", model.CapabilitySensor, "battery_level")
	assert.True(t, e.Available())
	e = New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")
	assert.True(t, e.Available(), "no coordinator means always available")
}

func TestExtraStateAttributes(t *testing.T) {
	st := store.New(store.NamePolicy{})
	v := newVehicle(false, 50)
	st.Swap([]model.Instrument{{
		Vehicle:    v,
		Capability: model.CapabilitySensor,
		Attribute:  "battery_level",
		State:      50,
		Attributes: map[string]any{"rolling_mean": 48.0},
	}})
	e := New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")

	attrs := e.ExtraStateAttributes()
	require.NotNil(t, attrs)
	assert.Equal(t, "Passat GTE/2021", attrs["model"])
	assert.Equal(t, 48.0, attrs["rolling_mean"])
	assert.NotContains(t, attrs, "image_url")

	v.ModelImageURL = "https://example.invalid/passat.png"
	attrs = e.ExtraStateAttributes()
	assert.Equal(t, "https://example.invalid/passat.png", attrs["image_url"])
}

func TestBatteryIconLevels(t *testing.T) {
	cases := []struct {
		level    int
		charging bool
		want     string
	}{
		{100, false, "mdi:battery"},
		{100, true, "mdi:battery-charging-100"},
		{5, false, "mdi:battery-outline"},
		{5, true, "mdi:battery-charging-10"},
		{73, false, "mdi:battery-70"},
		{-1, false, "mdi:battery-unknown"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BatteryIcon(c.level, c.charging), "level %d charging %v", c.level, c.charging)
	}
}

func TestStateReResolvesAfterSwap(t *testing.T) {
	st := store.New(store.NamePolicy{})
	seed(st, newVehicle(false, 50))
	e := New(st, nil, "VIN1", model.CapabilitySensor, "battery_level")
	assert.Equal(t, 50, e.State())
	seed(st, newVehicle(false, 60))
	assert.Equal(t, 60, e.State(), "state must re-resolve after snapshot swap")
}

func TestAttachRendersOnRefreshAndReleases(t *testing.T) {
	st := store.New(store.NamePolicy{})
	seed(st, newVehicle(false, 50))
	conn := &stubConn{vehicles: []model.Vehicle{*newVehicle(false, 50)}}
	coord := coordinator.New(conn, st, coordinator.Config{VIN: "VIN1"}, nil, logger.NopLogger{})

	var renders atomic.Int32
	e := New(st, coord, "VIN1", model.CapabilitySensor, "battery_level")
	release := e.Attach(coord, func() { renders.Add(1) })

	require.NoError(t, coord.RequestRefresh(context.Background()))
	deadline := time.Now().Add(time.Second)
	for renders.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int32(1), renders.Load())

	release()
	require.NoError(t, coord.RequestRefresh(context.Background()))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), renders.Load(), "no renders after release")
}

// stubConn is a minimal carnet.Connection for subscription tests.
type stubConn struct{ vehicles []model.Vehicle }

func (s *stubConn) Login(context.Context) error  { return nil }
func (s *stubConn) LoggedIn() bool               { return true }
func (s *stubConn) Logout(context.Context) error { return nil }
func (s *stubConn) Update(context.Context) ([]model.Vehicle, error) {
	return s.vehicles, nil
}
func (s *stubConn) RequestReport(context.Context, string) error { return nil }
func (s *stubConn) SetChargerMaxCurrent(context.Context, string, string) error {
	return nil
}
func (s *stubConn) SetTimerBasicSettings(context.Context, string, carnet.TimerBasicSettings) error {
	return nil
}
func (s *stubConn) UpdateSchedule(context.Context, string, carnet.ScheduleUpdate) error {
	return nil
}
func (s *stubConn) UpdateProfile(context.Context, string, carnet.ProfileUpdate) error {
	return nil
}
