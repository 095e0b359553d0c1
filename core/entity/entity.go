// Package entity adapts one instrument identity into the shape Home
// Assistant expects: display name, unique id, icon, attributes and
// availability. Adapters never cache the instrument object — the backing
// snapshot is replaced every refresh cycle, so every property re-resolves
// the instrument by identity through the store.
package entity

import (
	"fmt"
	"strconv"

	"github.com/evhome/carnet-hass/core/coordinator"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/core/store"
)

// Availability is the slice of the coordinator the adapter reads.
type Availability interface {
	LastUpdateSuccess() bool
}

// Entity is a read-only façade over one (vin, capability, attribute) triple.
type Entity struct {
	store      *store.Store
	avail      Availability
	vin        string
	capability model.Capability
	attribute  string
}

// New creates an adapter. avail may be nil, in which case the entity is
// always available (the pre-coordinator legacy path).
func New(st *store.Store, avail Availability, vin string, capability model.Capability, attribute string) *Entity {
	return &Entity{store: st, avail: avail, vin: vin, capability: capability, attribute: attribute}
}

// Instrument resolves the live instrument for this identity.
func (e *Entity) Instrument() (model.Instrument, bool) {
	return e.store.Instrument(e.vin, e.capability, e.attribute)
}

// VIN returns the vehicle identifier this entity is bound to.
func (e *Entity) VIN() string { return e.vin }

// Capability returns the entity's capability group.
func (e *Entity) Capability() model.Capability { return e.capability }

// Attribute returns the instrument attribute key.
func (e *Entity) Attribute() string { return e.attribute }

// UniqueID is stable across refresh cycles because it embeds only the
// identity triple, never the instrument object.
func (e *Entity) UniqueID() string {
	return fmt.Sprintf("%s-%s-%s", e.vin, e.capability, e.attribute)
}

// Name combines the vehicle display name with the instrument display name.
func (e *Entity) Name() string {
	in, ok := e.Instrument()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %s", e.store.VehicleName(in.Vehicle), in.Name)
}

// State returns the current instrument state, nil when unresolvable.
func (e *Entity) State() any {
	in, ok := e.Instrument()
	if !ok {
		return nil
	}
	return in.State
}

// Icon returns a charge-aware battery icon for battery attributes and the
// instrument's own icon otherwise.
func (e *Entity) Icon() string {
	in, ok := e.Instrument()
	if !ok {
		return ""
	}
	if e.attribute == "battery_level" || e.attribute == "charging" {
		level := -1
		if in.Vehicle.Status.BatteryLevel != nil {
			level = *in.Vehicle.Status.BatteryLevel
		}
		return BatteryIcon(level, in.Vehicle.IsCharging())
	}
	return in.Icon
}

// Available mirrors the coordinator's last-success flag; entities without a
// coordinator are always available.
func (e *Entity) Available() bool {
	if e.avail == nil {
		return true
	}
	return e.avail.LastUpdateSuccess()
}

// ExtraStateAttributes merges the instrument's side-channel attributes with
// the computed model string and, when supported, the model image URL.
func (e *Entity) ExtraStateAttributes() map[string]any {
	in, ok := e.Instrument()
	if !ok {
		return nil
	}
	attrs := make(map[string]any, len(in.Attributes)+2)
	for k, v := range in.Attributes {
		attrs[k] = v
	}
	attrs["model"] = fmt.Sprintf("%s/%s", in.Vehicle.Model, in.Vehicle.ModelYear)
	if in.Vehicle.SupportsModelImage() {
		attrs["image_url"] = in.Vehicle.ModelImageURL
	}
	return attrs
}

// Attach subscribes render to the coordinator's refresh notifications. The
// returned release function must be called on detach; it is idempotent.
func (e *Entity) Attach(coord *coordinator.Coordinator, render func()) (release func()) {
	return coord.Events().SubscribeFunc(func(coordinator.RefreshEvent) {
		render()
	})
}

// BatteryIcon mirrors the Home Assistant battery icon helper: level rounded
// down to tens with charging variants.
func BatteryIcon(level int, charging bool) string {
	if level < 0 || level > 100 {
		return "mdi:battery-unknown"
	}
	rounded := level / 10 * 10
	switch {
	case charging && rounded >= 100:
		return "mdi:battery-charging-100"
	case charging:
		return "mdi:battery-charging-" + strconv.Itoa(max(rounded, 10))
	case rounded >= 100:
		return "mdi:battery"
	case rounded <= 0:
		return "mdi:battery-outline"
	default:
		return "mdi:battery-" + strconv.Itoa(rounded)
	}
}
