package model

// Capability groups instruments by the entity type they surface as.
type Capability string

const (
	CapabilitySensor        Capability = "sensor"
	CapabilityBinarySensor  Capability = "binary_sensor"
	CapabilitySwitch        Capability = "switch"
	CapabilityClimate       Capability = "climate"
	CapabilityDeviceTracker Capability = "device_tracker"
)

// Instrument is one named telemetry or control point of a vehicle. A fresh
// set is built on every refresh cycle; consumers must re-resolve instruments
// by identity instead of holding references across cycles.
type Instrument struct {
	Vehicle    *Vehicle
	Capability Capability
	// Attribute is the stable key within the capability, e.g. "battery_level".
	Attribute string
	Name      string
	Icon      string
	State     any
	Unit      string
	// DeviceClass is the Home Assistant device class hint, empty when none.
	DeviceClass string
	// Attributes carries side-channel data published next to the state.
	Attributes map[string]any
}

// Matches reports whether the instrument has the given identity triple. The
// VIN comparison is exact; callers normalise case beforehand.
func (i *Instrument) Matches(vin string, capability Capability, attribute string) bool {
	return i.Vehicle != nil && i.Vehicle.VIN == vin &&
		i.Capability == capability && i.Attribute == attribute
}
