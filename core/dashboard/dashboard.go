// Package dashboard converts a vehicle status report into the flat instrument
// list exposed downstream. A new list is built on every refresh cycle so no
// instrument survives a cycle boundary.
package dashboard

import (
	"github.com/evhome/carnet-hass/core/model"
)

// Config controls which instruments are built and how values are rendered.
type Config struct {
	// Mutable enables control instruments (switches, climate).
	Mutable bool
	// SPIN is the security PIN required by some control operations. It is
	// carried into switch instrument attributes for the command path.
	SPIN string
	// Units selects distance rendering for the whole cycle.
	Units model.Units
}

// Build returns the instruments the vehicle currently reports data for.
// Attributes with a nil status field produce no instrument, which drives the
// dynamic entity-registration scheme: only reported attributes become
// entities.
func Build(v *model.Vehicle, cfg Config) []model.Instrument {
	b := builder{vehicle: v, cfg: cfg}
	s := v.Status

	if s.BatteryLevel != nil {
		b.sensor("battery_level", "Battery level", *s.BatteryLevel, "%", "battery", "mdi:battery")
	}
	if s.Charging != nil {
		b.binary("charging", "Charging", *s.Charging, "battery_charging", "mdi:ev-station")
	}
	if s.ChargingTimeLeftMin != nil {
		b.sensor("charging_time_left", "Charging time left", *s.ChargingTimeLeftMin, "min", "duration", "mdi:battery-charging")
	}
	if s.ChargerMaxCurrentA != nil {
		b.sensor("charger_max_current", "Charger max current", *s.ChargerMaxCurrentA, "A", "current", "mdi:current-ac")
	}
	if s.ElectricRangeKM != nil {
		b.distance("electric_range", "Electric range", *s.ElectricRangeKM, "mdi:car-electric")
	}
	if s.CombustionRangeKM != nil {
		b.distance("combustion_range", "Combustion range", *s.CombustionRangeKM, "mdi:gas-station")
	}
	if s.FuelLevel != nil {
		b.sensor("fuel_level", "Fuel level", *s.FuelLevel, "%", "", "mdi:fuel")
	}
	if s.OdometerKM != nil {
		b.distance("odometer", "Odometer", *s.OdometerKM, "mdi:speedometer")
	}
	if s.ServiceInspectionKM != nil {
		b.distance("service_inspection", "Distance to service", *s.ServiceInspectionKM, "mdi:garage")
	}
	if s.ParkingLightsOn != nil {
		b.binary("parking_lights", "Parking lights", *s.ParkingLightsOn, "light", "mdi:car-parking-lights")
	}
	if s.DoorsLocked != nil {
		b.binary("doors_locked", "Doors locked", *s.DoorsLocked, "lock", "mdi:car-door-lock")
	}
	if s.TrunkLocked != nil {
		b.binary("trunk_locked", "Trunk locked", *s.TrunkLocked, "lock", "mdi:car-back")
	}
	if s.ExternalPowerOn != nil {
		b.binary("external_power", "External power", *s.ExternalPowerOn, "plug", "mdi:power-plug")
	}
	if s.LastConnected != nil {
		b.sensor("last_connected", "Last connected", s.LastConnected.UTC(), "", "timestamp", "mdi:car-connected")
	}
	if s.Position != nil {
		b.add(model.Instrument{
			Capability: model.CapabilityDeviceTracker,
			Attribute:  "position",
			Name:       "Position",
			Icon:       "mdi:crosshairs-gps",
			State:      "known",
			Attributes: map[string]any{
				"latitude":  s.Position.Latitude,
				"longitude": s.Position.Longitude,
			},
		})
	}

	if cfg.Mutable {
		if s.ClimatisationOn != nil {
			climate := model.Instrument{
				Capability: model.CapabilityClimate,
				Attribute:  "climatisation",
				Name:       "Climatisation",
				Icon:       "mdi:air-conditioner",
				State:      *s.ClimatisationOn,
			}
			if s.TargetTemperatureC != nil {
				climate.Attributes = map[string]any{"target_temperature": *s.TargetTemperatureC}
			}
			b.add(climate)
		}
		if s.WindowHeaterOn != nil {
			b.add(model.Instrument{
				Capability: model.CapabilitySwitch,
				Attribute:  "window_heater",
				Name:       "Window heater",
				Icon:       "mdi:car-defrost-rear",
				State:      *s.WindowHeaterOn,
				Attributes: switchAttributes(cfg.SPIN),
			})
		}
		if s.Charging != nil {
			b.add(model.Instrument{
				Capability: model.CapabilitySwitch,
				Attribute:  "charging",
				Name:       "Charging",
				Icon:       "mdi:battery-charging",
				State:      *s.Charging,
				Attributes: switchAttributes(cfg.SPIN),
			})
		}
	}

	return b.instruments
}

func switchAttributes(spin string) map[string]any {
	if spin == "" {
		return nil
	}
	return map[string]any{"spin_required": true}
}

type builder struct {
	vehicle     *model.Vehicle
	cfg         Config
	instruments []model.Instrument
}

func (b *builder) add(i model.Instrument) {
	i.Vehicle = b.vehicle
	b.instruments = append(b.instruments, i)
}

func (b *builder) sensor(attr, name string, state any, unit, deviceClass, icon string) {
	b.add(model.Instrument{
		Capability:  model.CapabilitySensor,
		Attribute:   attr,
		Name:        name,
		Icon:        icon,
		State:       state,
		Unit:        unit,
		DeviceClass: deviceClass,
	})
}

func (b *builder) binary(attr, name string, state bool, deviceClass, icon string) {
	b.add(model.Instrument{
		Capability:  model.CapabilityBinarySensor,
		Attribute:   attr,
		Name:        name,
		Icon:        icon,
		State:       state,
		DeviceClass: deviceClass,
	})
}

// distance renders a kilometre value in the configured units, rounded to one
// decimal so converted values stay readable.
func (b *builder) distance(attr, name string, km float64, icon string) {
	val := b.cfg.Units.ConvertDistance(km)
	b.add(model.Instrument{
		Capability:  model.CapabilitySensor,
		Attribute:   attr,
		Name:        name,
		Icon:        icon,
		State:       round1(val),
		Unit:        b.cfg.Units.DistanceUnit(),
		DeviceClass: "distance",
	})
}

func round1(f float64) float64 {
	if f >= 0 {
		return float64(int64(f*10+0.5)) / 10
	}
	return float64(int64(f*10-0.5)) / 10
}
