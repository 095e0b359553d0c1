package model

import "time"

// Position is a GPS fix reported by the vehicle.
type Position struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the last report the backend holds for a vehicle. Fields use
// pointers so a missing value (nil) can be told apart from a zero value.
type Status struct {
	BatteryLevel        *int       `json:"battery_level,omitempty"`
	Charging            *bool      `json:"charging,omitempty"`
	ChargingTimeLeftMin *int       `json:"charging_time_left_min,omitempty"`
	ChargerMaxCurrentA  *int       `json:"charger_max_current_a,omitempty"`
	ElectricRangeKM     *float64   `json:"electric_range_km,omitempty"`
	CombustionRangeKM   *float64   `json:"combustion_range_km,omitempty"`
	FuelLevel           *int       `json:"fuel_level,omitempty"`
	OdometerKM          *float64   `json:"odometer_km,omitempty"`
	ClimatisationOn     *bool      `json:"climatisation_on,omitempty"`
	TargetTemperatureC  *float64   `json:"target_temperature_c,omitempty"`
	WindowHeaterOn      *bool      `json:"window_heater_on,omitempty"`
	ParkingLightsOn     *bool      `json:"parking_lights_on,omitempty"`
	DoorsLocked         *bool      `json:"doors_locked,omitempty"`
	TrunkLocked         *bool      `json:"trunk_locked,omitempty"`
	ExternalPowerOn     *bool      `json:"external_power_on,omitempty"`
	Position            *Position  `json:"position,omitempty"`
	LastConnected       *time.Time `json:"last_connected,omitempty"`
	ServiceInspectionKM *float64   `json:"service_inspection_km,omitempty"`
}

// Vehicle identifies one physical vehicle known to the backend together with
// its latest status report. Instances are borrowed from the client for the
// duration of a refresh cycle and never mutated by this module.
type Vehicle struct {
	VIN           string `json:"vin"`
	DeviceID      string `json:"device_id"`
	Model         string `json:"model"`
	ModelYear     string `json:"model_year"`
	ModelImageURL string `json:"model_image_url,omitempty"`
	Status        Status `json:"status"`
}

// SupportsModelImage reports whether the backend published a model image for
// this vehicle.
func (v *Vehicle) SupportsModelImage() bool { return v.ModelImageURL != "" }

// IsCharging resolves the charging flag, defaulting to false when unreported.
func (v *Vehicle) IsCharging() bool {
	return v.Status.Charging != nil && *v.Status.Charging
}
