package carnet

// TimerBasicSettings adjusts the shared departure timer defaults.
type TimerBasicSettings struct {
	TargetLevel          int     `json:"min_level,omitempty"`
	TargetTempCelsius    float64 `json:"target_temperature_celsius,omitempty"`
	TargetTempFahrenheit float64 `json:"target_temperature_fahrenheit,omitempty"`
}

// ScheduleUpdate changes one numbered charge/climate schedule slot.
type ScheduleUpdate struct {
	TimerID         int    `json:"timer_id"`
	ChargingProfile int    `json:"charging_profile,omitempty"`
	Enabled         *bool  `json:"enabled,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	DepartureTime   string `json:"departure_time,omitempty"`
	WeekdayMask     string `json:"weekday_mask,omitempty"`
}

// ProfileUpdate changes one numbered charging/climatisation profile.
type ProfileUpdate struct {
	ProfileID      int    `json:"profile_id"`
	Name           string `json:"profile_name"`
	Charging       *bool  `json:"charging,omitempty"`
	Climatisation  *bool  `json:"climatisation,omitempty"`
	TargetLevel    int    `json:"target_level,omitempty"`
	MaxCurrent     string `json:"charge_max_current,omitempty"`
	NightRate      *bool  `json:"night_rate,omitempty"`
	NightRateStart string `json:"night_rate_start,omitempty"`
	NightRateEnd   string `json:"night_rate_end,omitempty"`
}
