// Package services implements the user-invocable command operations. Every
// request is validated against its schema before any network interaction;
// dispatch itself is a direct pass-through to the vehicle cloud client with
// no local state.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/evhome/carnet-hass/core/carnet"
	"github.com/evhome/carnet-hass/core/logger"
	"github.com/evhome/carnet-hass/core/metrics"
)

// Service names as registered on the command surface.
const (
	ServiceSetChargerMaxCurrent  = "set_charger_max_current"
	ServiceSetTimerBasicSettings = "set_timer_basic_settings"
	ServiceUpdateSchedule        = "update_schedule"
	ServiceUpdateProfile         = "update_profile"
)

// ErrValidation marks a request rejected before dispatch.
var ErrValidation = errors.New("services: invalid request")

const deviceIDLength = 32

var allowedCurrents = map[string]bool{
	"0": true, "5": true, "10": true, "13": true, "16": true, "32": true, "max": true,
}

func validDeviceID(id string, required bool) error {
	if id == "" {
		if required {
			return fmt.Errorf("%w: device_id is required", ErrValidation)
		}
		return nil
	}
	if len(id) != deviceIDLength {
		return fmt.Errorf("%w: device_id must be %d characters", ErrValidation, deviceIDLength)
	}
	return nil
}

func validLevel(level int) error {
	if level < 0 || level > 100 || level%10 != 0 {
		return fmt.Errorf("%w: level %d not in 0..100 step 10", ErrValidation, level)
	}
	return nil
}

func validCurrent(current string, allowMax bool) error {
	if current == "" {
		return nil
	}
	if !allowedCurrents[current] || (!allowMax && current == "max") {
		return fmt.Errorf("%w: current %q not allowed", ErrValidation, current)
	}
	return nil
}

// ChargerMaxCurrentRequest sets the charger's maximum current.
type ChargerMaxCurrentRequest struct {
	DeviceID   string `json:"device_id,omitempty"`
	MaxCurrent string `json:"max_current"`
}

// Validate checks the request schema. device_id is optional here, unlike the
// other services.
func (r ChargerMaxCurrentRequest) Validate() error {
	if err := validDeviceID(r.DeviceID, false); err != nil {
		return err
	}
	if r.MaxCurrent == "" {
		return fmt.Errorf("%w: max_current is required", ErrValidation)
	}
	return validCurrent(r.MaxCurrent, true)
}

// TimerBasicSettingsRequest adjusts shared departure timer defaults.
type TimerBasicSettingsRequest struct {
	DeviceID             string  `json:"device_id,omitempty"`
	TargetLevel          int     `json:"min_level,omitempty"`
	TargetTempCelsius    float64 `json:"target_temperature_celsius,omitempty"`
	TargetTempFahrenheit float64 `json:"target_temperature_fahrenheit,omitempty"`
}

// Validate checks the request schema. The temperature may be given in either
// unit but not both.
func (r TimerBasicSettingsRequest) Validate() error {
	if err := validDeviceID(r.DeviceID, false); err != nil {
		return err
	}
	if r.TargetLevel != 0 {
		if err := validLevel(r.TargetLevel); err != nil {
			return err
		}
	}
	if r.TargetTempCelsius != 0 && r.TargetTempFahrenheit != 0 {
		return fmt.Errorf("%w: temperature given in both units", ErrValidation)
	}
	if r.TargetTempCelsius < 0 || r.TargetTempFahrenheit < 0 {
		return fmt.Errorf("%w: temperature must be positive", ErrValidation)
	}
	return nil
}

// ScheduleUpdateRequest updates one numbered schedule slot.
type ScheduleUpdateRequest struct {
	DeviceID        string `json:"device_id"`
	TimerID         int    `json:"timer_id"`
	ChargingProfile int    `json:"charging_profile,omitempty"`
	Enabled         *bool  `json:"enabled,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	DepartureTime   string `json:"departure_time,omitempty"`
	WeekdayMask     string `json:"weekday_mask,omitempty"`
}

// Validate checks the request schema.
func (r ScheduleUpdateRequest) Validate() error {
	if err := validDeviceID(r.DeviceID, true); err != nil {
		return err
	}
	if r.TimerID < 1 || r.TimerID > 3 {
		return fmt.Errorf("%w: timer_id must be 1..3", ErrValidation)
	}
	if r.ChargingProfile != 0 && (r.ChargingProfile < 1 || r.ChargingProfile > 10) {
		return fmt.Errorf("%w: charging_profile must be 1..10", ErrValidation)
	}
	if r.Frequency != "" && r.Frequency != "cyclic" && r.Frequency != "single" {
		return fmt.Errorf("%w: frequency %q not in cyclic|single", ErrValidation, r.Frequency)
	}
	if r.WeekdayMask != "" && len(r.WeekdayMask) != 7 {
		return fmt.Errorf("%w: weekday_mask must be 7 characters", ErrValidation)
	}
	return nil
}

// ProfileUpdateRequest updates one numbered charging/climatisation profile.
type ProfileUpdateRequest struct {
	DeviceID       string `json:"device_id"`
	ProfileID      int    `json:"profile_id"`
	ProfileName    string `json:"profile_name"`
	Charging       *bool  `json:"charging,omitempty"`
	Climatisation  *bool  `json:"climatisation,omitempty"`
	TargetLevel    int    `json:"target_level,omitempty"`
	MaxCurrent     string `json:"charge_max_current,omitempty"`
	NightRate      *bool  `json:"night_rate,omitempty"`
	NightRateStart string `json:"night_rate_start,omitempty"`
	NightRateEnd   string `json:"night_rate_end,omitempty"`
}

// Validate checks the request schema. The profile "max" current sentinel is
// not accepted here, matching the charger service's wider allowance.
func (r ProfileUpdateRequest) Validate() error {
	if err := validDeviceID(r.DeviceID, true); err != nil {
		return err
	}
	if r.ProfileID < 1 || r.ProfileID > 10 {
		return fmt.Errorf("%w: profile_id must be 1..10", ErrValidation)
	}
	if r.ProfileName == "" {
		return fmt.Errorf("%w: profile_name is required", ErrValidation)
	}
	if r.TargetLevel != 0 {
		if err := validLevel(r.TargetLevel); err != nil {
			return err
		}
	}
	return validCurrent(r.MaxCurrent, false)
}

// Services dispatches validated requests to the vehicle cloud client.
type Services struct {
	commands carnet.Commands
	sink     metrics.Sink
	log      logger.Logger
}

// New creates the service dispatcher. sink may be nil.
func New(commands carnet.Commands, sink metrics.Sink, log logger.Logger) *Services {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Services{commands: commands, sink: sink, log: log}
}

// SetChargerMaxCurrent validates and forwards the request.
func (s *Services) SetChargerMaxCurrent(ctx context.Context, r ChargerMaxCurrentRequest) error {
	if err := r.Validate(); err != nil {
		s.record(ServiceSetChargerMaxCurrent, false)
		return err
	}
	err := s.commands.SetChargerMaxCurrent(ctx, r.DeviceID, r.MaxCurrent)
	s.record(ServiceSetChargerMaxCurrent, err == nil)
	return err
}

// SetTimerBasicSettings validates and forwards the request.
func (s *Services) SetTimerBasicSettings(ctx context.Context, r TimerBasicSettingsRequest) error {
	if err := r.Validate(); err != nil {
		s.record(ServiceSetTimerBasicSettings, false)
		return err
	}
	err := s.commands.SetTimerBasicSettings(ctx, r.DeviceID, carnet.TimerBasicSettings{
		TargetLevel:          r.TargetLevel,
		TargetTempCelsius:    r.TargetTempCelsius,
		TargetTempFahrenheit: r.TargetTempFahrenheit,
	})
	s.record(ServiceSetTimerBasicSettings, err == nil)
	return err
}

// UpdateSchedule validates and forwards the request.
func (s *Services) UpdateSchedule(ctx context.Context, r ScheduleUpdateRequest) error {
	if err := r.Validate(); err != nil {
		s.record(ServiceUpdateSchedule, false)
		return err
	}
	err := s.commands.UpdateSchedule(ctx, r.DeviceID, carnet.ScheduleUpdate{
		TimerID:         r.TimerID,
		ChargingProfile: r.ChargingProfile,
		Enabled:         r.Enabled,
		Frequency:       r.Frequency,
		DepartureTime:   r.DepartureTime,
		WeekdayMask:     r.WeekdayMask,
	})
	s.record(ServiceUpdateSchedule, err == nil)
	return err
}

// UpdateProfile validates and forwards the request.
func (s *Services) UpdateProfile(ctx context.Context, r ProfileUpdateRequest) error {
	if err := r.Validate(); err != nil {
		s.record(ServiceUpdateProfile, false)
		return err
	}
	err := s.commands.UpdateProfile(ctx, r.DeviceID, carnet.ProfileUpdate{
		ProfileID:      r.ProfileID,
		Name:           r.ProfileName,
		Charging:       r.Charging,
		Climatisation:  r.Climatisation,
		TargetLevel:    r.TargetLevel,
		MaxCurrent:     r.MaxCurrent,
		NightRate:      r.NightRate,
		NightRateStart: r.NightRateStart,
		NightRateEnd:   r.NightRateEnd,
	})
	s.record(ServiceUpdateProfile, err == nil)
	return err
}

func (s *Services) record(service string, accepted bool) {
	rec := metrics.CommandRecord{Service: service, Accepted: accepted, Time: time.Now()}
	if err := s.sink.RecordCommand(rec); err != nil {
		s.log.Debugf("metrics: %v", err)
	}
}
