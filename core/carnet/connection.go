// Package carnet defines the boundary to the vehicle cloud service. All
// protocol work — authentication, request signing, report parsing — lives
// behind the Connection interface; this module only orchestrates it.
package carnet

import (
	"context"
	"errors"

	"github.com/evhome/carnet-hass/core/model"
)

var (
	// ErrUnauthorized marks a rejected login or an expired session.
	ErrUnauthorized = errors.New("carnet: unauthorized")
	// ErrNotFound marks a vehicle or device unknown to the backend.
	ErrNotFound = errors.New("carnet: not found")
)

// Connection is an authenticated session against the vehicle cloud API.
type Connection interface {
	// Login establishes a session. Calling it with an active session is a
	// no-op for implementations but the coordinator guards it anyway.
	Login(ctx context.Context) error
	// LoggedIn reports whether a session is currently active.
	LoggedIn() bool
	// Logout terminates the session.
	Logout(ctx context.Context) error

	// Update fetches the full vehicle list with fresh status reports.
	Update(ctx context.Context) ([]model.Vehicle, error)
	// RequestReport asks the vehicle to push a fresh report to the backend.
	RequestReport(ctx context.Context, vin string) error

	Commands
}

// Commands are the control operations forwarded unchanged to the backend.
// deviceID addresses the in-car telematics unit, not the VIN.
type Commands interface {
	SetChargerMaxCurrent(ctx context.Context, deviceID, current string) error
	SetTimerBasicSettings(ctx context.Context, deviceID string, s TimerBasicSettings) error
	UpdateSchedule(ctx context.Context, deviceID string, s ScheduleUpdate) error
	UpdateProfile(ctx context.Context, deviceID string, p ProfileUpdate) error
}
