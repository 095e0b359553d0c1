// Package store holds the per-entry instrument snapshot and the vehicle
// naming policy. Exactly one Store exists per configured entry.
package store

import (
	"strings"
	"sync"

	"github.com/evhome/carnet-hass/core/model"
)

// NamePolicy resolves a friendly display name for a vehicle. Either Fixed is
// set and applies to every vehicle, or Mapping maps case-folded VINs to names.
type NamePolicy struct {
	Fixed   string
	Mapping map[string]string
}

// Name resolves the policy for one vehicle following the original precedence:
// fixed string, mapped VIN (case-insensitive), raw VIN, empty string.
func (p NamePolicy) Name(v *model.Vehicle) string {
	if p.Fixed != "" {
		return p.Fixed
	}
	if v == nil || v.VIN == "" {
		return ""
	}
	if name, ok := p.Mapping[strings.ToLower(v.VIN)]; ok {
		return name
	}
	return v.VIN
}

// Store is the registry mapping instrument identities to live instruments.
// Snapshots are replaced wholesale and generation-stamped so no consumer can
// observe a half-updated cycle or hold a reference across one.
type Store struct {
	mu          sync.RWMutex
	generation  uint64
	instruments []model.Instrument
	names       NamePolicy
}

// New creates a Store with the given naming policy.
func New(names NamePolicy) *Store {
	return &Store{names: names}
}

// Swap replaces the snapshot and returns the new generation.
func (s *Store) Swap(instruments []model.Instrument) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments = instruments
	s.generation++
	return s.generation
}

// Generation returns the current snapshot generation. Zero means no refresh
// has completed yet.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns the current instrument list. The slice must be treated as
// read-only.
func (s *Store) Snapshot() []model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instruments
}

// Instrument returns the live instrument for the identity triple, or false
// when the current snapshot does not contain it.
func (s *Store) Instrument(vin string, capability model.Capability, attribute string) (model.Instrument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.instruments {
		if i.Matches(vin, capability, attribute) {
			return i, true
		}
	}
	return model.Instrument{}, false
}

// VehicleName resolves the display name for a vehicle.
func (s *Store) VehicleName(v *model.Vehicle) string {
	return s.names.Name(v)
}
