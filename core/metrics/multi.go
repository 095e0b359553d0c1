package metrics

import "github.com/evhome/carnet-hass/core/model"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRefresh forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordRefresh(rec RefreshRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordRefresh(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommand forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordCommand(rec CommandRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordCommand(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordInstruments forwards telemetry values to sinks that support them.
func (m *MultiSink) RecordInstruments(vin string, instruments []model.Instrument) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(InstrumentRecorder); ok {
			if err := rec.RecordInstruments(vin, instruments); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSession forwards the session state to sinks that track it.
func (m *MultiSink) RecordSession(loggedIn bool) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionRecorder); ok {
			if err := rec.RecordSession(loggedIn); err != nil {
				return err
			}
		}
	}
	return nil
}
