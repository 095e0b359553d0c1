package metrics

import (
	"time"

	"github.com/evhome/carnet-hass/core/model"
)

// RefreshRecord captures the outcome of one refresh cycle.
type RefreshRecord struct {
	Success     bool
	Duration    time.Duration
	Instruments int
	Error       string
	Time        time.Time
}

// CommandRecord captures one invocation of a command service.
type CommandRecord struct {
	Service  string
	Accepted bool
	Time     time.Time
}

// Sink records bridge events for observability purposes.
type Sink interface {
	RecordRefresh(rec RefreshRecord) error
	RecordCommand(rec CommandRecord) error
}

// InstrumentRecorder is implemented by sinks that store per-instrument
// telemetry values, such as the InfluxDB history sink.
type InstrumentRecorder interface {
	RecordInstruments(vin string, instruments []model.Instrument) error
}

// SessionRecorder is implemented by sinks that track the login session state.
type SessionRecorder interface {
	RecordSession(loggedIn bool) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordRefresh(RefreshRecord) error { return nil }
func (NopSink) RecordCommand(CommandRecord) error { return nil }
