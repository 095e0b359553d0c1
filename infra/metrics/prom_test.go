package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/evhome/carnet-hass/core/metrics"
	"github.com/evhome/carnet-hass/core/model"
)

func TestPromSink_RecordRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	rec := coremetrics.RefreshRecord{
		Success:     true,
		Duration:    150 * time.Millisecond,
		Instruments: 7,
		Time:        time.Now(),
	}
	if err := sink.RecordRefresh(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP carnet_refresh_cycles_total Total number of refresh cycles
# TYPE carnet_refresh_cycles_total counter
carnet_refresh_cycles_total{success="true"} 1
`
	if err := testutil.CollectAndCompare(sink.refreshes, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}

	expectedInstruments := `
# HELP carnet_instruments Number of instruments built in the last cycle
# TYPE carnet_instruments gauge
carnet_instruments 7
`
	if err := testutil.CollectAndCompare(sink.instruments, strings.NewReader(expectedInstruments)); err != nil {
		t.Errorf("unexpected instruments metric: %v", err)
	}
}

func TestPromSink_RecordCommandAndSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	if err := sink.RecordCommand(coremetrics.CommandRecord{Service: "update_profile", Accepted: false, Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	expected := `
# HELP carnet_command_invocations_total Total number of command service invocations
# TYPE carnet_command_invocations_total counter
carnet_command_invocations_total{accepted="false",service="update_profile"} 1
`
	if err := testutil.CollectAndCompare(sink.commands, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	if err := sink.RecordSession(true); err != nil {
		t.Fatalf("session error: %v", err)
	}
	expectedSession := `
# HELP carnet_session_logged_in Whether a cloud session is currently held
# TYPE carnet_session_logged_in gauge
carnet_session_logged_in 1
`
	if err := testutil.CollectAndCompare(sink.session, strings.NewReader(expectedSession)); err != nil {
		t.Errorf("unexpected session metric: %v", err)
	}
}

func TestPromSink_RecordInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}

	instruments := []model.Instrument{
		{Capability: model.CapabilitySensor, Attribute: "battery_level", State: 42},
		{Capability: model.CapabilityBinarySensor, Attribute: "charging", State: true},
	}
	if err := sink.RecordInstruments("VIN1", instruments); err != nil {
		t.Fatalf("record error: %v", err)
	}
	expected := `
# HELP carnet_instrument_value Current value of numeric instruments
# TYPE carnet_instrument_value gauge
carnet_instrument_value{attribute="battery_level",vin="VIN1"} 42
`
	if err := testutil.CollectAndCompare(sink.values, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestPromSink_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
}
