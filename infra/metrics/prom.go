// Package metrics provides the Prometheus and InfluxDB sink implementations.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/evhome/carnet-hass/core/metrics"
	"github.com/evhome/carnet-hass/core/model"
)

// PromSink records refresh and command events in Prometheus metrics.
type PromSink struct {
	refreshes   *prometheus.CounterVec
	duration    prometheus.Histogram
	instruments prometheus.Gauge
	commands    *prometheus.CounterVec
	session     prometheus.Gauge
	values      *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carnet_refresh_cycles_total",
		Help: "Total number of refresh cycles",
	}, []string{"success"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "carnet_refresh_duration_seconds",
		Help:    "Duration of one refresh cycle",
		Buckets: prometheus.DefBuckets,
	})
	instruments := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carnet_instruments",
		Help: "Number of instruments built in the last cycle",
	})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carnet_command_invocations_total",
		Help: "Total number of command service invocations",
	}, []string{"service", "accepted"})
	session := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carnet_session_logged_in",
		Help: "Whether a cloud session is currently held",
	})
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "carnet_instrument_value",
		Help: "Current value of numeric instruments",
	}, []string{"vin", "attribute"})

	if err := register(reg, &refreshes); err != nil {
		return nil, err
	}
	if err := register(reg, &duration); err != nil {
		return nil, err
	}
	if err := register(reg, &instruments); err != nil {
		return nil, err
	}
	if err := register(reg, &commands); err != nil {
		return nil, err
	}
	if err := register(reg, &session); err != nil {
		return nil, err
	}
	if err := register(reg, &values); err != nil {
		return nil, err
	}

	return &PromSink{
		refreshes:   refreshes,
		duration:    duration,
		instruments: instruments,
		commands:    commands,
		session:     session,
		values:      values,
	}, nil
}

// register adds the collector, replacing it with the already-registered one
// on duplicate registration.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*c = are.ExistingCollector.(C)
			return nil
		}
		return err
	}
	return nil
}

// RecordRefresh counts the cycle and observes its duration.
func (s *PromSink) RecordRefresh(rec coremetrics.RefreshRecord) error {
	s.refreshes.WithLabelValues(strconv.FormatBool(rec.Success)).Inc()
	s.duration.Observe(rec.Duration.Seconds())
	if rec.Success {
		s.instruments.Set(float64(rec.Instruments))
	}
	return nil
}

// RecordCommand counts the service invocation.
func (s *PromSink) RecordCommand(rec coremetrics.CommandRecord) error {
	s.commands.WithLabelValues(rec.Service, strconv.FormatBool(rec.Accepted)).Inc()
	return nil
}

// RecordSession tracks the session gauge.
func (s *PromSink) RecordSession(loggedIn bool) error {
	v := 0.0
	if loggedIn {
		v = 1.0
	}
	s.session.Set(v)
	return nil
}

// RecordInstruments exports the numeric instrument values.
func (s *PromSink) RecordInstruments(vin string, instruments []model.Instrument) error {
	for i := range instruments {
		in := &instruments[i]
		if v, ok := numeric(in.State); ok {
			s.values.WithLabelValues(vin, in.Attribute).Set(v)
		}
	}
	return nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
