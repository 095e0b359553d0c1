package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/evhome/carnet-hass/core/metrics"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/infra/logger"
)

// InfluxSink persists refresh outcomes and instrument values to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRefresh writes the cycle outcome.
func (s *InfluxSink) RecordRefresh(rec coremetrics.RefreshRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("refresh_cycle").
		AddTag("success", boolString(rec.Success)).
		AddField("duration_ms", rec.Duration.Milliseconds()).
		AddField("instruments", rec.Instruments)
	if rec.Error != "" {
		p = p.AddField("error", rec.Error)
	}
	p = p.SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes one service invocation.
func (s *InfluxSink) RecordCommand(rec coremetrics.CommandRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("command_invocation").
		AddTag("service", rec.Service).
		AddTag("accepted", boolString(rec.Accepted)).
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordInstruments writes the numeric instrument values of one cycle,
// building the long-term history the cloud service itself does not keep.
func (s *InfluxSink) RecordInstruments(vin string, instruments []model.Instrument) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()
	for i := range instruments {
		in := &instruments[i]
		v, ok := numeric(in.State)
		if !ok {
			continue
		}
		p := write.NewPointWithMeasurement("instrument_value").
			AddTag("vin", vin).
			AddTag("attribute", in.Attribute).
			AddTag("capability", string(in.Capability)).
			AddField("value", v)
		if in.Unit != "" {
			p = p.AddTag("unit", in.Unit)
		}
		p = p.SetTime(now)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
