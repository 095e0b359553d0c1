// Package coordinator owns the session lifecycle and the periodic refresh
// cycle for one configured vehicle.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/evhome/carnet-hass/core/carnet"
	"github.com/evhome/carnet-hass/core/dashboard"
	"github.com/evhome/carnet-hass/core/logger"
	"github.com/evhome/carnet-hass/core/metrics"
	"github.com/evhome/carnet-hass/core/model"
	"github.com/evhome/carnet-hass/core/stats"
	"github.com/evhome/carnet-hass/core/store"
	"github.com/evhome/carnet-hass/internal/eventbus"
)

// loginAttempts is the fixed retry budget for establishing a session.
const loginAttempts = 3

var (
	// ErrUpdateFailed marks a refresh cycle that could not complete.
	ErrUpdateFailed = errors.New("coordinator: update failed")
	// ErrLoginFailed marks a login that exhausted its retry budget.
	ErrLoginFailed = errors.New("coordinator: login failed")
)

// Config holds the per-entry coordinator settings.
type Config struct {
	// VIN selects the configured vehicle; matching is case-insensitive.
	VIN          string
	ScanInterval time.Duration
	// ReportRequest enables best-effort report requests during refresh.
	ReportRequest      bool
	ReportIntervalDays int
	Dashboard          dashboard.Config
	// StatsWindow bounds the rolling statistics sample count.
	StatsWindow int
}

// RefreshEvent is published on the bus after every refresh cycle, successful
// or not.
type RefreshEvent struct {
	Generation  uint64
	Instruments int
	Err         error
	Time        time.Time
}

// Coordinator performs the periodic refresh and tracks last-success state for
// downstream availability checks. All public entry points are safe for
// concurrent use; concurrent refresh requests collapse into the single
// in-flight cycle.
type Coordinator struct {
	conn    carnet.Connection
	cfg     Config
	store   *store.Store
	bus     *eventbus.TypedBus[RefreshEvent]
	log     logger.Logger
	sink    metrics.Sink
	rolling *stats.Rolling
	sf      singleflight.Group
	now     func() time.Time

	mu              sync.Mutex
	lastSuccess     bool
	lastUpdated     time.Time
	reportRequested time.Time
}

// New creates a Coordinator. sink may be nil to disable metrics.
func New(conn carnet.Connection, st *store.Store, cfg Config, sink metrics.Sink, log logger.Logger) *Coordinator {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if cfg.ReportIntervalDays <= 0 {
		cfg.ReportIntervalDays = 3
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Coordinator{
		conn:    conn,
		cfg:     cfg,
		store:   st,
		bus:     eventbus.NewTyped[RefreshEvent](),
		log:     log,
		sink:    sink,
		rolling: stats.NewRolling(cfg.StatsWindow),
		now:     time.Now,
	}
}

// Events returns the bus carrying refresh notifications.
func (c *Coordinator) Events() *eventbus.TypedBus[RefreshEvent] { return c.bus }

// Store returns the instrument store backing this coordinator.
func (c *Coordinator) Store() *store.Store { return c.store }

// LastUpdateSuccess reports whether the most recent refresh cycle succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// LastUpdated returns the time of the last successful refresh.
func (c *Coordinator) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdated
}

// Login establishes a session unless one is already active. It retries up to
// the fixed budget and returns ErrLoginFailed once exhausted.
func (c *Coordinator) Login(ctx context.Context) error {
	if c.conn.LoggedIn() {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= loginAttempts; attempt++ {
		if lastErr = c.conn.Login(ctx); lastErr == nil {
			c.recordSession(true)
			return nil
		}
		c.log.Warnf("login attempt %d/%d failed: %v", attempt, loginAttempts, lastErr)
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			break
		}
	}
	c.recordSession(false)
	return fmt.Errorf("%w: %v", ErrLoginFailed, lastErr)
}

// Logout terminates the session if one is active. Failures are logged and
// swallowed so shutdown always proceeds.
func (c *Coordinator) Logout(ctx context.Context) {
	if !c.conn.LoggedIn() {
		return
	}
	if err := c.conn.Logout(ctx); err != nil {
		c.log.Errorf("logout failed: %v", err)
		return
	}
	c.recordSession(false)
}

// RequestRefresh triggers a refresh cycle. A request arriving while a cycle
// is in flight joins that cycle instead of starting another fetch.
func (c *Coordinator) RequestRefresh(ctx context.Context) error {
	_, err, _ := c.sf.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

// Run drives the fixed-interval refresh loop until the context is cancelled.
// The interval does not back off on failures.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.RequestRefresh(ctx); err != nil {
				c.log.Warnf("scheduled refresh: %v", err)
			}
		}
	}
}

// refresh performs one full cycle: fetch, select, report-request, rebuild
// instruments, swap the snapshot, notify.
func (c *Coordinator) refresh(ctx context.Context) error {
	start := c.now()

	vehicle, err := c.update(ctx)
	if err != nil {
		c.fail(start, err)
		return err
	}

	if c.cfg.ReportRequest {
		c.maybeRequestReport(ctx, vehicle.VIN)
	}

	instruments := dashboard.Build(vehicle, c.cfg.Dashboard)
	c.annotate(instruments)
	gen := c.store.Swap(instruments)

	c.mu.Lock()
	c.lastSuccess = true
	c.lastUpdated = c.now()
	c.mu.Unlock()

	rec := metrics.RefreshRecord{
		Success:     true,
		Duration:    c.now().Sub(start),
		Instruments: len(instruments),
		Time:        c.now(),
	}
	if err := c.sink.RecordRefresh(rec); err != nil {
		c.log.Debugf("metrics: %v", err)
	}
	if ir, ok := c.sink.(metrics.InstrumentRecorder); ok {
		if err := ir.RecordInstruments(vehicle.VIN, instruments); err != nil {
			c.log.Debugf("metrics: %v", err)
		}
	}

	c.bus.Publish(RefreshEvent{Generation: gen, Instruments: len(instruments), Time: c.now()})
	c.log.Debugw("refresh complete", map[string]any{
		"generation":  gen,
		"instruments": len(instruments),
	})
	return nil
}

// update fetches the vehicle list and selects the configured vehicle by
// case-insensitive exact VIN match.
func (c *Coordinator) update(ctx context.Context) (*model.Vehicle, error) {
	vehicles, err := c.conn.Update(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	for i := range vehicles {
		if strings.EqualFold(vehicles[i].VIN, c.cfg.VIN) {
			return &vehicles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: vehicle %s not in account", ErrUpdateFailed, c.cfg.VIN)
}

// maybeRequestReport asks the vehicle to push a fresh report, gated by the
// configured interval in days. The first-ever call always proceeds. Failures
// are logged at warning and never abort the refresh.
func (c *Coordinator) maybeRequestReport(ctx context.Context, vin string) {
	c.mu.Lock()
	last := c.reportRequested
	c.mu.Unlock()

	if !last.IsZero() {
		days := int(c.now().Sub(last).Hours() / 24)
		if days < c.cfg.ReportIntervalDays {
			return
		}
	}

	if !c.conn.LoggedIn() {
		if err := c.conn.Login(ctx); err != nil {
			c.log.Warnf("report request login: %v", err)
			return
		}
	}
	if err := c.conn.RequestReport(ctx, vin); err != nil {
		c.log.Warnf("report request: %v", err)
		return
	}
	c.mu.Lock()
	c.reportRequested = c.now()
	c.mu.Unlock()
}

// fail records a failed cycle and notifies listeners so entities can drop to
// unavailable.
func (c *Coordinator) fail(start time.Time, err error) {
	c.mu.Lock()
	c.lastSuccess = false
	c.mu.Unlock()

	c.log.Warnf("refresh failed: %v", err)
	rec := metrics.RefreshRecord{
		Duration: c.now().Sub(start),
		Error:    err.Error(),
		Time:     c.now(),
	}
	if serr := c.sink.RecordRefresh(rec); serr != nil {
		c.log.Debugf("metrics: %v", serr)
	}
	c.bus.Publish(RefreshEvent{Generation: c.store.Generation(), Err: err, Time: c.now()})
}

// annotate attaches rolling statistics to numeric sensor instruments.
func (c *Coordinator) annotate(instruments []model.Instrument) {
	for idx := range instruments {
		in := &instruments[idx]
		if in.Capability != model.CapabilitySensor {
			continue
		}
		v, ok := numeric(in.State)
		if !ok {
			continue
		}
		c.rolling.Observe(in.Attribute, v)
		mean, stddev, n := c.rolling.Summary(in.Attribute)
		if n < 2 {
			continue
		}
		if in.Attributes == nil {
			in.Attributes = make(map[string]any)
		}
		in.Attributes["rolling_mean"] = mean
		in.Attributes["rolling_stddev"] = stddev
	}
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

func (c *Coordinator) recordSession(loggedIn bool) {
	if sr, ok := c.sink.(metrics.SessionRecorder); ok {
		if err := sr.RecordSession(loggedIn); err != nil {
			c.log.Debugf("metrics: %v", err)
		}
	}
}
