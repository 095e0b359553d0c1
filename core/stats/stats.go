// Package stats keeps rolling statistics over recent refresh cycles. The
// summaries are attached to numeric instruments as diagnostic attributes so
// dashboards can show short-term trends without a time-series database.
package stats

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Rolling tracks a bounded window of samples per attribute key.
type Rolling struct {
	mu     sync.Mutex
	window int
	series map[string][]float64
}

// NewRolling creates a Rolling keeping at most window samples per key.
func NewRolling(window int) *Rolling {
	if window <= 0 {
		window = 24
	}
	return &Rolling{window: window, series: make(map[string][]float64)}
}

// Observe appends a sample for the key, evicting the oldest when full.
func (r *Rolling) Observe(key string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := append(r.series[key], v)
	if len(s) > r.window {
		s = s[len(s)-r.window:]
	}
	r.series[key] = s
}

// Summary returns mean and standard deviation over the window. n is the
// sample count; the deviation is zero until two samples exist.
func (r *Rolling) Summary(key string) (mean, stddev float64, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.series[key]
	if len(s) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(s, nil)
	if len(s) > 1 {
		stddev = stat.StdDev(s, nil)
	}
	return mean, stddev, len(s)
}
