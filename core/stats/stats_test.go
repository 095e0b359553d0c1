package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryEmpty(t *testing.T) {
	r := NewRolling(4)
	mean, stddev, n := r.Summary("battery_level")
	assert.Zero(t, mean)
	assert.Zero(t, stddev)
	assert.Zero(t, n)
}

func TestSummaryMeanAndWindow(t *testing.T) {
	r := NewRolling(3)
	for _, v := range []float64{10, 20, 30} {
		r.Observe("battery_level", v)
	}
	mean, _, n := r.Summary("battery_level")
	assert.Equal(t, 20.0, mean)
	assert.Equal(t, 3, n)

	// Window evicts the oldest sample.
	r.Observe("battery_level", 40)
	mean, _, n = r.Summary("battery_level")
	assert.Equal(t, 30.0, mean)
	assert.Equal(t, 3, n)
}

func TestSummarySingleSampleNoDeviation(t *testing.T) {
	r := NewRolling(8)
	r.Observe("electric_range", 180)
	mean, stddev, n := r.Summary("electric_range")
	assert.Equal(t, 180.0, mean)
	assert.Zero(t, stddev)
	assert.Equal(t, 1, n)
}
