package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromSecondsRoundTrip(t *testing.T) {
	v := FromSeconds(2.5, DefaultTimescale)
	assert.Equal(t, int64(1500), v.Value)
	assert.InDelta(t, 2.5, v.Seconds(), 1e-9)
}

func TestFromDuration(t *testing.T) {
	v := FromDuration(20*time.Second, DefaultTimescale)
	assert.Equal(t, int64(12000), v.Value)
	assert.InDelta(t, 20.0, v.Seconds(), 1e-9)
}

func TestAddAcrossTimescales(t *testing.T) {
	a := NewTimeValue(600, 600)      // 1s
	b := NewTimeValue(441000, 44100) // 10s at an audio timescale
	sum := a.Add(b)

	assert.Equal(t, int32(600), sum.Timescale)
	assert.InDelta(t, 11.0, sum.Seconds(), 1e-9)
}

func TestCmpCrossTimescale(t *testing.T) {
	a := NewTimeValue(600, 600)     // 1s
	b := NewTimeValue(44100, 44100) // 1s
	c := NewTimeValue(601, 600)

	assert.Equal(t, 0, a.Cmp(b))
	assert.Equal(t, 1, c.Cmp(a))
	assert.Equal(t, -1, a.Cmp(c))
}

func TestNewTimeRangeClampsNegativeDuration(t *testing.T) {
	r := NewTimeRange(Zero, NewTimeValue(-100, 600))
	assert.Equal(t, int64(0), r.Duration.Value)
	assert.Equal(t, 0, r.End().Cmp(Zero))
}

func TestRangeEnd(t *testing.T) {
	r := NewTimeRange(FromSeconds(1, 600), FromSeconds(2, 600))
	assert.InDelta(t, 3.0, r.End().Seconds(), 1e-9)
}

func TestZeroTimescaleSeconds(t *testing.T) {
	var v TimeValue
	assert.Equal(t, 0.0, v.Seconds())
}
