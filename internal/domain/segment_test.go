package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_RunCoverage(t *testing.T) {
	seg, err := Segment(hourlySeries(seriesStart, 0, 0, 1, 2, 0, 0, 0, 3, 0))
	require.NoError(t, err)
	require.Len(t, seg, 9)

	type run struct {
		id         int
		typ        Weather
		start, end int
	}
	want := []run{
		{1, Dry, 0, 1},
		{2, Wet, 2, 3},
		{3, Dry, 4, 6},
		{4, Wet, 7, 7},
		{5, Dry, 8, 8},
	}
	for _, r := range want {
		for i := r.start; i <= r.end; i++ {
			assert.Equal(t, r.id, seg[i].EventID, "index %d", i)
			assert.Equal(t, r.typ, seg[i].EventType, "index %d", i)
		}
	}

	// Union of events covers the input exactly, in order.
	for i := range seg {
		assert.True(t, seg[i].Timestamp.Equal(seriesStart.Add(time.Duration(i)*time.Hour)))
	}
	// Adjacent events never share a type.
	for i := 1; i < len(seg); i++ {
		if seg[i].EventID != seg[i-1].EventID {
			assert.NotEqual(t, seg[i-1].EventType, seg[i].EventType, "index %d", i)
			assert.Equal(t, seg[i-1].EventID+1, seg[i].EventID, "ids increase by one")
		}
	}
}

func TestSegment_ZeroIsDryNeverWet(t *testing.T) {
	seg, err := Segment(hourlySeries(seriesStart, 0))
	require.NoError(t, err)
	assert.Equal(t, Dry, seg[0].EventType)
}

func TestSegment_SingleHourWetSpike(t *testing.T) {
	seg, err := Segment(hourlySeries(seriesStart, 0, 0.05, 0))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, []int{seg[0].EventID, seg[1].EventID, seg[2].EventID})
	assert.Equal(t, Wet, seg[1].EventType)
}

func TestSegment_AllSameTypeIsOneEvent(t *testing.T) {
	seg, err := Segment(hourlySeries(seriesStart, 0.1, 0.2, 0.3, 0.4))
	require.NoError(t, err)
	for i := range seg {
		assert.Equal(t, 1, seg[i].EventID)
		assert.Equal(t, Wet, seg[i].EventType)
	}
}

func TestSegment_EmptySeries(t *testing.T) {
	seg, err := Segment(nil)
	require.NoError(t, err)
	assert.Empty(t, seg)
}

func TestSegment_MissingValueRejected(t *testing.T) {
	s := hourlySeries(seriesStart, 0.1, 0.2)
	s[1].Precip = nil

	_, err := Segment(s)
	assert.ErrorIs(t, err, ErrMissingValue)
}

func TestSegmentWithOptions_GapMergingReserved(t *testing.T) {
	_, err := SegmentWithOptions(hourlySeries(seriesStart, 0, 1, 0), SegmentOptions{MinDryGapHours: 6})
	require.ErrorIs(t, err, ErrGapMergingNotImplemented)
	assert.Contains(t, err.Error(), "6 h")
}
