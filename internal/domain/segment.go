package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrGapMergingNotImplemented is returned when SegmentOptions asks for
// minimum-dry-gap merging. The knob is reserved: merging near-adjacent wet
// spells changes storm counts, so no default threshold is guessed.
var ErrGapMergingNotImplemented = errors.New("minimum dry-gap merging is not implemented")

// SegmentedHour is one record of a segmented series: the original
// observation plus its event assignment.
type SegmentedHour struct {
	Timestamp time.Time `json:"timestamp"`
	Precip    float64   `json:"precip_in"`
	EventID   int       `json:"event_id"`
	EventType Weather   `json:"event_type"`
}

// EventSegmentation annotates every hour of a series with a 1-based event ID
// and a wet/dry type. Events are maximal contiguous same-type runs: they are
// non-overlapping, cover the series exactly, and adjacent events alternate
// type by construction.
type EventSegmentation []SegmentedHour

// SegmentOptions configures Segment. The zero value is the only implemented
// policy: no merging of wet spells across short dry gaps.
type SegmentOptions struct {
	// MinDryGapHours, when non-zero, would merge wet events separated by a
	// dry run shorter than this many hours. Reserved; see
	// ErrGapMergingNotImplemented.
	MinDryGapHours int
}

// Segment partitions a validated hourly series into maximal runs of
// contiguous wet (depth > 0) or dry (depth exactly 0) hours. The running
// event counter starts at 1 and advances whenever an hour's classification
// differs from the previous hour's. The first and last events are taken
// as-is from the available data; they may truncate a real-world event at the
// series boundary.
func Segment(series HourlySeries) (EventSegmentation, error) {
	return SegmentWithOptions(series, SegmentOptions{})
}

// SegmentWithOptions is Segment with an explicit policy.
func SegmentWithOptions(series HourlySeries, opts SegmentOptions) (EventSegmentation, error) {
	if opts.MinDryGapHours != 0 {
		return nil, fmt.Errorf("%w (requested %d h)", ErrGapMergingNotImplemented, opts.MinDryGapHours)
	}

	seg := make(EventSegmentation, 0, len(series))
	eventID := 0
	var prev Weather
	for i := range series {
		if series[i].Precip == nil {
			return nil, fmt.Errorf("%w: at %s (series not validated?)",
				ErrMissingValue, series[i].Timestamp.Format(time.RFC3339))
		}
		depth := *series[i].Precip

		hour := Dry
		if depth > 0 {
			hour = Wet
		}
		if i == 0 || hour != prev {
			eventID++
			prev = hour
		}

		seg = append(seg, SegmentedHour{
			Timestamp: series[i].Timestamp,
			Precip:    depth,
			EventID:   eventID,
			EventType: hour,
		})
	}
	return seg, nil
}
