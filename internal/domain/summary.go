package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// EventSummary reduces one segmented event to its aggregate statistics.
// Start and end bounds are inclusive hours; duration is end-start+1.
// Dry events are summarized on equal footing with wet ones (total depth and
// peak intensity 0); filtering to one type is a caller-side projection.
type EventSummary struct {
	EventID       int       `json:"event_id"`
	EventType     Weather   `json:"event_type"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours int       `json:"duration_hours"`
	TotalDepth    float64   `json:"total_depth_in"`
	PeakIntensity float64   `json:"peak_intensity_in"`
	MeanIntensity float64   `json:"mean_intensity_in"`
}

// Summarize produces one summary per distinct event ID, ordered by start
// time. It is deterministic and idempotent: re-running on the same
// segmentation yields identical summaries.
func Summarize(seg EventSegmentation) []EventSummary {
	if len(seg) == 0 {
		return nil
	}

	var summaries []EventSummary
	depths := make([]float64, 0, len(seg))
	flush := func(start, end int) {
		depths = depths[:0]
		for i := start; i <= end; i++ {
			depths = append(depths, seg[i].Precip)
		}
		duration := end - start + 1
		total := floats.Sum(depths)
		summaries = append(summaries, EventSummary{
			EventID:       seg[start].EventID,
			EventType:     seg[start].EventType,
			StartTime:     seg[start].Timestamp,
			EndTime:       seg[end].Timestamp,
			DurationHours: duration,
			TotalDepth:    total,
			PeakIntensity: floats.Max(depths),
			MeanIntensity: total / float64(duration),
		})
	}

	runStart := 0
	for i := 1; i < len(seg); i++ {
		if seg[i].EventID != seg[runStart].EventID {
			flush(runStart, i-1)
			runStart = i
		}
	}
	flush(runStart, len(seg)-1)
	return summaries
}

// StationEventSummary is the sink-topic payload: an event summary tagged
// with its station plus the antecedent state just before the event began.
// AntecedentIn and PriorWeather are nil when the event starts too early in
// the tracked series for the configured window.
type StationEventSummary struct {
	StationID string `json:"station_id"`
	EventSummary
	AntecedentIn *float64 `json:"antecedent_in,omitempty"`
	PriorWeather *Weather `json:"prior_weather,omitempty"`
}

// EventKey produces a deterministic key from an event's identity fields.
// Deterministic keys enable idempotent upserts downstream and replay safety:
// re-analyzing the same series yields the same key even when retention
// trimming has renumbered the 1-based event IDs.
func EventKey(stationID string, s EventSummary) string {
	input := fmt.Sprintf("%s|%s|%d", stationID, s.EventType, s.StartTime.Unix())
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if stationID == "" {
		return short
	}
	return stationID + "-" + short
}

// SerializeSummary marshals a station event summary into a sink message,
// keyed by EventKey and stamped with event_type and computed_at headers.
func SerializeSummary(s StationEventSummary) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize event summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(EventKey(s.StationID, s.EventSummary)),
		Value: data,
		Headers: map[string]string{
			"event_type":  string(s.EventType),
			"computed_at": clock.Now().Format(time.RFC3339),
		},
	}, nil
}
