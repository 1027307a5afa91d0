package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HourlyRecord is one gauge observation: a depth of precipitation for the
// hour starting at Timestamp. Precip is a pointer so a missing reading is
// representable; Validate rejects it before any windowed computation runs.
type HourlyRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Precip    *float64  `json:"precip_in"`
}

// HourlySeries is an ordered hourly precipitation series for one station.
// All analytics receive it read-only and produce fresh derived values.
type HourlySeries []HourlyRecord

// RawObservation represents an unprocessed message from the source topic.
type RawObservation struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GaugeReading is the flat JSON payload published by the collector service.
type GaugeReading struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	PrecipIn  *float64  `json:"precip_in"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseRawObservation deserializes a RawObservation's value into a GaugeReading.
func ParseRawObservation(raw RawObservation) (GaugeReading, error) {
	var r GaugeReading
	if err := json.Unmarshal(raw.Value, &r); err != nil {
		return GaugeReading{}, fmt.Errorf("parse raw observation: %w", err)
	}
	if r.StationID == "" {
		return GaugeReading{}, errors.New("parse raw observation: missing station_id")
	}
	if r.Timestamp.IsZero() {
		return GaugeReading{}, errors.New("parse raw observation: missing timestamp")
	}
	return r, nil
}

// FloorHour truncates a timestamp to the start of its containing hour,
// preserving the caller's timezone. Used as the join key between sub-hourly
// sample data and the hourly series.
func FloorHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}
