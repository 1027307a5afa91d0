package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/precip-analytics/internal/config"
	"github.com/couchcryptid/precip-analytics/internal/domain"
	"github.com/couchcryptid/precip-analytics/internal/observability"
)

// AnalyzerOptions configures the per-station analytics.
type AnalyzerOptions struct {
	// Antecedent window attached to each published event.
	PeriodHours int
	DelayHours  int
	ThresholdIn float64

	// MinSeriesHours gates analysis until a station has enough history for
	// the antecedent window; MaxSeriesHours bounds the in-memory series.
	MinSeriesHours int
	MaxSeriesHours int
}

// OptionsFromConfig maps service configuration onto analyzer options.
func OptionsFromConfig(cfg *config.Config) AnalyzerOptions {
	return AnalyzerOptions{
		PeriodHours:    cfg.AntecedentPeriodHours,
		DelayHours:     cfg.AntecedentDelayHours,
		ThresholdIn:    cfg.WetThresholdIn,
		MinSeriesHours: cfg.MinSeriesHours,
		MaxSeriesHours: cfg.MaxSeriesHours,
	}
}

// stationState is the working memory for one station: its ordered hourly
// series, the end bound of the newest summary already published, and whether
// the series currently fails validation.
type stationState struct {
	series           domain.HourlySeries
	lastPublishedEnd time.Time
	quarantined      bool
}

// StationAnalyzer implements Analyzer. It accumulates an ordered in-memory
// hourly series per station, gates every analysis pass on the continuity
// validator, and publishes a summary for each wet/dry event once a later
// hour of the opposite type proves the event has closed. The trailing event
// of a series is always still open and is never published; deterministic
// event keys make redelivery and re-analysis idempotent downstream.
//
// Not safe for concurrent use; the pipeline processes one batch at a time.
type StationAnalyzer struct {
	opts     AnalyzerOptions
	logger   *slog.Logger
	metrics  *observability.Metrics
	stations map[string]*stationState
}

// NewStationAnalyzer creates a StationAnalyzer with empty station state.
func NewStationAnalyzer(opts AnalyzerOptions, logger *slog.Logger, metrics *observability.Metrics) *StationAnalyzer {
	return &StationAnalyzer{
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		stations: make(map[string]*stationState),
	}
}

// Ingest parses one observation, appends it to its station's series, and
// returns serialized summaries for any events the new hour closed.
//
// A parse failure is an error (the pipeline skips the message). A series
// that fails validation is not: the offending station is quarantined and
// produces nothing until retention trimming restores a contiguous series,
// but the observation itself is consumed. Gaps are never repaired here;
// interpolation would bias every downstream statistic.
func (a *StationAnalyzer) Ingest(ctx context.Context, raw domain.RawObservation) ([]domain.OutputEvent, error) {
	reading, err := domain.ParseRawObservation(raw)
	if err != nil {
		return nil, err
	}

	st, ok := a.stations[reading.StationID]
	if !ok {
		st = &stationState{}
		a.stations[reading.StationID] = st
		a.metrics.TrackedStations.Set(float64(len(a.stations)))
	}

	hour := domain.FloorHour(reading.Timestamp)
	if n := len(st.series); n > 0 && !hour.After(st.series[n-1].Timestamp) {
		a.metrics.StaleObservations.Inc()
		a.logger.Debug("stale observation skipped",
			"station", reading.StationID, "hour", hour, "newest", st.series[n-1].Timestamp)
		return nil, nil
	}

	st.series = append(st.series, domain.HourlyRecord{Timestamp: hour, Precip: reading.PrecipIn})
	if over := len(st.series) - a.opts.MaxSeriesHours; over > 0 {
		st.series = append(domain.HourlySeries(nil), st.series[over:]...)
	}

	if len(st.series) < a.opts.MinSeriesHours {
		return nil, nil
	}

	return a.analyze(ctx, reading.StationID, st)
}

// analyze runs the validate-segment-summarize pass for one station and
// serializes the newly closed events.
func (a *StationAnalyzer) analyze(_ context.Context, stationID string, st *stationState) ([]domain.OutputEvent, error) {
	start := time.Now()
	defer func() {
		a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	if err := domain.Validate(st.series); err != nil {
		a.metrics.ValidationFailures.WithLabelValues(validationKind(err)).Inc()
		if !st.quarantined {
			st.quarantined = true
			a.metrics.StationsQuarantined.Inc()
			a.logger.Warn("station series failed validation, quarantined",
				"station", stationID, "error", err)
		}
		return nil, nil
	}
	if st.quarantined {
		st.quarantined = false
		a.metrics.StationsQuarantined.Dec()
		a.logger.Info("station series recovered", "station", stationID)
	}

	seg, err := domain.Segment(st.series)
	if err != nil {
		return nil, fmt.Errorf("segment station %s: %w", stationID, err)
	}
	summaries := domain.Summarize(seg)

	antecedent, err := domain.Antecedent(st.series, a.opts.PeriodHours, a.opts.DelayHours, domain.Sum)
	if err != nil {
		return nil, fmt.Errorf("antecedent station %s: %w", stationID, err)
	}
	labels := domain.ClassifyWeather(antecedent, a.opts.ThresholdIn)

	newest := st.series[len(st.series)-1].Timestamp
	var outputs []domain.OutputEvent
	for _, s := range summaries {
		if !s.EndTime.Before(newest) {
			// Trailing event, still open; published once a later hour of the
			// opposite type closes it.
			continue
		}
		if !s.EndTime.After(st.lastPublishedEnd) {
			continue
		}

		out, err := domain.SerializeSummary(a.buildSummary(stationID, s, st.series, antecedent, labels))
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
		st.lastPublishedEnd = s.EndTime
	}
	return outputs, nil
}

// buildSummary tags a summary with its station and the antecedent state at
// the hour before the event began, nil when that hour predates the window.
func (a *StationAnalyzer) buildSummary(stationID string, s domain.EventSummary, series domain.HourlySeries, antecedent domain.AntecedentSeries, labels []*domain.Weather) domain.StationEventSummary {
	out := domain.StationEventSummary{StationID: stationID, EventSummary: s}
	prior := int(s.StartTime.Sub(series[0].Timestamp).Hours()) - 1
	if prior >= 0 && prior < len(antecedent) {
		out.AntecedentIn = antecedent[prior]
		out.PriorWeather = labels[prior]
	}
	return out
}

// validationKind maps a validator failure to its metric label.
func validationKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnorderedTimestamp):
		return "unordered"
	case errors.Is(err, domain.ErrDiscontinuous):
		return "discontinuous"
	case errors.Is(err, domain.ErrMissingValue):
		return "missing_value"
	default:
		return "unknown"
	}
}
