package domain

import (
	"fmt"
	"maps"
	"strconv"
	"time"
)

// Weather is the wet/dry vocabulary shared by event segmentation and
// antecedent-threshold classification.
type Weather string

const (
	Wet Weather = "wet"
	Dry Weather = "dry"
)

// ClassifyWeather derives one label per timestamp from an antecedent series:
// Wet when the aggregate meets or exceeds the threshold (>=, so an aggregate
// exactly at the threshold is Wet), Dry otherwise. A nil aggregate yields a
// nil label; undefined never defaults to Dry.
func ClassifyWeather(antecedent AntecedentSeries, threshold float64) []*Weather {
	labels := make([]*Weather, len(antecedent))
	for i, v := range antecedent {
		if v == nil {
			continue
		}
		w := Dry
		if *v >= threshold {
			w = Wet
		}
		labels[i] = &w
	}
	return labels
}

// Sample is one row of an arbitrary tabular dataset to be annotated with
// weather state: a timestamp to floor/join on plus opaque named columns.
type Sample struct {
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// AppendOptions configures AppendWeather. ColumnPrefix defaults to
// "precip_"; the antecedent column is named prefix+period (e.g. "precip_48")
// and the label column prefix+period+"_weather". A nil Reducer means Sum.
type AppendOptions struct {
	PeriodHours  int
	DelayHours   int
	ThresholdIn  float64
	ColumnPrefix string
	Reducer      Reducer
}

// AntecedentColumn returns the derived name of the antecedent column.
func (o AppendOptions) AntecedentColumn() string {
	prefix := o.ColumnPrefix
	if prefix == "" {
		prefix = "precip_"
	}
	return prefix + strconv.Itoa(o.PeriodHours)
}

// WeatherColumn returns the derived name of the weather label column.
func (o AppendOptions) WeatherColumn() string {
	return o.AntecedentColumn() + "_weather"
}

// JoinDiagnostic summarizes join coverage for one AppendWeather call.
// Gaps are per-row conditions, not failures; callers decide whether the
// coverage is acceptable.
type JoinDiagnostic struct {
	Rows                int `json:"rows"`
	Matched             int `json:"matched"`
	UnmatchedHour       int `json:"unmatched_hour"`
	UndefinedAntecedent int `json:"undefined_antecedent"`
}

// AppendWeather annotates a copy of samples with two columns derived from the
// hourly series: the antecedent aggregate for the configured window and its
// wet/dry classification. Each sample's timestamp is floored to the hour and
// joined against the series; rows whose hour has no match, or whose
// antecedent is still undefined, get nil values in both columns and are
// counted in the diagnostic. Inputs are not mutated.
//
// The series must have passed Validate.
func AppendWeather(samples []Sample, series HourlySeries, opts AppendOptions) ([]Sample, JoinDiagnostic, error) {
	antecedent, err := Antecedent(series, opts.PeriodHours, opts.DelayHours, opts.Reducer)
	if err != nil {
		return nil, JoinDiagnostic{}, fmt.Errorf("append weather: %w", err)
	}
	labels := ClassifyWeather(antecedent, opts.ThresholdIn)

	// Keyed by Unix seconds so equal instants join regardless of the
	// timezone the two datasets carry.
	byHour := make(map[int64]int, len(series))
	for i := range series {
		byHour[series[i].Timestamp.Unix()] = i
	}

	antCol := opts.AntecedentColumn()
	wxCol := opts.WeatherColumn()

	diag := JoinDiagnostic{Rows: len(samples)}
	out := make([]Sample, len(samples))
	for i := range samples {
		fields := make(map[string]any, len(samples[i].Fields)+2)
		maps.Copy(fields, samples[i].Fields)

		var ant *float64
		var wx *Weather
		idx, ok := byHour[FloorHour(samples[i].Timestamp).Unix()]
		switch {
		case !ok:
			diag.UnmatchedHour++
		case antecedent[idx] == nil:
			diag.UndefinedAntecedent++
		default:
			ant = antecedent[idx]
			wx = labels[idx]
			diag.Matched++
		}
		fields[antCol] = ant
		fields[wxCol] = wx

		out[i] = Sample{Timestamp: samples[i].Timestamp, Fields: fields}
	}
	return out, diag, nil
}
