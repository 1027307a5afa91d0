// Command analyze runs the analytics engine offline over CSV files: it
// validates an hourly gauge series, segments and summarizes its wet/dry
// events, and optionally annotates a sample dataset with antecedent weather
// columns. It uses the actual service domain package so the output matches
// real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/analyze \
//	  -hourly data/gauge_kaus12_hourly.csv \
//	  -station KAUS-12 \
//	  -samples data/grab_samples.csv \
//	  -out-dir out/
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/precip-analytics/internal/domain"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	hourlyIn := flag.String("hourly", "", "CSV of hourly gauge records (timestamp,precip_in)")
	station := flag.String("station", "station", "station ID used in event keys")
	samplesIn := flag.String("samples", "", "optional CSV of samples to annotate (timestamp,col...)")
	outDir := flag.String("out-dir", ".", "directory for JSON outputs")

	period := flag.Int("period", 48, "antecedent window width in hours")
	delay := flag.Int("delay", 0, "antecedent window delay in hours")
	threshold := flag.Float64("threshold", 0.1, "wet threshold in inches")
	reducerName := flag.String("reducer", "sum", "antecedent reducer: sum, max, or mean")
	prefix := flag.String("prefix", "", "column prefix for annotated samples (default precip_)")

	fixtureOut := flag.String("fixture-out", "", "optional path for a sink-message fixture")
	fixedClock := flag.String("fixed-clock", "", "RFC3339 instant for reproducible fixture headers")
	flag.Parse()

	if *hourlyIn == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -hourly")
	}

	reducer, err := reducerByName(*reducerName)
	if err != nil {
		return err
	}

	series, err := readHourlyCSV(*hourlyIn)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *hourlyIn, err)
	}
	log.Printf("hourly series: %d records", len(series))

	if err := domain.Validate(series); err != nil {
		return fmt.Errorf("series failed validation: %w", err)
	}

	seg, err := domain.Segment(series)
	if err != nil {
		return err
	}
	summaries := domain.Summarize(seg)
	log.Printf("segmented into %d events", len(summaries))

	if err := writeJSON(filepath.Join(*outDir, "segmentation.json"), seg); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, "events.json"), summaries); err != nil {
		return err
	}

	opts := domain.AppendOptions{
		PeriodHours:  *period,
		DelayHours:   *delay,
		ThresholdIn:  *threshold,
		ColumnPrefix: *prefix,
		Reducer:      reducer,
	}

	if *samplesIn != "" {
		samples, err := readSamplesCSV(*samplesIn)
		if err != nil {
			return fmt.Errorf("reading %s: %w", *samplesIn, err)
		}

		annotated, diag, err := domain.AppendWeather(samples, series, opts)
		if err != nil {
			return err
		}
		log.Printf("samples: %d rows, %d matched, %d unmatched hour, %d undefined antecedent",
			diag.Rows, diag.Matched, diag.UnmatchedHour, diag.UndefinedAntecedent)

		if err := writeJSON(filepath.Join(*outDir, "samples_weather.json"), annotated); err != nil {
			return err
		}
	}

	if *fixtureOut != "" {
		if err := writeFixture(*fixtureOut, *fixedClock, *station, series, summaries, opts); err != nil {
			return err
		}
	}

	return nil
}

func reducerByName(name string) (domain.Reducer, error) {
	switch name {
	case "sum":
		return domain.Sum, nil
	case "max":
		return domain.Max, nil
	case "mean":
		return domain.Mean, nil
	default:
		return nil, fmt.Errorf("unknown reducer %q (want sum, max, or mean)", name)
	}
}

// readHourlyCSV parses a two-column CSV (timestamp,precip_in) into an hourly
// series. An empty precip_in cell is a missing value, kept as nil so the
// validator reports it.
func readHourlyCSV(path string) (domain.HourlySeries, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	var series domain.HourlySeries
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want 2 columns, got %d", i+2, len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q: %w", i+2, row[0], err)
		}

		var depth *float64
		if row[1] != "" {
			v, err := strconv.ParseFloat(row[1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad precip_in %q: %w", i+2, row[1], err)
			}
			depth = &v
		}
		series = append(series, domain.HourlyRecord{Timestamp: ts, Precip: depth})
	}
	return series, nil
}

// readSamplesCSV parses an arbitrary CSV whose first column is an RFC3339
// timestamp. Remaining columns become named fields, kept as floats where they
// parse and strings otherwise.
func readSamplesCSV(path string) ([]domain.Sample, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	header := rows[0]
	if len(header) < 1 {
		return nil, fmt.Errorf("header must have at least a timestamp column")
	}

	var samples []domain.Sample
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: want %d columns, got %d", i+2, len(header), len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q: %w", i+2, row[0], err)
		}

		fields := make(map[string]any, len(header)-1)
		for c := 1; c < len(header); c++ {
			if v, err := strconv.ParseFloat(row[c], 64); err == nil {
				fields[header[c]] = v
			} else {
				fields[header[c]] = row[c]
			}
		}
		samples = append(samples, domain.Sample{Timestamp: ts, Fields: fields})
	}
	return samples, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// fixtureMessage is one serialized sink message in a test fixture.
type fixtureMessage struct {
	Key     string                     `json:"key"`
	Value   domain.StationEventSummary `json:"value"`
	Headers map[string]string          `json:"headers"`
}

// writeFixture serializes every event summary the way the service would
// publish it. A fixed clock makes the computed_at header reproducible across
// regenerations.
func writeFixture(path, fixedAt, station string, series domain.HourlySeries, summaries []domain.EventSummary, opts domain.AppendOptions) error {
	if fixedAt != "" {
		at, err := time.Parse(time.RFC3339, fixedAt)
		if err != nil {
			return fmt.Errorf("bad -fixed-clock %q: %w", fixedAt, err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(at))
		defer domain.SetClock(nil)
	}

	antecedent, err := domain.Antecedent(series, opts.PeriodHours, opts.DelayHours, opts.Reducer)
	if err != nil {
		return err
	}
	labels := domain.ClassifyWeather(antecedent, opts.ThresholdIn)

	msgs := make([]fixtureMessage, 0, len(summaries))
	for _, s := range summaries {
		ses := domain.StationEventSummary{StationID: station, EventSummary: s}
		if prior := int(s.StartTime.Sub(series[0].Timestamp).Hours()) - 1; prior >= 0 {
			ses.AntecedentIn = antecedent[prior]
			ses.PriorWeather = labels[prior]
		}

		out, err := domain.SerializeSummary(ses)
		if err != nil {
			return err
		}
		msgs = append(msgs, fixtureMessage{
			Key:     string(out.Key),
			Value:   ses,
			Headers: out.Headers,
		})
	}

	if err := writeJSON(path, msgs); err != nil {
		return err
	}
	log.Printf("wrote %d fixture messages to %s", len(msgs), path)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}
