package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validator failure kinds. Callers match with errors.Is; the wrapped message
// carries the offending timestamp or gap so the series can be diagnosed
// without re-running.
var (
	// ErrUnorderedTimestamp reports a timestamp that is not strictly greater
	// than its predecessor (out of order or duplicated).
	ErrUnorderedTimestamp = errors.New("unordered or duplicate timestamp")

	// ErrDiscontinuous reports consecutive records that are not exactly one
	// hour apart.
	ErrDiscontinuous = errors.New("discontinuous series")

	// ErrMissingValue reports records with a nil precipitation depth.
	ErrMissingValue = errors.New("missing precipitation value")
)

// Validate confirms a series is gap-free, duplicate-free, and complete:
// strictly increasing timestamps, exactly one hour between consecutive
// records, no nil depths. It is the mandatory gate before Antecedent and
// Segment; both assume a validated series and do not re-check.
//
// Checks run in order and the first failing kind is returned. Nothing is
// repaired: interpolation or row dropping would bias every downstream
// statistic, so repair is left to callers with domain knowledge.
func Validate(series HourlySeries) error {
	for i := 1; i < len(series); i++ {
		if !series[i].Timestamp.After(series[i-1].Timestamp) {
			return fmt.Errorf("%w: record %d at %s does not follow %s",
				ErrUnorderedTimestamp, i,
				series[i].Timestamp.Format(time.RFC3339),
				series[i-1].Timestamp.Format(time.RFC3339))
		}
	}

	for i := 1; i < len(series); i++ {
		step := series[i].Timestamp.Sub(series[i-1].Timestamp)
		if step != time.Hour {
			return fmt.Errorf("%w: %s gap between %s and %s (record %d)",
				ErrDiscontinuous, step,
				series[i-1].Timestamp.Format(time.RFC3339),
				series[i].Timestamp.Format(time.RFC3339), i)
		}
	}

	var missing []string
	for i := range series {
		if series[i].Precip == nil {
			missing = append(missing, series[i].Timestamp.Format(time.RFC3339))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %d record(s) at %s",
			ErrMissingValue, len(missing), strings.Join(missing, ", "))
	}

	return nil
}
