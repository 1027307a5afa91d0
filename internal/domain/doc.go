// Package domain models hourly rain-gauge precipitation series and the
// storm/dry event analytics computed from them.
//
// # Data Source
//
// Hourly observations originate from the gauge network's collector service,
// which polls station APIs, normalizes readings to depth per hour, and
// publishes each observation as flat JSON to the Kafka source topic
// (station_id, timestamp, precip_in). The analytics here operate on an
// in-memory, already-loaded series; retrieval and storage live in other
// services.
//
// # Series Conventions
//
// Timestamps:
//
//	One record per whole hour, strictly increasing, single consistent
//	timezone per series. A daylight-saving jump shows up as a one-hour gap
//	or duplicate and is rejected by Validate rather than papered over.
//
// Depth:
//
//	Precipitation depth per hour. The source network reports inches, but the
//	analytics treat the unit opaquely; thresholds are in the caller's unit.
//	A nil depth means the gauge reported nothing for that hour. Validate
//	rejects nil; nothing downstream repairs or interpolates it, because any
//	repair would bias the antecedent and event statistics.
//
// # Antecedent Windows
//
// The antecedent aggregate at index i covers the trailing window
// [i-delay-period+1, i-delay] of the hourly series: period hours wide,
// shifted delay hours into the past. Hours with insufficient history get a
// nil aggregate. The first period+delay-1 entries of every antecedent series
// are therefore nil; that is the contract, not an error.
//
// # Wet/Dry Classification
//
// Two rules share the Wet/Dry vocabulary:
//
//	Hour rule (segmentation):  an hour is Wet iff its depth is > 0.
//	                           Exactly 0 is always Dry.
//	Window rule (weather):     a timestamp is Wet iff its antecedent
//	                           aggregate is >= the configured threshold.
//	                           A nil aggregate yields a nil label, never Dry.
//
// Events are maximal contiguous runs of same-classified hours, numbered from
// 1 in time order. Adjacent events alternate type by construction. The first
// and last events of a series may be truncated views of real-world events;
// they are reported as-is.
//
// # ID Generation
//
// Published event keys are deterministic SHA-256 hashes of
// station|type|start. Reprocessing the same series produces the same key,
// which lets downstream consumers upsert idempotently (ON CONFLICT DO
// NOTHING) even when retention trimming renumbers the 1-based event IDs.
// See [EventKey].
package domain
