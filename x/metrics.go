/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var (
	// Cumulative metrics.
	NumEventsRecorded = stats.Int64("graphtrace_events_recorded_total",
		"Total number of field resolution events recorded", stats.UnitDimensionless)
	NumOrphansDropped = stats.Int64("graphtrace_orphans_dropped_total",
		"Total number of trace events dropped because their parent could not be found",
		stats.UnitDimensionless)
	NumDuplicateKeys = stats.Int64("graphtrace_duplicate_keys_total",
		"Total number of trace events that collided on an identity path",
		stats.UnitDimensionless)
	NumReports = stats.Int64("graphtrace_reports_emitted_total",
		"Total number of trace reports emitted", stats.UnitDimensionless)

	allViews = []*view.View{
		{
			Name:        NumEventsRecorded.Name(),
			Measure:     NumEventsRecorded,
			Description: NumEventsRecorded.Description(),
			Aggregation: view.Count(),
		},
		{
			Name:        NumOrphansDropped.Name(),
			Measure:     NumOrphansDropped,
			Description: NumOrphansDropped.Description(),
			Aggregation: view.Count(),
		},
		{
			Name:        NumDuplicateKeys.Name(),
			Measure:     NumDuplicateKeys,
			Description: NumDuplicateKeys.Description(),
			Aggregation: view.Count(),
		},
		{
			Name:        NumReports.Name(),
			Measure:     NumReports,
			Description: NumReports.Description(),
			Aggregation: view.Count(),
		},
	}
)

// RegisterViews registers the opencensus views for all graphtrace metrics.
// Callers that want the counters exported should call this once at startup
// and hook up an exporter of their choice.
func RegisterViews() error {
	return view.Register(allViews...)
}
