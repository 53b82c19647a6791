/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"

	"github.com/graphtrace/graphtrace/trace"
	"github.com/graphtrace/graphtrace/x"
)

// Report key format: a fixed marker, the operation name, a newline, then the
// operation's source text. Stable and unique per distinct (name, source)
// pair within a batch.
const reportKeyPrefix = "# "

// Header identifies the schema a report was collected against.
type Header struct {
	Hostname           string `json:"hostname"`
	SchemaTag          string `json:"schemaTag"`
	ExecutableSchemaID string `json:"executableSchemaId"`
}

// HTTP carries the transport metadata of the traced request.
type HTTP struct {
	Method string `json:"method"`
}

// Root is the synthetic node whose children are an operation's top-level
// field trace trees.
type Root struct {
	Child []Child `json:"child,omitempty"`
}

// Trace is the timing bundle for one operation of the batch.
type Trace struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	DurationNs    int64  `json:"durationNs"`
	EndTime       string `json:"endTime"`
	HTTP          HTTP   `json:"http"`
	Root          *Root  `json:"root"`
	StartTime     string `json:"startTime"`
}

// QueryTraces wraps the traces reported under one report key.
type QueryTraces struct {
	Trace []*Trace `json:"trace"`
}

// A Report is the envelope emitted once per batch: a header plus one trace
// bundle per operation executed since the last StartBatch.
type Report struct {
	Header         Header                  `json:"header"`
	TracesPerQuery map[string]*QueryTraces `json:"tracesPerQuery"`
}

// Options are the caller-supplied identity fields of a report. Method
// defaults to POST when empty.
type Options struct {
	Hostname      string
	SchemaTag     string
	SchemaID      string
	ClientName    string
	ClientVersion string
	Method        string
}

// Emit builds the report for everything rec has recorded since its last
// StartBatch, ending the measured window now. The returned Stats surface
// orphan drops and identity collisions encountered during tree
// reconstruction; a caller forwarding the report should check them rather
// than assume the report is complete.
func Emit(rec *trace.Recorder, opts Options) (*Report, Stats) {
	return EmitAt(rec, rec.Clock().Now(), time.Now(), opts)
}

// EmitAt is Emit with the end instant supplied by the caller: now is the
// Clock Reading closing the duration measurement and endTime the wall clock
// value formatted into the report.
func EmitAt(rec *trace.Recorder, now trace.Reading, endTime time.Time, opts Options) (*Report, Stats) {
	x.AssertTruef(rec.Started(), "graphtrace: Emit called before StartRequest")

	method := opts.Method
	if method == "" {
		method = "POST"
	}

	trees, st := BuildTrees(rec.Traces())
	durationNs := rec.Clock().ElapsedNs(rec.RequestStartReading(), now)
	startTime := rec.RequestStartTime().Format(time.RFC3339Nano)

	perQuery := make(map[string]*QueryTraces, len(trees))
	for _, op := range trees {
		children := make([]Child, 0, len(op.Roots))
		for _, root := range op.Roots {
			children = append(children, root)
		}
		t := &Trace{
			ClientName:    opts.ClientName,
			ClientVersion: opts.ClientVersion,
			DurationNs:    durationNs,
			EndTime:       endTime.Format(time.RFC3339Nano),
			HTTP:          HTTP{Method: method},
			Root:          &Root{Child: children},
			StartTime:     startTime,
		}
		key := reportKeyPrefix + op.Operation + "\n" + rec.Operations()[op.Operation]
		perQuery[key] = &QueryTraces{Trace: []*Trace{t}}
	}

	stats.Record(context.Background(), x.NumReports.M(1))
	return &Report{
		Header: Header{
			Hostname:           opts.Hostname,
			SchemaTag:          opts.SchemaTag,
			ExecutableSchemaID: opts.SchemaID,
		},
		TracesPerQuery: perQuery,
	}, st
}

// WriteTo writes the report as unindented JSON to w and returns the number
// of bytes written and error, if any.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	if r == nil {
		i, err := w.Write([]byte(`{"header":{},"tracesPerQuery":{}}`))
		return int64(i), err
	}

	js, err := json.Marshal(r)
	if err != nil {
		msg := "Internal error - failed to marshal a valid JSON report"
		glog.Errorf("%+v", errors.Wrap(err, msg))
		return 0, errors.Wrap(err, msg)
	}

	i, err := w.Write(js)
	return int64(i), err
}
