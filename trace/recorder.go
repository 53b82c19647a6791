/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package trace

import (
	"context"
	"time"

	"github.com/golang/glog"
	"go.opencensus.io/stats"

	"github.com/graphtrace/graphtrace/x"
)

// RecordArgs carries everything the execution engine knows about one resolved
// field: its operation, where it sits in the result tree, its types, and the
// pair of Clock Readings bracketing the resolver call.
type RecordArgs struct {
	Operation    string
	Source       string
	ParentType   string
	Type         string
	ResponseName string
	Path         Path
	Start        Reading
	End          Reading
}

// A Recorder accumulates the field resolution events of one request batch.
// It is exclusively owned by the batch in flight: there is no internal
// locking, so concurrent batches each need their own Recorder.
type Recorder struct {
	clock *Clock

	requestStart     Reading
	requestStartTime time.Time
	started          bool
	inBatch          bool

	events     []FieldEvent
	operations map[string]string
}

// NewRecorder returns a Recorder that measures offsets with clock.
func NewRecorder(clock *Clock) *Recorder {
	return &Recorder{clock: clock}
}

// Clock returns the Clock the Recorder was built with.
func (r *Recorder) Clock() *Clock {
	return r.clock
}

// StartRequest captures the batch's request start: both the wall clock
// timestamp used for report formatting and the Clock Reading all event
// offsets are measured from.
func (r *Recorder) StartRequest() {
	r.requestStart = r.clock.Now()
	r.requestStartTime = time.Now()
	r.started = true
}

// StartBatch clears the event list and the operation map. It must be called
// before recording events for a new batch; skipping it leaks the previous
// batch's events into the next report.
func (r *Recorder) StartBatch() {
	r.events = r.events[:0]
	r.operations = make(map[string]string)
	r.inBatch = true
}

// Record converts the Readings in args to nanosecond offsets relative to the
// request start and appends a FieldEvent. The first sighting of an operation
// name also stores its source text; repeats are idempotent.
//
// Calling Record before StartRequest and StartBatch is a programming error
// and fails fast.
func (r *Recorder) Record(args RecordArgs) {
	x.AssertTruef(r.started, "graphtrace: Record called before StartRequest")
	x.AssertTruef(r.inBatch, "graphtrace: Record called before StartBatch")

	if _, ok := r.operations[args.Operation]; !ok {
		r.operations[args.Operation] = args.Source
	}

	r.events = append(r.events, FieldEvent{
		Operation:     args.Operation,
		Path:          args.Path,
		ParentType:    args.ParentType,
		Type:          args.Type,
		ResponseName:  args.ResponseName,
		IsList:        IsListSignature(args.Type),
		StartOffsetNs: r.clock.ElapsedNs(r.requestStart, args.Start),
		EndOffsetNs:   r.clock.ElapsedNs(r.requestStart, args.End),
	})
	stats.Record(context.Background(), x.NumEventsRecorded.M(1))

	if glog.V(3) {
		glog.Infof("recorded field %s at %s for operation %q",
			args.ResponseName, args.Path, args.Operation)
	}
}

// Traces returns the events recorded since the last StartBatch, in the order
// the fields were resolved.
func (r *Recorder) Traces() []FieldEvent {
	return r.events
}

// Operations returns the operation name to source text mapping for the
// current batch.
func (r *Recorder) Operations() map[string]string {
	return r.operations
}

// RequestStartReading returns the Clock Reading captured by StartRequest.
func (r *Recorder) RequestStartReading() Reading {
	return r.requestStart
}

// RequestStartTime returns the wall clock timestamp captured by StartRequest.
func (r *Recorder) RequestStartTime() time.Time {
	return r.requestStartTime
}

// Started reports whether StartRequest has been called.
func (r *Recorder) Started() bool {
	return r.started
}
