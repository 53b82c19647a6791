/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/graphtrace/graphtrace/trace"
)

var testOpts = Options{
	Hostname:      "alpha1",
	SchemaTag:     "current",
	SchemaID:      "schema-1",
	ClientName:    "test-client",
	ClientVersion: "0.1",
}

func record(rec *trace.Recorder, op, source, parentType, typ, name string,
	p trace.Path, startNs, endNs int64) {
	base := rec.RequestStartReading()
	rec.Record(trace.RecordArgs{
		Operation:    op,
		Source:       source,
		ParentType:   parentType,
		Type:         typ,
		ResponseName: name,
		Path:         p,
		Start:        base.AddNs(startNs),
		End:          base.AddNs(endNs),
	})
}

func TestEmitSingleScalarField(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "op", "query { name }", "Query", "String", "name",
		path("name"), 0, 500)

	endTime := time.Date(2026, 8, 29, 10, 0, 1, 0, time.UTC)
	rep, st := EmitAt(rec, rec.RequestStartReading().AddNs(1500), endTime, testOpts)
	require.Equal(t, Stats{}, st)

	require.Equal(t, Header{
		Hostname:           "alpha1",
		SchemaTag:          "current",
		ExecutableSchemaID: "schema-1",
	}, rep.Header)

	require.Len(t, rep.TracesPerQuery, 1)
	qt, ok := rep.TracesPerQuery["# op\nquery { name }"]
	require.True(t, ok)
	require.Len(t, qt.Trace, 1)

	tr := qt.Trace[0]
	require.Equal(t, "test-client", tr.ClientName)
	require.Equal(t, "0.1", tr.ClientVersion)
	require.Equal(t, int64(1500), tr.DurationNs)
	require.Equal(t, "POST", tr.HTTP.Method)
	require.Equal(t, endTime.Format(time.RFC3339Nano), tr.EndTime)

	_, err := time.Parse(time.RFC3339Nano, tr.StartTime)
	require.NoError(t, err)

	require.Len(t, tr.Root.Child, 1)
	node := tr.Root.Child[0].(*Node)
	require.Equal(t, "name", node.ResponseName)
	require.Equal(t, int64(0), node.StartTime)
	require.Equal(t, int64(500), node.EndTime)
	require.Empty(t, node.Child)
}

func TestEmitListFieldWithIndexGroups(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "op", "query { items { id } }", "Query", "[Item]", "items",
		path("items"), 0, 1000)
	record(rec, "op", "query { items { id } }", "Item", "ID", "id",
		path("items", 0, "id"), 100, 200)
	record(rec, "op", "query { items { id } }", "Item", "ID", "id",
		path("items", 1, "id"), 300, 400)

	rep, st := EmitAt(rec, rec.RequestStartReading().AddNs(2000), time.Now(), testOpts)
	require.Equal(t, Stats{}, st)

	qt := rep.TracesPerQuery["# op\nquery { items { id } }"]
	require.NotNil(t, qt)
	require.Len(t, qt.Trace[0].Root.Child, 1)

	items := qt.Trace[0].Root.Child[0].(*Node)
	require.Equal(t, "items", items.ResponseName)
	require.Len(t, items.Child, 2)
	for i, c := range items.Child {
		g := c.(*IndexGroup)
		require.Equal(t, i, g.Index)
		require.Len(t, g.Child, 1)
		require.Equal(t, "id", g.Child[0].(*Node).ResponseName)
	}
}

func TestEmitSeparatesOperations(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "A", "query A { a }", "Query", "String", "a", path("a"), 0, 100)
	record(rec, "B", "query B { b }", "Query", "String", "b", path("b"), 100, 200)

	rep, _ := EmitAt(rec, rec.RequestStartReading().AddNs(300), time.Now(), testOpts)
	require.Len(t, rep.TracesPerQuery, 2)

	a := rep.TracesPerQuery["# A\nquery A { a }"]
	require.NotNil(t, a)
	require.Equal(t, "a", a.Trace[0].Root.Child[0].(*Node).ResponseName)

	b := rep.TracesPerQuery["# B\nquery B { b }"]
	require.NotNil(t, b)
	require.Equal(t, "b", b.Trace[0].Root.Child[0].(*Node).ResponseName)
}

func TestEmitIsIdempotentAcrossBatches(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	endTime := time.Date(2026, 8, 29, 10, 0, 1, 0, time.UTC)
	now := rec.RequestStartReading().AddNs(5000)

	runBatch := func() *Report {
		rec.StartBatch()
		record(rec, "op", "query { items { id } }", "Query", "[Item]", "items",
			path("items"), 0, 1000)
		record(rec, "op", "query { items { id } }", "Item", "ID", "id",
			path("items", 0, "id"), 100, 200)
		rep, st := EmitAt(rec, now, endTime, testOpts)
		require.Equal(t, Stats{}, st)
		return rep
	}

	require.Empty(t, cmp.Diff(runBatch(), runBatch()))
}

func TestEmitSurfacesOrphans(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "op", "query { ok }", "Query", "String", "ok", path("ok"), 0, 100)
	record(rec, "op", "query { ok }", "Gone", "String", "child",
		path("gone", "child"), 10, 20)

	rep, st := EmitAt(rec, rec.RequestStartReading().AddNs(200), time.Now(), testOpts)
	require.Equal(t, Stats{OrphansDropped: 1}, st)

	// The surviving tree is still emitted.
	qt := rep.TracesPerQuery["# op\nquery { ok }"]
	require.Len(t, qt.Trace[0].Root.Child, 1)
}

func TestEmitMethodOverride(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "op", "query { f }", "Query", "String", "f", path("f"), 0, 100)

	opts := testOpts
	opts.Method = "GET"
	rep, _ := EmitAt(rec, rec.RequestStartReading().AddNs(200), time.Now(), opts)
	for _, qt := range rep.TracesPerQuery {
		require.Equal(t, "GET", qt.Trace[0].HTTP.Method)
	}
}

func TestReportWriteTo(t *testing.T) {
	rec := trace.NewRecorder(trace.NewClockWithMode(trace.ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	record(rec, "op", "query { items { id } }", "Query", "[Item]", "items",
		path("items"), 0, 1000)
	record(rec, "op", "query { items { id } }", "Item", "ID", "id",
		path("items", 0, "id"), 100, 200)

	rep, _ := EmitAt(rec, rec.RequestStartReading().AddNs(2000),
		time.Date(2026, 8, 29, 10, 0, 1, 0, time.UTC), testOpts)

	var buf bytes.Buffer
	n, err := rep.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	var decoded struct {
		Header struct {
			Hostname           string `json:"hostname"`
			SchemaTag          string `json:"schemaTag"`
			ExecutableSchemaID string `json:"executableSchemaId"`
		} `json:"header"`
		TracesPerQuery map[string]struct {
			Trace []struct {
				DurationNs int64 `json:"durationNs"`
				HTTP       struct {
					Method string `json:"method"`
				} `json:"http"`
				Root struct {
					Child []struct {
						ParentType   string `json:"parentType"`
						Type         string `json:"type"`
						ResponseName string `json:"responseName"`
						StartTime    int64  `json:"startTime"`
						EndTime      int64  `json:"endTime"`
						Child        []struct {
							Index *int `json:"index"`
						} `json:"child"`
					} `json:"child"`
				} `json:"root"`
			} `json:"trace"`
		} `json:"tracesPerQuery"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Equal(t, "alpha1", decoded.Header.Hostname)
	require.Equal(t, "schema-1", decoded.Header.ExecutableSchemaID)

	qt, ok := decoded.TracesPerQuery["# op\nquery { items { id } }"]
	require.True(t, ok)
	require.Equal(t, int64(2000), qt.Trace[0].DurationNs)
	require.Equal(t, "POST", qt.Trace[0].HTTP.Method)

	require.Len(t, qt.Trace[0].Root.Child, 1)
	items := qt.Trace[0].Root.Child[0]
	require.Equal(t, "items", items.ResponseName)
	require.Equal(t, int64(0), items.StartTime)
	require.Len(t, items.Child, 1)
	require.NotNil(t, items.Child[0].Index)
	require.Equal(t, 0, *items.Child[0].Index)
}
