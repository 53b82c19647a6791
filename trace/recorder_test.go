/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec := NewRecorder(NewClockWithMode(ModeNanos))
	rec.StartRequest()
	rec.StartBatch()
	return rec
}

func TestRecordComputesOffsets(t *testing.T) {
	rec := newTestRecorder(t)
	base := rec.RequestStartReading()

	rec.Record(RecordArgs{
		Operation:    "getAuthor",
		Source:       "query { getAuthor { name } }",
		ParentType:   "Query",
		Type:         "Author",
		ResponseName: "getAuthor",
		Path:         Path{Field("getAuthor")},
		Start:        base.AddNs(100),
		End:          base.AddNs(700),
	})

	events := rec.Traces()
	require.Len(t, events, 1)
	require.Equal(t, int64(100), events[0].StartOffsetNs)
	require.Equal(t, int64(700), events[0].EndOffsetNs)
	require.Equal(t, "Query", events[0].ParentType)
	require.Equal(t, "getAuthor", events[0].ResponseName)
	require.False(t, events[0].IsList)
}

func TestRecordDerivesListFlag(t *testing.T) {
	rec := newTestRecorder(t)
	base := rec.RequestStartReading()

	rec.Record(RecordArgs{
		Operation:    "q",
		Type:         "[Item!]!",
		ResponseName: "items",
		Path:         Path{Field("items")},
		Start:        base,
		End:          base.AddNs(10),
	})
	require.True(t, rec.Traces()[0].IsList)
}

func TestStartBatchClearsState(t *testing.T) {
	rec := newTestRecorder(t)
	base := rec.RequestStartReading()

	rec.Record(RecordArgs{
		Operation: "q",
		Source:    "query q { f }",
		Path:      Path{Field("f")},
		Start:     base,
		End:       base.AddNs(1),
	})
	require.Len(t, rec.Traces(), 1)
	require.Len(t, rec.Operations(), 1)

	rec.StartBatch()
	require.Empty(t, rec.Traces())
	require.Empty(t, rec.Operations())
}

func TestOperationSourceFirstSightingWins(t *testing.T) {
	rec := newTestRecorder(t)
	base := rec.RequestStartReading()

	record := func(source string) {
		rec.Record(RecordArgs{
			Operation: "q",
			Source:    source,
			Path:      Path{Field("f")},
			Start:     base,
			End:       base.AddNs(1),
		})
	}
	record("query q { f }")
	record("something else entirely")

	require.Equal(t, map[string]string{"q": "query q { f }"}, rec.Operations())
}

func TestPathKeyCannotCollide(t *testing.T) {
	// "a.b" as one field name vs "a" then "b"; a name that looks like an
	// index vs an actual index.
	require.NotEqual(t,
		Path{Field("a.b")}.Key(),
		Path{Field("a"), Field("b")}.Key())
	require.NotEqual(t,
		Path{Field("items"), Field("0")}.Key(),
		Path{Field("items"), Index(0)}.Key())
	require.Equal(t,
		Path{Field("items"), Index(2), Field("id")}.Key(),
		Path{Field("items"), Index(2), Field("id")}.Key())
}

func TestPathJSONRoundTrip(t *testing.T) {
	in := Path{Field("items"), Index(2), Field("id")}
	js, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `["items", 2, "id"]`, string(js))

	var out Path
	require.NoError(t, json.Unmarshal(js, &out))
	require.Equal(t, in, out)

	require.Error(t, json.Unmarshal([]byte(`[true]`), &out))
	require.Error(t, json.Unmarshal([]byte(`[1.5]`), &out))
}
