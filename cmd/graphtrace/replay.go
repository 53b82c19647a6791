/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/graphtrace/graphtrace/report"
	"github.com/graphtrace/graphtrace/trace"
	"github.com/graphtrace/graphtrace/x"
)

// Replay is the sub-command invoked when running "graphtrace replay". It
// replays a JSON lines field event log through a Recorder and writes the
// resulting report to stdout. Useful for debugging an engine integration
// from a captured event dump.
var Replay x.SubCommand

func init() {
	Replay.Cmd = &cobra.Command{
		Use:   "replay",
		Short: "Replay a field event log and emit its trace report",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runReplay(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		},
		Annotations: map[string]string{"group": "tool"},
	}
	Replay.Cmd.SetHelpTemplate(x.NonRootTemplate)
	Replay.EnvPrefix = "GRAPHTRACE_REPLAY"

	flag := Replay.Cmd.Flags()
	flag.String("input", "", "Location of the JSON lines field event log to replay")
	flag.String("hostname", "", "Hostname reported in the report header")
	flag.String("schema-tag", "", "Schema tag reported in the report header")
	flag.String("schema-id", "",
		"Executable schema id reported in the report header. A fresh UUID is used when empty.")
	flag.String("client-name", "", "Client name reported per trace")
	flag.String("client-version", "", "Client version reported per trace")
	flag.String("method", "POST", "HTTP method reported per trace")
	x.Check(Replay.Cmd.MarkFlagRequired("input"))
}

// logEntry is one line of the event log: a single field resolution with its
// offsets in nanoseconds from the request start.
type logEntry struct {
	Operation    string     `json:"operation"`
	Source       string     `json:"source,omitempty"`
	ParentType   string     `json:"parentType"`
	Type         string     `json:"type"`
	ResponseName string     `json:"responseName"`
	Path         trace.Path `json:"path"`
	StartNs      int64      `json:"startNs"`
	EndNs        int64      `json:"endNs"`
}

// replayEvents records every event in r, carrying the logged offsets over
// into the recorder's timebase.
func replayEvents(r io.Reader, rec *trace.Recorder) error {
	base := rec.RequestStartReading()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)

	line := 0
	for sc.Scan() {
		line++
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var e logEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return errors.Wrapf(err, "couldn't parse event log line %d", line)
		}
		rec.Record(trace.RecordArgs{
			Operation:    e.Operation,
			Source:       e.Source,
			ParentType:   e.ParentType,
			Type:         e.Type,
			ResponseName: e.ResponseName,
			Path:         e.Path,
			Start:        base.AddNs(e.StartNs),
			End:          base.AddNs(e.EndNs),
		})
	}
	return errors.Wrapf(sc.Err(), "reading event log")
}

func runReplay() error {
	f, err := os.Open(Replay.Conf.GetString("input"))
	if err != nil {
		return errors.Wrapf(err, "couldn't open event log")
	}
	defer f.Close()

	rec := trace.NewRecorder(trace.NewClock())
	rec.StartRequest()
	rec.StartBatch()
	if err := replayEvents(f, rec); err != nil {
		return err
	}

	schemaID := Replay.Conf.GetString("schema-id")
	if schemaID == "" {
		schemaID = uuid.New().String()
	}
	rep, st := report.Emit(rec, report.Options{
		Hostname:      Replay.Conf.GetString("hostname"),
		SchemaTag:     Replay.Conf.GetString("schema-tag"),
		SchemaID:      schemaID,
		ClientName:    Replay.Conf.GetString("client-name"),
		ClientVersion: Replay.Conf.GetString("client-version"),
		Method:        Replay.Conf.GetString("method"),
	})
	if st.OrphansDropped > 0 || st.DuplicateKeys > 0 {
		glog.Warningf("report built from malformed events: %d orphans dropped, %d identity collisions",
			st.OrphansDropped, st.DuplicateKeys)
	}

	if _, err := rep.WriteTo(os.Stdout); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
