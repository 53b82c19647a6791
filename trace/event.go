/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package trace

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Segment is one step in a response path: either the response name of a
// field, or the zero-based position of an element inside a list.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Field returns a Segment addressing a named field.
func Field(name string) Segment {
	return Segment{name: name}
}

// Index returns a Segment addressing a list element.
func Index(i int) Segment {
	return Segment{index: i, isIndex: true}
}

// IsIndex reports whether s addresses a list element rather than a field.
func (s Segment) IsIndex() bool {
	return s.isIndex
}

// Name returns the field name; empty for index segments.
func (s Segment) Name() string {
	return s.name
}

// Pos returns the list position; zero for field segments.
func (s Segment) Pos() int {
	return s.index
}

func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// MarshalJSON renders a Segment the way GraphQL response paths are rendered:
// field segments as strings, index segments as numbers.
func (s Segment) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return json.Marshal(s.index)
	}
	return json.Marshal(s.name)
}

// UnmarshalJSON accepts a JSON string (field) or number (index).
func (s *Segment) UnmarshalJSON(b []byte) error {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*s = Field(v)
	case json.Number:
		i, err := strconv.Atoi(v.String())
		if err != nil {
			return errors.Wrapf(err, "path index %q is not an integer", v.String())
		}
		*s = Index(i)
	default:
		return errors.Errorf("path segment must be a string or an integer, got %s", string(b))
	}
	return nil
}

// A Path is a field's position within the result tree of one operation.
type Path []Segment

// Key returns a string that uniquely identifies the path. Field names are
// length-prefixed so the encoding can't collide for distinct segment
// sequences, no matter which characters a field name contains.
func (p Path) Key() string {
	var b strings.Builder
	for _, s := range p {
		if s.isIndex {
			b.WriteByte('i')
			b.WriteString(strconv.Itoa(s.index))
			continue
		}
		b.WriteByte('f')
		b.WriteString(strconv.Itoa(len(s.name)))
		b.WriteByte(':')
		b.WriteString(s.name)
	}
	return b.String()
}

func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, s := range p {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ".")
}

// A FieldEvent records the timing of one field resolution. Offsets are
// nanoseconds elapsed since the request start instant of the batch the event
// was recorded in.
type FieldEvent struct {
	Operation     string
	Path          Path
	ParentType    string
	Type          string
	ResponseName  string
	IsList        bool
	StartOffsetNs int64
	EndOffsetNs   int64
}
