/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package trace

import (
	"math"
	"strings"
	"time"
)

// Mode selects the resolution a Clock reads time at.
type Mode int

const (
	// ModeNanos reads integer nanoseconds from the runtime's monotonic clock.
	ModeNanos Mode = iota
	// ModeSeconds reads float64 seconds. This is the degraded mode used when
	// the runtime can't supply a monotonic reading, e.g. readings that have
	// been stripped by crossing a process boundary. Precision is still well
	// below a millisecond.
	ModeSeconds
)

// A Reading is an opaque instant taken from a Clock. Readings are only
// comparable through Clock.ElapsedNs, and only when both come from Clocks
// running in the same Mode.
type Reading struct {
	ns   int64
	secs float64
}

// AddNs returns the Reading ns nanoseconds after r. It is mainly useful for
// replaying previously captured offsets through a Recorder.
func (r Reading) AddNs(ns int64) Reading {
	return Reading{
		ns:   r.ns + ns,
		secs: r.secs + float64(ns)/float64(time.Second),
	}
}

// ReadingFromNanos builds a Reading at an absolute nanosecond offset from the
// zero instant. Intended for tests and replay tooling, not for live timing.
func ReadingFromNanos(ns int64) Reading {
	return Reading{ns: ns, secs: float64(ns) / float64(time.Second)}
}

// A Clock produces monotonic Readings and measures the elapsed nanoseconds
// between them. The Mode is fixed when the Clock is built and never changes
// for its lifetime; mixing Readings across modes gives garbage.
type Clock struct {
	mode Mode
	base time.Time
}

// NewClock probes the platform's timing capability and returns a Clock in the
// best available mode. There is no error path: a platform without a monotonic
// source degrades to ModeSeconds rather than failing.
func NewClock() *Clock {
	mode := ModeSeconds
	// The runtime prints an " m=±<value>" suffix only when the reading
	// carries a monotonic component.
	if strings.Contains(time.Now().String(), " m=") {
		mode = ModeNanos
	}
	return NewClockWithMode(mode)
}

// NewClockWithMode returns a Clock pinned to the given mode. Live callers
// should use NewClock; this exists so the degraded path stays testable.
func NewClockWithMode(mode Mode) *Clock {
	return &Clock{mode: mode, base: time.Now()}
}

// Mode returns the resolution mode the Clock was built with.
func (c *Clock) Mode() Mode {
	return c.mode
}

// Now returns the current instant as a Reading.
func (c *Clock) Now() Reading {
	d := time.Since(c.base)
	if c.mode == ModeNanos {
		return Reading{ns: d.Nanoseconds()}
	}
	return Reading{secs: d.Seconds()}
}

// ElapsedNs returns the nanoseconds elapsed between start and end. In
// ModeNanos this is exact integer subtraction; in ModeSeconds the float
// difference is scaled by 1e9 and rounded.
func (c *Clock) ElapsedNs(start, end Reading) int64 {
	if c.mode == ModeNanos {
		return end.ns - start.ns
	}
	return int64(math.Round((end.secs - start.secs) * float64(time.Second)))
}
