// Package testfixtures supplies deterministic clocks, identifiers, records and
// fully wired services for tests across packages.
package testfixtures

import (
	"fmt"
	"sync"
	"time"
)

// ConferenceDay is the first day of the fixture conference, at local midnight UTC.
var ConferenceDay = time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

// At returns ConferenceDay plus the given clock time.
func At(hour, minute int) time.Time {
	return ConferenceDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Clock is a manually advanced time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or the morning before ConferenceDay when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ConferenceDay.Add(-16 * time.Hour)
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Sequence yields prefix-1, prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequence(prefix string) *Sequence {
	if prefix == "" {
		prefix = "id"
	}
	return &Sequence{prefix: prefix}
}

func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
