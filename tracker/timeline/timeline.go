// CLAUDE:SUMMARY Defines ProfileHeader, XPEvent, the immutable Timeline, and CanvasSnapshot.
// Package timeline defines the values produced by an xptrail extraction.
// These are the public contract: collaborators (tables, CSV export, chart
// renderers, MCP/HTTP surfaces) import this package to consume results.
package timeline

import (
	"encoding/json"
	"slices"
	"time"
)

// ProfileHeader identifies the observed account and its declared UTC offset.
type ProfileHeader struct {
	DisplayName      string `json:"display_name"`
	UTCOffsetMinutes int    `json:"utc_offset_minutes"`
}

// Offset returns the declared offset as a duration.
func (h ProfileHeader) Offset() time.Duration {
	return time.Duration(h.UTCOffsetMinutes) * time.Minute
}

// XPEvent is a single XP gain. UTC is the canonical sort key, Local is for
// display only.
type XPEvent struct {
	UTC   time.Time `json:"timestamp_utc"`
	Local time.Time `json:"timestamp_local"`
	XP    int       `json:"xp"`
}

// Timeline is the ordered, deduplicated event sequence of one profile.
// It is immutable once built: Events returns a copy.
type Timeline struct {
	profileName string
	events      []XPEvent
	capturedAt  time.Time
}

// New builds a Timeline from events that are already sorted and
// deduplicated. The slice is copied.
func New(profileName string, events []XPEvent, capturedAt time.Time) *Timeline {
	return &Timeline{
		profileName: profileName,
		events:      slices.Clone(events),
		capturedAt:  capturedAt,
	}
}

func (t *Timeline) ProfileName() string   { return t.profileName }
func (t *Timeline) CapturedAt() time.Time { return t.capturedAt }
func (t *Timeline) Len() int              { return len(t.events) }

// Events returns a copy of the events, ascending by UTC.
func (t *Timeline) Events() []XPEvent {
	return slices.Clone(t.events)
}

// Summary describes a timeline at a glance.
type Summary struct {
	ProfileName string        `json:"profile_name"`
	EventCount  int           `json:"event_count"`
	TotalXP     int           `json:"total_xp"`
	First       time.Time     `json:"first,omitzero"`
	Last        time.Time     `json:"last,omitzero"`
	Span        time.Duration `json:"span_ns"`
}

// Summary computes the timeline summary. First/Last are zero for an empty
// timeline.
func (t *Timeline) Summary() Summary {
	s := Summary{ProfileName: t.profileName, EventCount: len(t.events)}
	for _, e := range t.events {
		s.TotalXP += e.XP
	}
	if n := len(t.events); n > 0 {
		s.First = t.events[0].UTC
		s.Last = t.events[n-1].UTC
		s.Span = s.Last.Sub(s.First)
	}
	return s
}

type timelineJSON struct {
	ProfileName string    `json:"profile_name"`
	CapturedAt  time.Time `json:"captured_at"`
	Summary     Summary   `json:"summary"`
	Events      []XPEvent `json:"events"`
}

// MarshalJSON renders the timeline with its summary.
func (t *Timeline) MarshalJSON() ([]byte, error) {
	events := t.events
	if events == nil {
		events = []XPEvent{}
	}
	return json.Marshal(timelineJSON{
		ProfileName: t.profileName,
		CapturedAt:  t.capturedAt,
		Summary:     t.Summary(),
		Events:      events,
	})
}

// CanvasSnapshot is the bitmap captured from the page's history widget.
type CanvasSnapshot struct {
	Bytes    []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// MIMETypePNG is the only snapshot encoding produced.
const MIMETypePNG = "image/png"
