package timeline

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeline_EventsIsCopy(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tl := New("alice", []XPEvent{{UTC: at, Local: at, XP: 20}}, at)

	ev := tl.Events()
	ev[0].XP = 999

	if got := tl.Events()[0].XP; got != 20 {
		t.Fatalf("timeline mutated through Events(): got xp %d", got)
	}
}

func TestTimeline_Summary(t *testing.T) {
	a := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	b := a.Add(5 * time.Minute)
	tl := New("alice", []XPEvent{{UTC: a, XP: 20}, {UTC: b, XP: 15}}, b)

	s := tl.Summary()
	if s.EventCount != 2 || s.TotalXP != 35 {
		t.Fatalf("summary counts: %+v", s)
	}
	if s.Span != 5*time.Minute {
		t.Errorf("span: got %v", s.Span)
	}
	if !s.First.Equal(a) || !s.Last.Equal(b) {
		t.Errorf("first/last: got %v / %v", s.First, s.Last)
	}
}

func TestTimeline_EmptyMarshal(t *testing.T) {
	tl := New("bob", nil, time.Unix(0, 0).UTC())
	data, err := json.Marshal(tl)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Events []XPEvent `json:"events"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Events == nil || len(out.Events) != 0 {
		t.Fatalf("empty timeline should marshal events as []: %s", data)
	}
}

func TestProfileHeader_Offset(t *testing.T) {
	h := ProfileHeader{UTCOffsetMinutes: -330}
	if h.Offset() != -5*time.Hour-30*time.Minute {
		t.Fatalf("offset: got %v", h.Offset())
	}
}
