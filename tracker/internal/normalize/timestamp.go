// CLAUDE:SUMMARY Parses log timestamps in the profile offset and converts them to UTC and display-local events.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/xptrail/tracker/internal/actlog"
	"github.com/hazyhaar/xptrail/tracker/timeline"
)

// Layouts are tried in order. The first is what the activity log prints;
// the second is the day-first form some locales render.
var Layouts = []string{
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
}

// TimestampParseError reports a token whose text matches no layout.
type TimestampParseError struct {
	Text string
	Line int
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("normalize: line %d: unparseable timestamp %q", e.Line, e.Text)
}

// ParseTimestamp interprets text as wall-clock time at the given offset
// and returns the instant in UTC.
func ParseTimestamp(text string, offsetMinutes int) (time.Time, error) {
	zone := time.FixedZone(zoneName(offsetMinutes), offsetMinutes*60)
	text = strings.TrimSpace(text)
	for _, layout := range Layouts {
		t, err := time.ParseInLocation(layout, text, zone)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &TimestampParseError{Text: text}
}

func zoneName(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, minutes/60, minutes%60)
}

// Normalizer turns parser tokens into events.
type Normalizer struct {
	// Location is used for the display-local time. Nil means time.Local.
	Location *time.Location
}

// Events converts tokens in order. Tokens whose timestamp does not parse
// are dropped and reported in the returned slice.
func (n Normalizer) Events(header timeline.ProfileHeader, tokens []actlog.Token) ([]timeline.XPEvent, []error) {
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}

	events := make([]timeline.XPEvent, 0, len(tokens))
	var errs []error
	for _, tok := range tokens {
		utc, err := ParseTimestamp(tok.RawTimestampText, header.UTCOffsetMinutes)
		if err != nil {
			if pe, ok := err.(*TimestampParseError); ok {
				pe.Line = tok.Line
			}
			errs = append(errs, err)
			continue
		}
		events = append(events, timeline.XPEvent{UTC: utc, Local: utc.In(loc), XP: tok.XP})
	}
	return events, errs
}
