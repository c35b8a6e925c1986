// CLAUDE:SUMMARY Parses the profile UTC offset label into signed minutes.
// Package normalize converts page-local timestamps into absolute instants
// using the profile's declared UTC offset.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hazyhaar/xptrail/tracker/timeline"
)

// OffsetParseError reports header text with no usable UTC offset.
type OffsetParseError struct {
	Text string
}

func (e *OffsetParseError) Error() string {
	return fmt.Sprintf("normalize: no utc offset in %q", e.Text)
}

var offsetRe = regexp.MustCompile(`UTC\s*(?:([+\-−]?)(\d{1,2})(?::(\d{2}))?)?`)

const maxOffsetMinutes = 14 * 60

// ParseOffset reads "UTC+5:30", "UTC-3", "UTC" and similar into signed
// minutes east of UTC. The sign applies to the minutes part too.
func ParseOffset(text string) (int, error) {
	m := offsetRe.FindStringSubmatch(text)
	if m == nil {
		return 0, &OffsetParseError{Text: text}
	}
	if m[2] == "" {
		return 0, nil
	}
	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if minutes >= 60 {
		return 0, &OffsetParseError{Text: text}
	}
	total := hours*60 + minutes
	if total > maxOffsetMinutes {
		return 0, &OffsetParseError{Text: text}
	}
	if m[1] == "-" || m[1] == "−" {
		total = -total
	}
	return total, nil
}

// Header builds the profile header. An unreadable offset falls back to
// zero and the parse error is returned as a diagnostic.
func Header(name, offsetText string) (timeline.ProfileHeader, error) {
	h := timeline.ProfileHeader{DisplayName: strings.TrimSpace(name)}
	minutes, err := ParseOffset(offsetText)
	if err != nil {
		return h, err
	}
	h.UTCOffsetMinutes = minutes
	return h, nil
}
