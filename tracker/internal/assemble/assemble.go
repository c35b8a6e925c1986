// CLAUDE:SUMMARY Sorts events by UTC instant and collapses duplicate (instant, XP) pairs into a Timeline.
// Package assemble orders and deduplicates normalized events into a
// Timeline.
package assemble

import (
	"slices"
	"time"

	"github.com/hazyhaar/xptrail/tracker/timeline"
)

type eventKey struct {
	unixNano int64
	xp       int
}

// Build sorts events ascending by UTC (stable, so same-instant events keep
// their log order), drops exact (UTC, XP) repeats keeping the first, and
// returns the timeline. The input slice is not modified.
func Build(profileName string, events []timeline.XPEvent, capturedAt time.Time) *timeline.Timeline {
	tl, _ := BuildCounted(profileName, events, capturedAt)
	return tl
}

// BuildCounted is Build that also reports how many duplicates were
// collapsed.
func BuildCounted(profileName string, events []timeline.XPEvent, capturedAt time.Time) (*timeline.Timeline, int) {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b timeline.XPEvent) int {
		return a.UTC.Compare(b.UTC)
	})

	seen := make(map[eventKey]struct{}, len(sorted))
	out := sorted[:0]
	for _, e := range sorted {
		k := eventKey{unixNano: e.UTC.UnixNano(), xp: e.XP}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return timeline.New(profileName, out, capturedAt), len(sorted) - len(out)
}
