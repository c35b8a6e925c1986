// CLAUDE:SUMMARY Defines Result, Diagnostics, and BatchItem returned by extractions.
package tracker

import (
	"time"

	"github.com/hazyhaar/xptrail/tracker/timeline"
)

// Result is the outcome of one extraction. Timeline is nil only when
// returned alongside a *PartialError; Snapshot is nil when SnapshotErr is
// set.
type Result struct {
	ID          string                   `json:"id"`
	Username    string                   `json:"username"`
	URL         string                   `json:"url"`
	Header      timeline.ProfileHeader   `json:"header"`
	Timeline    *timeline.Timeline       `json:"timeline"`
	Snapshot    *timeline.CanvasSnapshot `json:"snapshot,omitempty"`
	SnapshotErr error                    `json:"-"`
	Diagnostics Diagnostics              `json:"diagnostics"`
}

// Diagnostics counts what the pipeline saw and discarded.
type Diagnostics struct {
	Refreshed             bool          `json:"refreshed"`
	LinesSeen             int           `json:"lines_seen"`
	Candidates            int           `json:"candidates"`
	Tokens                int           `json:"tokens"`
	SkippedNoSeparator    int           `json:"skipped_no_separator"`
	SkippedEmptyTimestamp int           `json:"skipped_empty_timestamp"`
	SkippedNoXP           int           `json:"skipped_no_xp"`
	TimestampErrors       int           `json:"timestamp_errors"`
	DuplicatesCollapsed   int           `json:"duplicates_collapsed"`
	OffsetError           string        `json:"offset_error,omitempty"`
	SnapshotError         string        `json:"snapshot_error,omitempty"`
	Elapsed               time.Duration `json:"elapsed_ns"`
}

// BatchItem is one entry of ExtractMany's output.
type BatchItem struct {
	Username string
	Result   *Result
	Err      error
}
