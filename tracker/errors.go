package tracker

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/xptrail/tracker/internal/actlog"
	"github.com/hazyhaar/xptrail/tracker/internal/browser"
	"github.com/hazyhaar/xptrail/tracker/internal/canvas"
	"github.com/hazyhaar/xptrail/tracker/internal/extractor"
	"github.com/hazyhaar/xptrail/tracker/internal/normalize"
)

type (
	// NavigationError: the profile URL could not be loaded. Fatal.
	NavigationError = browser.NavigationError
	// ElementNotFoundError: a selector did not match within its budget.
	ElementNotFoundError = browser.ElementNotFoundError
	// ProfileNotFoundError: the username does not resolve to a profile. Fatal.
	ProfileNotFoundError = extractor.ProfileNotFoundError
	// LineError: an activity log line was dropped.
	LineError = actlog.LineError
	// TimestampParseError: a log timestamp matched no known layout.
	TimestampParseError = normalize.TimestampParseError
	// OffsetParseError: the header carried no usable UTC offset.
	OffsetParseError = normalize.OffsetParseError
	// CanvasCaptureError: the history chart could not be captured.
	CanvasCaptureError = canvas.CanvasCaptureError
)

// PartialError accompanies a Result that is missing a stage's output. The
// result is still usable.
type PartialError struct {
	Stage string
	Cause error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("tracker: partial result, %s unavailable: %v", e.Stage, e.Cause)
}

func (e *PartialError) Unwrap() error { return e.Cause }

// StageActivityLog names the raw activity log stage.
const StageActivityLog = "activity_log"

// IsFatal reports whether an error returned by Extract means no result
// was produced. Only a *PartialError comes with a usable result.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var partial *PartialError
	return !errors.As(err, &partial)
}
