// CLAUDE:SUMMARY Captures a canvas element as PNG bytes via toDataURL and validates the image header.
// Package canvas captures the page's history chart as PNG bytes.
package canvas

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/ysmood/gson"

	"github.com/hazyhaar/xptrail/tracker/internal/browser"
	"github.com/hazyhaar/xptrail/tracker/timeline"
)

// ScriptRunner evaluates a function in the page with the given arguments.
type ScriptRunner interface {
	RunScript(ctx context.Context, script string, args ...any) (gson.JSON, error)
}

// Script serialises a canvas element to a data URI.
const Script = `(c) => c.toDataURL('image/png')`

const dataURIPrefix = "data:image/png;base64,"

// CanvasCaptureError reports a failed capture. It never aborts an
// extraction.
type CanvasCaptureError struct {
	Reason string
	Cause  error
}

func (e *CanvasCaptureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("canvas: %s: %v", e.Reason, e.Cause)
	}
	return "canvas: " + e.Reason
}

func (e *CanvasCaptureError) Unwrap() error { return e.Cause }

// Capture serialises el and decodes the result.
func Capture(ctx context.Context, r ScriptRunner, el browser.Element) (*timeline.CanvasSnapshot, error) {
	if el == nil {
		return nil, &CanvasCaptureError{Reason: "no canvas element"}
	}
	res, err := r.RunScript(ctx, Script, el)
	if err != nil {
		return nil, &CanvasCaptureError{Reason: "serialise", Cause: err}
	}
	uri := res.Str()
	payload, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, &CanvasCaptureError{Reason: fmt.Sprintf("unexpected data uri %.32q", uri)}
	}
	return Decode(payload)
}

// Decode turns a base64 PNG payload into a snapshot, checking the header.
func Decode(payload string) (*timeline.CanvasSnapshot, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &CanvasCaptureError{Reason: "base64", Cause: err}
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &CanvasCaptureError{Reason: "png", Cause: err}
	}
	return &timeline.CanvasSnapshot{
		Bytes:    raw,
		MIMEType: timeline.MIMETypePNG,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
