// CLAUDE:SUMMARY Drives the profile page protocol: navigate, refresh, display name, offset, raw log, canvas handle.
// Package extractor runs the profile-page interaction protocol against a
// browser session and returns the raw artifacts the rest of the pipeline
// parses.
//
// The protocol, each step bounded by its own timeout:
//
//	navigate → refresh (tolerated) → display name → UTC offset →
//	reveal raw log → read raw log → locate canvas
//
// Only navigation and the display name are fatal. Later steps record their
// failure on the returned Artifacts so the caller can degrade the result.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/xptrail/tracker/internal/browser"
)

// Driver is the subset of a browser session the protocol needs.
type Driver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error)
	Find(ctx context.Context, selector string) (browser.Element, bool, error)
	Click(ctx context.Context, el browser.Element, timeout time.Duration) error
	ExpectSettled(ctx context.Context, timeout time.Duration) func() error
	Text(ctx context.Context, el browser.Element, timeout time.Duration) (string, error)
	ReadHTML(ctx context.Context, el browser.Element, timeout time.Duration) (string, error)
}

// Selectors locates the page elements.
type Selectors struct {
	Refresh     string
	ProfileName string
	UTCOffset   string
	RawButton   string
	RawLog      string
	Canvas      string
}

// Request describes one extraction.
type Request struct {
	BaseURL           string
	Username          string
	Selectors         Selectors
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	RefreshDelay      time.Duration
	Logger            *slog.Logger
}

// Artifacts are the raw outputs of the protocol. A nil *Err field means the
// artifact was produced.
type Artifacts struct {
	URL           string
	ProfileName   string
	UTCOffsetText string
	RawLogHTML    string
	Canvas        browser.Element
	Refreshed     bool

	OffsetErr error
	LogErr    error
	CanvasErr error
}

// ProfileURL builds the profile URL for username.
func ProfileURL(baseURL, username string) string {
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(username)
}

// Extract drives d through the protocol. It returns an error only for the
// fatal cases: *browser.NavigationError, *ProfileNotFoundError, or the
// caller's context error.
func Extract(ctx context.Context, d Driver, req Request) (*Artifacts, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}
	sel := req.Selectors
	art := &Artifacts{URL: ProfileURL(req.BaseURL, req.Username)}

	// 1. Navigate.
	if err := d.Navigate(ctx, art.URL, req.NavigationTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	log.Debug("extractor: navigated", "url", art.URL)

	// 2. Refresh, when the page variant has the control.
	art.Refreshed = refresh(ctx, d, req, log)

	// 3. Display name: the existence signal for the profile.
	nameEl, err := d.WaitFor(ctx, sel.ProfileName, req.WaitTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProfileNotFoundError{Username: req.Username, Cause: err}
	}
	name, err := d.Text(ctx, nameEl, req.WaitTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProfileNotFoundError{Username: req.Username, Cause: err}
	}
	art.ProfileName = strings.TrimSpace(name)
	if art.ProfileName == "" {
		return nil, &ProfileNotFoundError{Username: req.Username, Cause: fmt.Errorf("empty display name")}
	}

	// 4. UTC offset.
	art.UTCOffsetText, art.OffsetErr = readText(ctx, d, sel.UTCOffset, req.WaitTimeout)
	if art.OffsetErr != nil {
		log.Warn("extractor: utc offset unavailable", "username", req.Username, "error", art.OffsetErr)
	}

	// 5. Raw log. Without it there is no timeline to draw a canvas for.
	art.RawLogHTML, art.LogErr = readRawLog(ctx, d, sel, req.WaitTimeout)
	if art.LogErr != nil {
		log.Warn("extractor: raw log unavailable", "username", req.Username, "error", art.LogErr)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return art, nil
	}

	// 6. Canvas handle, captured later.
	art.Canvas, art.CanvasErr = d.WaitFor(ctx, sel.Canvas, req.WaitTimeout)
	if art.CanvasErr != nil {
		log.Warn("extractor: canvas unavailable", "username", req.Username, "error", art.CanvasErr)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return art, nil
}

func refresh(ctx context.Context, d Driver, req Request, log *slog.Logger) bool {
	if req.Selectors.Refresh == "" {
		return false
	}
	el, ok, err := d.Find(ctx, req.Selectors.Refresh)
	if err != nil || !ok {
		log.Debug("extractor: no refresh control", "selector", req.Selectors.Refresh, "error", err)
		return false
	}

	// The load waiter must exist before the click, or it would observe the
	// document that is about to be replaced.
	sctx, stop := context.WithCancel(ctx)
	defer stop()
	settled := d.ExpectSettled(sctx, req.RefreshDelay)
	if err := d.Click(ctx, el, req.WaitTimeout); err != nil {
		stop()
		_ = settled()
		log.Warn("extractor: refresh click failed", "error", err)
		return false
	}
	if err := settled(); err != nil {
		log.Debug("extractor: no reload within refresh budget", "budget", req.RefreshDelay, "error", err)
	}
	return true
}

func readText(ctx context.Context, d Driver, selector string, timeout time.Duration) (string, error) {
	el, err := d.WaitFor(ctx, selector, timeout)
	if err != nil {
		return "", err
	}
	return d.Text(ctx, el, timeout)
}

func readRawLog(ctx context.Context, d Driver, sel Selectors, timeout time.Duration) (string, error) {
	btn, err := d.WaitFor(ctx, sel.RawButton, timeout)
	if err != nil {
		return "", err
	}
	if err := d.Click(ctx, btn, timeout); err != nil {
		return "", err
	}
	container, err := d.WaitFor(ctx, sel.RawLog, timeout)
	if err != nil {
		return "", err
	}
	return d.ReadHTML(ctx, container, timeout)
}
