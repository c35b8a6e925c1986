// CLAUDE:SUMMARY Orchestrates one extraction per call: session, page protocol, parse, normalize, assemble, canvas, teardown.
// Package tracker extracts the XP timeline of a public language-learning
// profile by driving a headless browser through the profile page.
//
// One call to Extract owns one browser session from open to close:
//
//	open → navigate → refresh → header → raw log → parse → normalize →
//	assemble → canvas → close
//
// The tracker holds only configuration, so a single Tracker may serve
// concurrent calls; each call launches (or connects to) its own Chrome.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/xptrail/kit"
	"github.com/hazyhaar/xptrail/tracker/internal/actlog"
	"github.com/hazyhaar/xptrail/tracker/internal/assemble"
	"github.com/hazyhaar/xptrail/tracker/internal/browser"
	"github.com/hazyhaar/xptrail/tracker/internal/canvas"
	"github.com/hazyhaar/xptrail/tracker/internal/config"
	"github.com/hazyhaar/xptrail/tracker/internal/extractor"
	"github.com/hazyhaar/xptrail/tracker/internal/normalize"
)

var errInvalidUsername = errors.New("invalid username")

// session is what one extraction needs from a browser.
type session interface {
	extractor.Driver
	canvas.ScriptRunner
	Close() error
}

type opener func(ctx context.Context, cfg browser.Config) (session, error)

func openBrowser(ctx context.Context, cfg browser.Config) (session, error) {
	s, err := browser.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Tracker runs extractions.
type Tracker struct {
	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	open   opener
	now    func() time.Time
	newID  func() string

	retries int
	backoff time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone used for display-local times, overriding the
// configured timezone.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// WithIDGenerator overrides result ID generation (UUIDv7 by default).
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// WithRetry retries an extraction up to maxRetries times when navigation
// fails, waiting backoff (doubled each attempt) in between. All attempts
// share the call timeout.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(t *Tracker) {
		t.retries = max(maxRetries, 0)
		t.backoff = backoff
	}
}

func withOpener(o opener) Option {
	return func(t *Tracker) { t.open = o }
}

// New creates a Tracker. A nil cfg means DefaultConfig(). cfg is copied.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	c := config.Default()
	if cfg != nil {
		cp := *cfg
		cp.ApplyDefaults()
		c = &cp
	}

	t := &Tracker{
		cfg:    c,
		logger: logger,
		open:   openBrowser,
		now:    time.Now,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, o := range opts {
		o(t)
	}
	if t.loc == nil {
		loc, err := c.Location()
		if err != nil {
			logger.Warn("tracker: falling back to local zone", "error", err)
			loc = time.Local
		}
		t.loc = loc
	}
	return t
}

// Extract runs one extraction for username.
//
// It returns (nil, err) when the profile cannot be read at all: invalid or
// unknown username, navigation failure, session failure, timeout or
// cancellation. When the activity log is unreachable it returns the result
// with only URL and Header filled, together with a *PartialError. A failed
// canvas capture only leaves Snapshot nil and sets SnapshotErr.
func (t *Tracker) Extract(ctx context.Context, username string) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.Contains(username, "/") {
		return nil, &ProfileNotFoundError{Username: username, Cause: errInvalidUsername}
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.CallTimeout())
	defer cancel()

	if t.retries == 0 {
		return t.extractOnce(ctx, username)
	}
	once := func(ctx context.Context, req any) (any, error) {
		return t.extractOnce(ctx, req.(string))
	}
	resp, err := kit.Retry(t.retries, t.backoff, isNavigationError, t.logger)(once)(ctx, username)
	res, _ := resp.(*Result)
	return res, err
}

func isNavigationError(err error) bool {
	var nav *NavigationError
	return errors.As(err, &nav)
}

// extractOnce runs the pipeline with one fresh session.
func (t *Tracker) extractOnce(ctx context.Context, username string) (*Result, error) {
	log := t.logger.With("username", username)
	start := time.Now()

	sess, err := t.open(ctx, t.browserConfig())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tracker: open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Debug("tracker: session close", "error", cerr)
		}
	}()

	art, err := extractor.Extract(ctx, sess, t.request(username))
	if err != nil {
		log.Warn("tracker: extraction failed", "error", err)
		return nil, err
	}

	res := &Result{ID: t.newID(), Username: username, URL: art.URL}
	res.Diagnostics.Refreshed = art.Refreshed

	header, offErr := normalize.Header(art.ProfileName, art.UTCOffsetText)
	if art.OffsetErr != nil {
		offErr = art.OffsetErr
	}
	if offErr != nil {
		res.Diagnostics.OffsetError = offErr.Error()
		log.Warn("tracker: utc offset defaulted to zero", "error", offErr)
	}
	res.Header = header

	if art.LogErr != nil {
		res.Diagnostics.Elapsed = time.Since(start)
		return res, &PartialError{Stage: StageActivityLog, Cause: art.LogErr}
	}

	tokens, stats := actlog.Parse(art.RawLogHTML)
	events, tsErrs := normalize.Normalizer{Location: t.loc}.Events(header, tokens)
	tl, dups := assemble.BuildCounted(header.DisplayName, events, t.now().UTC())
	res.Timeline = tl

	d := &res.Diagnostics
	d.LinesSeen = stats.Lines
	d.Candidates = stats.Candidates
	d.Tokens = stats.Tokens
	d.SkippedNoSeparator = stats.Count(actlog.SkipNoSeparator)
	d.SkippedEmptyTimestamp = stats.Count(actlog.SkipEmptyTimestamp)
	d.SkippedNoXP = stats.Count(actlog.SkipNoXP)
	d.TimestampErrors = len(tsErrs)
	d.DuplicatesCollapsed = dups
	for _, e := range stats.Skipped {
		log.Debug("tracker: line dropped", "line", e.Line, "reason", e.Reason, "text", e.Text)
	}
	for _, e := range tsErrs {
		log.Debug("tracker: timestamp dropped", "error", e)
	}

	if art.CanvasErr != nil {
		res.SnapshotErr = &CanvasCaptureError{Reason: "locate", Cause: art.CanvasErr}
	} else {
		res.Snapshot, res.SnapshotErr = canvas.Capture(ctx, sess, art.Canvas)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if res.SnapshotErr != nil {
		d.SnapshotError = res.SnapshotErr.Error()
		log.Warn("tracker: snapshot omitted", "error", res.SnapshotErr)
	}

	d.Elapsed = time.Since(start)
	log.Info("tracker: extracted",
		"profile", header.DisplayName,
		"events", tl.Len(),
		"dropped", stats.Dropped()+len(tsErrs),
		"duplicates", dups,
		"snapshot", res.Snapshot != nil,
		"elapsed", d.Elapsed)
	return res, nil
}

// ExtractMany runs Extract for each username with at most limit sessions
// open at once (limit <= 0 means unbounded). Items are returned in input
// order; one failure does not stop the others.
func (t *Tracker) ExtractMany(ctx context.Context, usernames []string, limit int) []BatchItem {
	items := make([]BatchItem, len(usernames))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, u := range usernames {
		g.Go(func() error {
			res, err := t.Extract(ctx, u)
			items[i] = BatchItem{Username: u, Result: res, Err: err}
			return nil
		})
	}
	g.Wait()
	return items
}

func (t *Tracker) browserConfig() browser.Config {
	b := t.cfg.Browser
	return browser.Config{
		RemoteURL:        b.Remote,
		Bin:              b.Bin,
		Headless:         b.Headless == nil || *b.Headless,
		Stealth:          b.Stealth == nil || *b.Stealth,
		NoSandbox:        b.NoSandbox,
		ResourceBlocking: b.ResourceBlocking,
		Logger:           t.logger,
	}
}

func (t *Tracker) request(username string) extractor.Request {
	s := t.cfg.Selectors
	return extractor.Request{
		BaseURL:  t.cfg.BaseURL,
		Username: username,
		Selectors: extractor.Selectors{
			Refresh:     s.Refresh,
			ProfileName: s.ProfileName,
			UTCOffset:   s.UTCOffset,
			RawButton:   s.RawButton,
			RawLog:      s.RawLog,
			Canvas:      s.Canvas,
		},
		NavigationTimeout: t.cfg.NavigationTimeout(),
		WaitTimeout:       t.cfg.WaitTimeout(),
		RefreshDelay:      t.cfg.RefreshDelay(),
		Logger:            t.logger,
	}
}
