// CLAUDE:SUMMARY One Chrome and one stealth page per extraction: launch or remote connect, bounded waits, full teardown.
// Package browser owns the headless Chrome instance behind one extraction:
// launch or connect, one page, bounded waits, guaranteed teardown.
//
// A Session is never shared between extractions. Every blocking operation
// takes an explicit timeout and derives its deadline from the caller's
// context, so cancelling the call interrupts whatever rod is waiting on.
// Nothing retries internally; retry policy belongs to the caller.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// Config configures a Session.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome (for
	// example one handed out by a caller-owned pool). Empty = launch locally.
	RemoteURL string

	// Bin overrides the Chrome binary. Empty lets the launcher resolve it.
	Bin string

	Headless  bool
	Stealth   bool
	NoSandbox bool

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Element is a handle to a node on a session's page.
type Element interface {
	Selector() string
}

type rodElement struct {
	selector string
	el       *rod.Element
}

func (e *rodElement) Selector() string { return e.selector }

// process is the launched Chrome, as far as teardown is concerned.
type process interface {
	PID() int
	Kill()
	Cleanup()
}

// processExitWait bounds how long Close waits for a launched Chrome to exit.
var processExitWait = 10 * time.Second

// Session is a single browser instance with exactly one page.
type Session struct {
	cfg      Config
	browser  *rod.Browser
	page     *rod.Page
	conn     io.Closer
	proc     process
	router   *rod.HijackRouter
	once     sync.Once
	closeErr error
}

// Open launches Chrome (or connects to cfg.RemoteURL) and opens the page.
// On any failure the partially built session is torn down before returning.
func Open(ctx context.Context, cfg Config) (_ *Session, err error) {
	cfg.defaults()
	s := &Session{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(cfg.Headless).Leakless(true)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if cfg.NoSandbox {
			l = l.NoSandbox(true)
		}
		// Anti-detection flag.
		l = l.Set("disable-blink-features", "AutomationControlled")

		s.proc = l
		u, lerr := l.Launch()
		if lerr != nil {
			return nil, fmt.Errorf("browser: launch: %w", lerr)
		}
		wsURL = u
		cfg.Logger.Debug("browser: launched local chrome", "url", wsURL)
	} else {
		cfg.Logger.Debug("browser: connecting to remote", "url", wsURL)
	}

	// The socket is dialled here rather than by rod so Close can shut it;
	// rod only drops it on a read or write error.
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, wsURL, nil); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.conn = ws
	b := rod.New().Client(cdp.New().Start(ws))
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	// A remote Chrome belongs to someone else: work in a throwaway browser
	// context so Close disposes the context, not the process.
	if cfg.RemoteURL != "" {
		inc, ierr := b.Incognito()
		if ierr != nil {
			return nil, fmt.Errorf("browser: incognito context: %w", ierr)
		}
		s.browser = inc
		b = inc
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page

	if len(cfg.ResourceBlocking) > 0 {
		router, rerr := blockResources(page, cfg.ResourceBlocking)
		if rerr != nil {
			cfg.Logger.Warn("browser: resource blocking failed", "error", rerr)
		}
		s.router = router
	}

	return s, nil
}

// Navigate loads url and waits for the load event, both within timeout.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return &NavigationError{URL: url, Cause: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &NavigationError{URL: url, Cause: err}
	}
	return nil
}

// WaitFor waits until selector matches an element.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(ctx)
	var (
		el  *rod.Element
		err error
	)
	if IsXPath(selector) {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return nil, &ElementNotFoundError{Selector: selector, Timeout: timeout, Cause: err}
	}
	// Detach the element from the wait deadline.
	return &rodElement{selector: selector, el: el.Context(context.Background())}, nil
}

// Find reports whether selector currently matches, without waiting.
func (s *Session) Find(ctx context.Context, selector string) (Element, bool, error) {
	p := s.page.Context(ctx)
	var (
		ok  bool
		el  *rod.Element
		err error
	)
	if IsXPath(selector) {
		ok, el, err = p.HasX(selector)
	} else {
		ok, el, err = p.Has(selector)
	}
	if err != nil || !ok {
		return nil, false, err
	}
	return &rodElement{selector: selector, el: el.Context(context.Background())}, true, nil
}

// Click left-clicks el once.
func (s *Session) Click(ctx context.Context, el Element, timeout time.Duration) error {
	re, err := s.unwrap(el)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := re.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %q: %w", re.selector, err)
	}
	return nil
}

// Text returns the rendered text of el, within timeout.
func (s *Session) Text(ctx context.Context, el Element, timeout time.Duration) (string, error) {
	re, err := s.unwrap(el)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := re.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("browser: text %q: %w", re.selector, err)
	}
	return text, nil
}

// ReadHTML returns the inner markup of el, within timeout.
func (s *Session) ReadHTML(ctx context.Context, el Element, timeout time.Duration) (string, error) {
	re, err := s.unwrap(el)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := re.el.Context(ctx).Property("innerHTML")
	if err != nil {
		return "", fmt.Errorf("browser: inner html %q: %w", re.selector, err)
	}
	return v.Str(), nil
}

// ExpectSettled arms a wait for the next load event of the page. Call it
// before the action that reloads the page; the returned func blocks until
// that load fires or timeout elapses, and must always be called.
func (s *Session) ExpectSettled(ctx context.Context, timeout time.Duration) func() error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	wait := s.page.Context(ctx).WaitNavigation(proto.PageLifecycleEventNameLoad)
	return func() error {
		defer cancel()
		wait()
		return ctx.Err()
	}
}

// RunScript evaluates a JS function on the page. Element arguments are
// passed by remote reference, everything else as JSON.
func (s *Session) RunScript(ctx context.Context, script string, args ...any) (gson.JSON, error) {
	jsArgs := make([]any, len(args))
	for i, a := range args {
		if el, ok := a.(Element); ok {
			re, err := s.unwrap(el)
			if err != nil {
				return gson.JSON{}, err
			}
			jsArgs[i] = re.el.Object
			continue
		}
		jsArgs[i] = a
	}

	res, err := s.page.Context(ctx).Eval(script, jsArgs...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value, nil
}

// Close tears down the page, the browser (or its incognito context), the
// DevTools socket and any launched process. Safe to call more than once.
func (s *Session) Close() error {
	s.once.Do(func() {
		var errs []error
		if s.router != nil {
			errs = append(errs, s.router.Stop())
		}
		if s.page != nil {
			errs = append(errs, s.page.Close())
		}
		browserClosed := false
		if s.browser != nil {
			err := s.browser.Close()
			browserClosed = err == nil
			errs = append(errs, err)
		}
		if s.conn != nil {
			errs = append(errs, s.conn.Close())
		}
		if s.proc != nil {
			s.stopProcess(browserClosed)
		}
		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.cfg.Logger.Debug("browser: close", "error", s.closeErr)
		}
	})
	return s.closeErr
}

// stopProcess kills the launched Chrome unless it was already asked to
// exit, then waits a bounded time for it and removes its profile dir.
// A launch that never spawned a process leaves nothing to stop.
func (s *Session) stopProcess(exiting bool) {
	if s.proc.PID() == 0 {
		return
	}
	if !exiting {
		s.proc.Kill()
	}
	done := make(chan struct{})
	go func() {
		s.proc.Cleanup()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(processExitWait):
		s.cfg.Logger.Warn("browser: chrome did not exit", "pid", s.proc.PID(), "waited", processExitWait)
	}
}

func (s *Session) unwrap(el Element) (*rodElement, error) {
	re, ok := el.(*rodElement)
	if !ok || re == nil || re.el == nil {
		return nil, fmt.Errorf("browser: foreign element handle %T", el)
	}
	return re, nil
}

// IsXPath reports whether a selector is an XPath expression.
func IsXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}
