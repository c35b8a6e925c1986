// CLAUDE:SUMMARY In-memory browser session fake with reveal-on-click nodes and a call log.
// Package browsertest provides an in-memory stand-in for a browser session,
// so the extraction protocol can be exercised without Chrome.
package browsertest

import (
	"context"
	"sync"
	"time"

	"github.com/ysmood/gson"

	"github.com/hazyhaar/xptrail/tracker/internal/browser"
)

// Node is a fake page element.
type Node struct {
	Text string
	HTML string
	// RevealedBy names the selector whose click makes this node appear.
	RevealedBy string
	ClickErr   error
}

// Element is the handle returned by Session.
type Element struct{ Sel string }

func (e *Element) Selector() string { return e.Sel }

// Session is a scripted fake page. The zero value is an empty page.
type Session struct {
	Nodes       map[string]*Node
	NavigateErr error
	SettleErr   error
	// Script answers RunScript calls. Nil returns a null value.
	Script func(script string, args ...any) (gson.JSON, error)

	mu       sync.Mutex
	clicked  map[string]bool
	calls    []string
	readWait []time.Duration
	closed   int
	url      string
}

// NewSession returns a fake page holding nodes.
func NewSession(nodes map[string]*Node) *Session {
	return &Session{Nodes: nodes}
}

func (s *Session) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *Session) present(selector string) (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.Nodes[selector]
	if !ok {
		return nil, false
	}
	if n.RevealedBy != "" && !s.clicked[n.RevealedBy] {
		return nil, false
	}
	return n, true
}

func (s *Session) Navigate(ctx context.Context, url string, _ time.Duration) error {
	s.record("navigate " + url)
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return &browser.NavigationError{URL: url, Cause: err}
	}
	if s.NavigateErr != nil {
		return &browser.NavigationError{URL: url, Cause: s.NavigateErr}
	}
	return nil
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	s.record("wait " + selector)
	if err := ctx.Err(); err != nil {
		return nil, &browser.ElementNotFoundError{Selector: selector, Timeout: timeout, Cause: err}
	}
	if _, ok := s.present(selector); !ok {
		return nil, &browser.ElementNotFoundError{Selector: selector, Timeout: timeout, Cause: context.DeadlineExceeded}
	}
	return &Element{Sel: selector}, nil
}

func (s *Session) Find(_ context.Context, selector string) (browser.Element, bool, error) {
	s.record("find " + selector)
	if _, ok := s.present(selector); !ok {
		return nil, false, nil
	}
	return &Element{Sel: selector}, true, nil
}

func (s *Session) Click(_ context.Context, el browser.Element, _ time.Duration) error {
	s.record("click " + el.Selector())
	n, ok := s.present(el.Selector())
	if ok && n.ClickErr != nil {
		return n.ClickErr
	}
	s.mu.Lock()
	if s.clicked == nil {
		s.clicked = make(map[string]bool)
	}
	s.clicked[el.Selector()] = true
	s.mu.Unlock()
	return nil
}

// ExpectSettled records "expect settle" when armed and "settle" when waited on.
func (s *Session) ExpectSettled(ctx context.Context, _ time.Duration) func() error {
	s.record("expect settle")
	return func() error {
		s.record("settle")
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.SettleErr
	}
}

func (s *Session) recordRead(timeout time.Duration) {
	s.mu.Lock()
	s.readWait = append(s.readWait, timeout)
	s.mu.Unlock()
}

func (s *Session) Text(_ context.Context, el browser.Element, timeout time.Duration) (string, error) {
	s.recordRead(timeout)
	n, _ := s.present(el.Selector())
	if n == nil {
		return "", nil
	}
	return n.Text, nil
}

func (s *Session) ReadHTML(_ context.Context, el browser.Element, timeout time.Duration) (string, error) {
	s.recordRead(timeout)
	n, _ := s.present(el.Selector())
	if n == nil {
		return "", nil
	}
	return n.HTML, nil
}

func (s *Session) RunScript(_ context.Context, script string, args ...any) (gson.JSON, error) {
	s.record("script")
	if s.Script == nil {
		return gson.New(nil), nil
	}
	return s.Script(script, args...)
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Calls returns the operations performed so far, in order.
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ReadTimeouts returns the timeout passed to each Text and ReadHTML call.
func (s *Session) ReadTimeouts() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.readWait...)
}

// Closed returns how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// URL returns the last navigated URL.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}
