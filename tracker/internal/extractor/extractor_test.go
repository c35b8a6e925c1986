package extractor

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/hazyhaar/xptrail/tracker/internal/browser"
	"github.com/hazyhaar/xptrail/tracker/internal/browser/browsertest"
	"github.com/hazyhaar/xptrail/tracker/internal/config"
)

const rawLog = `<ul><li>2024-01-01 10:00:00 · 20 XP</li></ul>`

func testRequest(username string) Request {
	cfg := config.Default()
	return Request{
		BaseURL:  "https://duome.eu",
		Username: username,
		Selectors: Selectors{
			Refresh:     cfg.Selectors.Refresh,
			ProfileName: cfg.Selectors.ProfileName,
			UTCOffset:   cfg.Selectors.UTCOffset,
			RawButton:   cfg.Selectors.RawButton,
			RawLog:      cfg.Selectors.RawLog,
			Canvas:      cfg.Selectors.Canvas,
		},
		NavigationTimeout: time.Second,
		WaitTimeout:       time.Second,
		RefreshDelay:      time.Second,
	}
}

func TestExtract_FullProfile(t *testing.T) {
	fake := browsertest.NewSession(browsertest.ProfilePage(" Alice ", "UTC+5:30", rawLog))

	art, err := Extract(context.Background(), fake, testRequest("alice"))
	if err != nil {
		t.Fatal(err)
	}
	if art.URL != "https://duome.eu/alice" {
		t.Errorf("url: got %q", art.URL)
	}
	if art.ProfileName != "Alice" {
		t.Errorf("profile name: got %q", art.ProfileName)
	}
	if art.UTCOffsetText != "UTC+5:30" {
		t.Errorf("offset: got %q", art.UTCOffsetText)
	}
	if art.RawLogHTML != rawLog {
		t.Errorf("raw log: got %q", art.RawLogHTML)
	}
	if art.Canvas == nil || art.CanvasErr != nil {
		t.Errorf("canvas: got %v, err %v", art.Canvas, art.CanvasErr)
	}
	if art.OffsetErr != nil || art.LogErr != nil {
		t.Errorf("unexpected artifact errors: %v / %v", art.OffsetErr, art.LogErr)
	}
	if art.Refreshed {
		t.Error("page has no refresh control, Refreshed should be false")
	}
}

func TestExtract_ClicksRefreshWhenPresent(t *testing.T) {
	req := testRequest("alice")
	nodes := browsertest.ProfilePage("Alice", "UTC+0", rawLog)
	nodes[req.Selectors.Refresh] = &browsertest.Node{Text: "update"}
	fake := browsertest.NewSession(nodes)
	fake.SettleErr = context.DeadlineExceeded

	art, err := Extract(context.Background(), fake, req)
	if err != nil {
		t.Fatal(err)
	}
	if !art.Refreshed {
		t.Error("refresh control present but not used")
	}

	calls := fake.Calls()
	armAt := slices.Index(calls, "expect settle")
	clickAt := slices.Index(calls, "click "+req.Selectors.Refresh)
	settleAt := slices.Index(calls, "settle")
	nameAt := slices.Index(calls, "wait "+req.Selectors.ProfileName)
	if clickAt < 0 || nameAt < 0 || clickAt > nameAt {
		t.Errorf("refresh must happen before reading the profile: %v", calls)
	}
	if armAt < 0 || armAt > clickAt {
		t.Errorf("load wait must be armed before the refresh click: %v", calls)
	}
	if settleAt < clickAt || settleAt > nameAt {
		t.Errorf("profile read before the reload settled: %v", calls)
	}
}

func TestExtract_RefreshClickFailureReleasesWaiter(t *testing.T) {
	req := testRequest("alice")
	nodes := browsertest.ProfilePage("Alice", "UTC+0", rawLog)
	nodes[req.Selectors.Refresh] = &browsertest.Node{Text: "update", ClickErr: errors.New("node detached")}
	fake := browsertest.NewSession(nodes)

	art, err := Extract(context.Background(), fake, req)
	if err != nil {
		t.Fatal(err)
	}
	if art.Refreshed {
		t.Error("failed refresh click reported as refreshed")
	}
	if !slices.Contains(fake.Calls(), "settle") {
		t.Errorf("armed load wait never released: %v", fake.Calls())
	}
}

func TestExtract_ReadsBoundedByWaitTimeout(t *testing.T) {
	fake := browsertest.NewSession(browsertest.ProfilePage("Alice", "UTC+0", rawLog))
	req := testRequest("alice")
	req.WaitTimeout = 1500 * time.Millisecond

	if _, err := Extract(context.Background(), fake, req); err != nil {
		t.Fatal(err)
	}
	reads := fake.ReadTimeouts()
	// display name, offset, raw log
	if len(reads) != 3 {
		t.Fatalf("reads: got %v", reads)
	}
	for _, d := range reads {
		if d != req.WaitTimeout {
			t.Errorf("read timeout %v, want %v", d, req.WaitTimeout)
		}
	}
}

func TestExtract_ProfileNotFound(t *testing.T) {
	fake := browsertest.NewSession(map[string]*browsertest.Node{})

	art, err := Extract(context.Background(), fake, testRequest("ghost"))
	if art != nil {
		t.Fatal("no artifacts expected for a missing profile")
	}
	var pnf *ProfileNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("expected ProfileNotFoundError, got %v", err)
	}
	if pnf.Username != "ghost" {
		t.Errorf("username: got %q", pnf.Username)
	}

	// Short-circuit: nothing after the display name was attempted.
	req := testRequest("ghost")
	for _, c := range fake.Calls() {
		if c == "wait "+req.Selectors.UTCOffset || c == "wait "+req.Selectors.RawButton {
			t.Errorf("step ran after profile-not-found: %s", c)
		}
	}
}

func TestExtract_NavigationError(t *testing.T) {
	fake := browsertest.NewSession(browsertest.ProfilePage("Alice", "UTC+0", rawLog))
	fake.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := Extract(context.Background(), fake, testRequest("alice"))
	var nav *browser.NavigationError
	if !errors.As(err, &nav) {
		t.Fatalf("expected NavigationError, got %v", err)
	}
}

func TestExtract_RawLogMissingIsNotFatal(t *testing.T) {
	req := testRequest("alice")
	nodes := browsertest.ProfilePage("Alice", "UTC+0", rawLog)
	delete(nodes, req.Selectors.RawLog)
	fake := browsertest.NewSession(nodes)

	art, err := Extract(context.Background(), fake, req)
	if err != nil {
		t.Fatalf("raw log failure must not be fatal: %v", err)
	}
	var enf *browser.ElementNotFoundError
	if !errors.As(art.LogErr, &enf) || enf.Selector != req.Selectors.RawLog {
		t.Fatalf("LogErr: got %v", art.LogErr)
	}
	if art.ProfileName != "Alice" {
		t.Errorf("header should survive: %q", art.ProfileName)
	}
	if art.Canvas != nil || slices.Contains(fake.Calls(), "wait "+req.Selectors.Canvas) {
		t.Errorf("canvas waited for without a raw log: %v", fake.Calls())
	}
}

func TestExtract_OffsetAndCanvasMissing(t *testing.T) {
	req := testRequest("alice")
	nodes := browsertest.ProfilePage("Alice", "", rawLog)
	delete(nodes, req.Selectors.UTCOffset)
	delete(nodes, req.Selectors.Canvas)
	fake := browsertest.NewSession(nodes)

	art, err := Extract(context.Background(), fake, req)
	if err != nil {
		t.Fatal(err)
	}
	if art.OffsetErr == nil {
		t.Error("expected OffsetErr")
	}
	if art.CanvasErr == nil || art.Canvas != nil {
		t.Errorf("expected CanvasErr and no handle, got %v / %v", art.Canvas, art.CanvasErr)
	}
	if art.RawLogHTML != rawLog {
		t.Error("raw log should still be read")
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	fake := browsertest.NewSession(browsertest.ProfilePage("Alice", "UTC+0", rawLog))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, fake, testRequest("alice"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var pnf *ProfileNotFoundError
	if errors.As(err, &pnf) {
		t.Fatal("cancellation must not be reported as profile not found")
	}
}

func TestProfileURL(t *testing.T) {
	tests := []struct{ base, user, want string }{
		{"https://duome.eu", "alice", "https://duome.eu/alice"},
		{"https://duome.eu/", "alice", "https://duome.eu/alice"},
		{"http://127.0.0.1:8080", "a b", "http://127.0.0.1:8080/a%20b"},
	}
	for _, tt := range tests {
		if got := ProfileURL(tt.base, tt.user); got != tt.want {
			t.Errorf("ProfileURL(%q, %q) = %q, want %q", tt.base, tt.user, got, tt.want)
		}
	}
}
