package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/xptrail/tracker"
	"github.com/hazyhaar/xptrail/tracker/timeline"
)

type fakeExtractor struct {
	fn func(ctx context.Context, username string) (*tracker.Result, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, username string) (*tracker.Result, error) {
	return f.fn(ctx, username)
}

func sampleResult(username string) *tracker.Result {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return &tracker.Result{
		ID:       "run-1",
		Username: username,
		Header:   timeline.ProfileHeader{DisplayName: "Alice"},
		Timeline: timeline.New("Alice", []timeline.XPEvent{{UTC: at, Local: at, XP: 20}}, at),
		Snapshot: &timeline.CanvasSnapshot{Bytes: []byte("\x89PNG"), MIMEType: timeline.MIMETypePNG},
	}
}

func serve(t *testing.T, fn func(context.Context, string) (*tracker.Result, error)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(&fakeExtractor{fn: fn}, 2, nil).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	srv := serve(t, nil)
	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("%d %s", resp.StatusCode, body)
	}
}

func TestProfile_OK(t *testing.T) {
	srv := serve(t, func(_ context.Context, u string) (*tracker.Result, error) { return sampleResult(u), nil })

	resp, body := get(t, srv.URL+"/api/profiles/alice")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Username string `json:"username"`
		Timeline struct {
			Events []struct {
				XP int `json:"xp"`
			} `json:"events"`
		} `json:"timeline"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	if got.Username != "alice" || len(got.Timeline.Events) != 1 || got.Timeline.Events[0].XP != 20 {
		t.Fatalf("body: %s", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
}

func TestProfile_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&tracker.ProfileNotFoundError{Username: "ghost", Cause: errors.New("timeout")}, http.StatusNotFound},
		{&tracker.NavigationError{URL: "https://duome.eu/x", Cause: errors.New("dns")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("chrome not found"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv := serve(t, func(context.Context, string) (*tracker.Result, error) { return nil, tt.err })
		resp, body := get(t, srv.URL+"/api/profiles/x")
		if resp.StatusCode != tt.want {
			t.Errorf("%v: status %d, want %d", tt.err, resp.StatusCode, tt.want)
		}
		if !strings.Contains(body, `"error"`) {
			t.Errorf("%v: body %s", tt.err, body)
		}
	}
}

func TestProfile_Partial(t *testing.T) {
	srv := serve(t, func(_ context.Context, u string) (*tracker.Result, error) {
		res := &tracker.Result{Username: u, Header: timeline.ProfileHeader{DisplayName: "Alice"}}
		return res, &tracker.PartialError{Stage: tracker.StageActivityLog, Cause: errors.New("no #raw")}
	})

	resp, body := get(t, srv.URL+"/api/profiles/alice")
	if resp.StatusCode != http.StatusPartialContent || !strings.Contains(body, "activity_log") {
		t.Fatalf("%d %s", resp.StatusCode, body)
	}

	resp, body = get(t, srv.URL+"/api/profiles/alice/events.csv")
	if resp.StatusCode != http.StatusPartialContent || strings.Count(strings.TrimSpace(body), "\n") != 0 {
		t.Fatalf("csv: %d %q", resp.StatusCode, body)
	}

	resp, _ = get(t, srv.URL+"/api/profiles/alice/canvas.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("canvas: %d", resp.StatusCode)
	}
}

func TestEventsCSV(t *testing.T) {
	srv := serve(t, func(_ context.Context, u string) (*tracker.Result, error) { return sampleResult(u), nil })

	resp, body := get(t, srv.URL+"/api/profiles/alice/events.csv")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("%d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(body, "01-01-2024,10:00:00,20") {
		t.Fatalf("body: %q", body)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "Alice_progress.csv") {
		t.Errorf("disposition: %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestCanvasPNG(t *testing.T) {
	srv := serve(t, func(_ context.Context, u string) (*tracker.Result, error) { return sampleResult(u), nil })

	resp, body := get(t, srv.URL+"/api/profiles/alice/canvas.png")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || body != "\x89PNG" {
		t.Fatalf("%d %s %q", resp.StatusCode, resp.Header.Get("Content-Type"), body)
	}
}

func TestConcurrentExtractionsBounded(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	srv := serve(t, func(_ context.Context, u string) (*tracker.Result, error) {
		mu.Lock()
		active++
		maxSeen = max(maxSeen, active)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return sampleResult(u), nil
	})

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(srv.URL + "/api/profiles/alice")
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()
	if maxSeen > 2 {
		t.Fatalf("%d concurrent extractions, limit 2", maxSeen)
	}
}
