//go:build integration

package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const profileHTML = `<!doctype html>
<html><body>
<div>menu</div><div>search</div><div>ads</div>
<div>
  <h3><span class="json-name">%s</span></h3>
  <h4>Timezone <span>UTC+5:30</span></h4>
</div>
<a class="btn q raw" href="#" onclick="reveal(); return false;">raw</a>
<canvas id="myCanvas" width="40" height="20"></canvas>
<script>
  const ctx = document.getElementById('myCanvas').getContext('2d');
  ctx.fillStyle = '#58cc02';
  ctx.fillRect(0, 0, 20, 10);
  function reveal() {
    const d = document.createElement('div');
    d.id = 'raw';
    d.innerHTML = '<ul><li>2024-01-01 10:05:00 · 15 XP</li>' +
      '<li>2024-01-01 10:00:00 Â· 20 XP</li><li>broken XP</li></ul>';
    document.body.appendChild(d);
  }
</script>
</body></html>`

// Runs against a real Chrome: go test -tags integration ./tracker/
func TestIntegration_ExtractAgainstLocalPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alice", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, profileHTML, "Alice")
	})
	mux.HandleFunc("/", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.WaitTimeoutMs = 3000
	cfg.RefreshDelayMs = 500
	cfg.Browser.NoSandbox = true
	tr := New(cfg, nil, WithLocation(time.UTC))

	res, err := tr.Extract(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if res.Header.DisplayName != "Alice" || res.Header.UTCOffsetMinutes != 330 {
		t.Errorf("header: %+v", res.Header)
	}
	events := res.Timeline.Events()
	if len(events) != 2 || events[0].XP != 20 {
		t.Fatalf("events: %+v", events)
	}
	if want := time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC); !events[0].UTC.Equal(want) {
		t.Errorf("utc: %v", events[0].UTC)
	}
	if res.Snapshot == nil || res.Snapshot.Width != 40 || res.Snapshot.Height != 20 {
		t.Errorf("snapshot: %+v, %v", res.Snapshot, res.SnapshotErr)
	}

	_, err = tr.Extract(context.Background(), "nobody")
	var pnf *ProfileNotFoundError
	if !errors.As(err, &pnf) {
		t.Errorf("expected ProfileNotFoundError, got %v", err)
	}
}
