package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMetricsExposure(t *testing.T) {
	PollRuns.Inc()
	PollErrors.Inc()
	IncMention(OutcomeAnswered)
	IncAPIRetry("/test")
	RepliesSent.Inc()
	ObservePollDuration(time.Now().Add(-1500 * time.Millisecond))

	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"hypebot_poll_runs_total",
		"hypebot_poll_errors_total",
		"hypebot_poll_duration_seconds",
		"hypebot_mentions_total",
		"hypebot_api_retries_total",
		"hypebot_replies_sent_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}

func TestHealthReflectsRunningFlag(t *testing.T) {
	var running atomic.Bool
	h := Handler(running.Load)

	check := func(want bool) {
		t.Helper()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body struct {
			Status     string `json:"status"`
			BotRunning bool   `json:"bot_running"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK || body.Status != "healthy" || body.BotRunning != want {
			t.Fatalf("health %d %+v, want running=%v", rec.Code, body, want)
		}
	}
	check(false)
	running.Store(true)
	check(true)
}

func TestRootAndNotFound(t *testing.T) {
	h := Handler(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), Version) {
		t.Fatalf("root body %q", rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
