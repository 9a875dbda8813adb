package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hypebot/internal/logging"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

var (
	PollRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hypebot_poll_runs_total",
		Help: "Total mention poll iterations",
	})
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hypebot_poll_errors_total",
		Help: "Total mention poll iterations that failed",
	})
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hypebot_poll_duration_seconds",
		Help:    "Mention poll iteration duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	Mentions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hypebot_mentions_total",
		Help: "Mentions handled by outcome",
	}, []string{"outcome"})
	RepliesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hypebot_replies_sent_total",
		Help: "Total replies posted",
	})
	ReplyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hypebot_reply_errors_total",
		Help: "Total replies that failed to post",
	})
	PostsAnalyzed = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hypebot_posts_analyzed",
		Help:    "Posts fetched per analyzed mention",
		Buckets: []float64{0, 10, 50, 100, 250, 500, 1000},
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hypebot_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hypebot_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hypebot_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(PollRuns, PollErrors, PollDuration, Mentions, RepliesSent, ReplyErrors,
		PostsAnalyzed, APIRetries, CommandRuns, CommandErrors)
}

// Mention outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoPosts   = "no_posts"
	OutcomeNotFollow = "not_following"
	OutcomeDuplicate = "duplicate"
	OutcomeDeferred  = "deferred"
	OutcomeFailed    = "failed"
)

// Handler serves /metrics, /health and /. running is read on every health
// request and must be safe for concurrent use.
func Handler(running func() bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "healthy", "bot_running": running != nil && running()})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"name": "Bluesky Engagement Analytics Bot", "status": "running", "version": Version})
	})
	return mux
}

// StartServer starts the health/metrics HTTP server on addr (e.g. ":8080")
// and returns it for shutdown. An empty addr disables it.
func StartServer(addr string, running func() bool) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: Handler(running), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("health_server_error", map[string]any{"addr": addr, "error": err})
		}
	}()
	logging.Info("health_server_started", map[string]any{"addr": addr})
	return srv
}

// ObservePollDuration records a poll iteration duration.
func ObservePollDuration(start time.Time) {
	PollDuration.Observe(time.Since(start).Seconds())
}

// IncMention counts a handled mention by outcome.
func IncMention(outcome string) { Mentions.WithLabelValues(outcome).Inc() }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
