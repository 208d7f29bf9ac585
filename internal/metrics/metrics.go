package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prospectops/mailscout/internal/storage"
)

var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscout_lookups_total",
			Help: "Total company email lookups executed",
		},
		[]string{"outcome"}, // found, guessed, empty, error
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscout_fetches_total",
			Help: "Total page fetches executed",
		},
		[]string{"domain", "status", "blocked"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailscout_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscout_fetch_bytes_total",
			Help: "Total bytes downloaded across all page fetches",
		},
		[]string{"domain"},
	)

	EmailsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscout_emails_found_total",
			Help: "Total addresses surviving validation, by discovery path",
		},
		[]string{"path"}, // extracted, guessed
	)

	SMTPProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailscout_smtp_probes_total",
			Help: "Total SMTP RCPT probes, by result",
		},
		[]string{"result"}, // exists, missing, catch_all, error
	)

	CatchAllDomains = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailscout_catch_all_domains_total",
			Help: "Domains identified as catch-all during probing",
		},
	)
)

// RecordFetch updates fetch metrics from a single fetch result.
func RecordFetch(domain string, res *storage.FetchResult) {
	if res == nil {
		return
	}

	status := strconv.Itoa(res.StatusCode)
	if res.Error != "" {
		status = "error"
	}
	blocked := "false"
	if res.Blocked {
		blocked = "true"
	}

	FetchesTotal.WithLabelValues(domain, status, blocked).Inc()
	FetchDuration.WithLabelValues(domain).Observe(res.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(len(res.Body)))
}

// Server exposes the Prometheus registry over HTTP.
type Server struct {
	srv *http.Server
}

// Start begins listening on the given port, serving /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
