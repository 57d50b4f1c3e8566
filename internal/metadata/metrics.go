package metadata

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the crawl collectors. Each instance owns its registry,
// so parallel crawls (and tests) never collide on registration.
type Metrics struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	errors        *prometheus.CounterVec
	skips         *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "silent_crawler_fetches_total",
			Help: "Total fetches by outcome (2xx, 3xx, 4xx, 5xx, error)",
		}, []string{"outcome"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "silent_crawler_errors_total",
			Help: "Total recorded errors by package and cause",
		}, []string{"package", "cause"}),
		skips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "silent_crawler_skips_total",
			Help: "Total frontier entries skipped without a fetch or a record",
		}, []string{"reason"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "silent_crawler_fetch_duration_seconds",
			Help:    "Time to fetch a single URL",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the registry on addr under /metrics until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func fetchOutcome(httpStatus int) string {
	switch {
	case httpStatus >= 200 && httpStatus < 300:
		return "2xx"
	case httpStatus >= 300 && httpStatus < 400:
		return "3xx"
	case httpStatus >= 400 && httpStatus < 500:
		return "4xx"
	case httpStatus >= 500 && httpStatus < 600:
		return "5xx"
	default:
		return "error"
	}
}
