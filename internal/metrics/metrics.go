// Package metrics exposes Prometheus instrumentation for crawl activity.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PagesVisited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferret_pages_visited_total",
			Help: "Total number of pages fetched during traversal",
		},
		[]string{"domain"},
	)

	ProductURLs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferret_product_urls_total",
			Help: "Total number of URLs classified as product pages",
		},
		[]string{"domain", "method"},
	)

	NavigationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferret_navigation_errors_total",
			Help: "Navigation failures by kind (timeout or error)",
		},
		[]string{"domain", "kind"},
	)

	DomainCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ferret_domain_crawl_duration_seconds",
			Help:    "Wall-clock duration of one domain's full crawl",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"domain"},
	)
)

// RecordVisit counts one fetched page for the domain.
func RecordVisit(domain string) {
	PagesVisited.WithLabelValues(domain).Inc()
}

// RecordProduct counts one discovered product URL; method is "pattern" or
// "content".
func RecordProduct(domain, method string) {
	ProductURLs.WithLabelValues(domain, method).Inc()
}

// RecordNavigationError counts one navigation failure; kind is "timeout"
// or "error".
func RecordNavigationError(domain, kind string) {
	NavigationErrors.WithLabelValues(domain, kind).Inc()
}

// ObserveCrawl records how long a domain's crawl took.
func ObserveCrawl(domain string, d time.Duration) {
	DomainCrawlDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
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
