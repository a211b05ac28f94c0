package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Best-effort blocks that fell back to an empty result
	DegradedBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_degraded_blocks_total",
			Help: "Recommendation and loan blocks served empty because of an error",
		},
		[]string{"block"},
	)

	SearchHits = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "library_search_hits",
			Help:    "Number of hits returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	ReservesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_reserves_created_total",
			Help: "Total number of reserves created",
		},
	)
)

// RecordAPIRequest records one served request
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDegraded counts a block that was served empty
func RecordDegraded(block string) {
	DegradedBlocks.WithLabelValues(block).Inc()
}

// StatsFunc reports catalog size and currently active loans
type StatsFunc func(ctx context.Context) (books, activeLoans int64, err error)

// RegisterCatalogStats exposes catalog gauges computed on scrape. Failed
// lookups report -1.
func RegisterCatalogStats(reg prometheus.Registerer, stats StatsFunc) error {
	read := func(pick func(books, loans int64) int64) func() float64 {
		return func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			books, loans, err := stats(ctx)
			if err != nil {
				return -1
			}
			return float64(pick(books, loans))
		}
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "library_books",
			Help: "Number of catalogued books",
		}, read(func(books, _ int64) int64 { return books })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "library_active_loans",
			Help: "Number of loans currently active",
		}, read(func(_, loans int64) int64 { return loans })),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
