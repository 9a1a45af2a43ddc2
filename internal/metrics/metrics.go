// AngelaMos | 2026
// metrics.go

package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carterperez-dev/vidshelf/internal/core"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshelf_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidshelf_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CatalogOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshelf_catalog_operations_total",
			Help: "Catalog operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	Thumbnails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshelf_thumbnails_total",
			Help: "Thumbnail jobs by outcome.",
		},
		[]string{"outcome"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidshelf_rate_limited_total",
			Help: "Requests rejected by a rate limit, by limit name and backend.",
		},
		[]string{"limit", "backend"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		CatalogOperations,
		Thumbnails,
		RateLimited,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation counts one catalog operation, labelling the outcome by
// the sentinel error it failed with.
func RecordOperation(operation string, err error) {
	CatalogOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	case errors.Is(err, core.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, core.ErrForbidden):
		return "forbidden"
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthenticated"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
