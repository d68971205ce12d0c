package middleware

import (
	"net/http"
	"time"

	"github.com/kiranshivaraju/salesboard/internal/metrics"
)

// Metrics records request counts and latency labelled by route pattern,
// so ids in the path do not explode label cardinality.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			m.RecordRequest(r.Method, routePattern(r), rec.status, time.Since(start).Seconds())
		})
	}
}
