package api

import (
	"log"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// JSONLogger emits structured access logs with status and latency, feeding
// the latency bucket counter exposed at /api/stats.
func JSONLogger(buckets *bucketCounter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: 200}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			if buckets != nil {
				buckets.observe(elapsed)
			}
			log.Printf(`{"ts":"%s","method":"%s","path":"%s","status":%d,"latency_ms":%.3f}`,
				time.Now().UTC().Format(time.RFC3339Nano),
				r.Method,
				r.URL.Path,
				rec.status,
				float64(elapsed.Microseconds())/1000,
			)
		})
	}
}
