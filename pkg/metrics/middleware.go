package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Middleware records request count and duration for the given handler.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		path := pathLabel(req.URL.Path)
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rec.status)
		r.RequestTotal.WithLabelValues(req.Method, path, status).Inc()
		r.RequestDuration.WithLabelValues(req.Method, path).Observe(duration)
	})
}

// pathLabel keeps label cardinality bounded: /collections/users/find becomes
// collections_find, dropping the collection name.
func pathLabel(p string) string {
	p = strings.Trim(p, "/")
	parts := strings.Split(p, "/")
	switch {
	case len(parts) >= 3 && parts[0] == "collections":
		return parts[0] + "_" + parts[2]
	case len(parts) == 2 && parts[0] == "collections":
		return "collections_insert"
	case len(parts) >= 1 && parts[0] != "":
		return parts[0]
	}
	return "root"
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working behind the middleware
func (r *responseRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
