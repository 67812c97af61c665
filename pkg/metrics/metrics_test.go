package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder(nil)

	r.ObserveQuery("users", PathIndex)
	r.ObserveQuery("users", PathIndex)
	r.ObserveQuery("users", PathScan)
	r.ObserveCache("users", true)
	r.ObserveCache("users", false)
	r.ObserveMutation("users", "insert", nil)
	r.ObserveMutation("users", "insert", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.QueriesTotal.WithLabelValues("users", PathIndex)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.QueriesTotal.WithLabelValues("users", PathScan)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheEvents.WithLabelValues("users", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheEvents.WithLabelValues("users", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.MutationsTotal.WithLabelValues("users", "insert", "error")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveQuery("users", PathScan)
		r.ObserveCache("users", true)
		r.ObserveMutation("users", "delete", nil)
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_MiddlewareAndHandler(t *testing.T) {
	r := NewRecorder(nil)
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/collections/users/find", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.RequestTotal.WithLabelValues("POST", "collections_find", "418")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docdb_http_requests_total")
}

func TestPathLabel(t *testing.T) {
	tests := map[string]string{
		"/":                          "root",
		"/health":                    "health",
		"/collections/users":         "collections_insert",
		"/collections/users/find":    "collections_find",
		"/collections/users/indexes": "collections_indexes",
	}
	for path, want := range tests {
		assert.Equal(t, want, pathLabel(path), path)
	}
}
