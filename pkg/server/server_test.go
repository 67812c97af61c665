package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adfharrison1/go-docdb/pkg/engine"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/adfharrison1/go-docdb/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *metrics.Recorder) {
	t.Helper()
	store := storage.NewMemoryStore()
	recorder := metrics.NewRecorder(nil)
	db := engine.NewDatabase(store, engine.DefaultConfig(), recorder)
	srv := NewServer(db, store, recorder)
	t.Cleanup(func() { srv.Close() })
	return srv, recorder
}

func TestServer_EndToEnd(t *testing.T) {
	srv, recorder := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(map[string]interface{}{"name": "Alice", "age": 30})
	resp, err := http.Post(ts.URL+"/collections/users", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	query, _ := json.Marshal(map[string]interface{}{"filter": map[string]interface{}{"name": "Alice"}})
	resp, err = http.Post(ts.URL+"/collections/users/findOne", "application/json", bytes.NewReader(query))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.EqualValues(t, 30, doc["age"])

	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.RequestTotal.WithLabelValues("POST", "collections_insert", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.RequestTotal.WithLabelValues("POST", "collections_findOne", "200")))
}

func TestServer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no route")
}

func TestServer_StreamThroughMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	docs := map[string]interface{}{"documents": []map[string]interface{}{{"n": 1}, {"n": 2}}}
	body, _ := json.Marshal(docs)
	resp, err := http.Post(ts.URL+"/collections/nums/batch", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/collections/nums/find_with_stream", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out, 2)
}
