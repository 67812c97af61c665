package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/adfharrison1/go-docdb/pkg/metrics"
	"github.com/gorilla/mux"
)

// MemoryStatsProvider is implemented by stores that can report memory usage
type MemoryStatsProvider interface {
	GetMemoryStats() map[string]interface{}
}

// Handler provides HTTP handlers for the database API
type Handler struct {
	db       domain.DatabaseEngine
	stats    MemoryStatsProvider
	recorder *metrics.Recorder
}

// NewHandler creates a new API handler. stats and recorder may be nil.
func NewHandler(db domain.DatabaseEngine, stats MemoryStatsProvider, recorder *metrics.Recorder) *Handler {
	return &Handler{
		db:       db,
		stats:    stats,
		recorder: recorder,
	}
}

// collection resolves the {coll} route variable, writing the error response
// when it cannot be opened
func (h *Handler) collection(w http.ResponseWriter, r *http.Request) (domain.CollectionEngine, string, bool) {
	collName := mux.Vars(r)["coll"]
	coll, err := h.db.Collection(collName)
	if err != nil {
		log.Printf("ERROR: Cannot open collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return nil, collName, false
	}
	return coll, collName, true
}

// decodeBody decodes a JSON request body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
