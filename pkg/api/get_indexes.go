package api

import (
	"log"
	"net/http"
)

// HandleGetIndexes handles GET requests to retrieve all indexes for a collection
func (h *Handler) HandleGetIndexes(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	indexes := coll.Indexes()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collection":  collName,
		"indexes":     indexes,
		"index_count": len(indexes),
	})

	log.Printf("INFO: Retrieved %d indexes for collection '%s'", len(indexes), collName)
}

// HandleStats returns the storage, cache and index statistics of a collection
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	stats, err := coll.Stats()
	if err != nil {
		log.Printf("ERROR: Stats failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
