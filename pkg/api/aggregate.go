package api

import (
	"log"
	"net/http"
)

// AggregateRequest is the body of aggregate requests
type AggregateRequest struct {
	Pipeline []map[string]interface{} `json:"pipeline"`
}

// HandleAggregate runs an aggregation pipeline over a collection
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req AggregateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	docs, err := coll.Aggregate(req.Pipeline)
	if err != nil {
		log.Printf("ERROR: Aggregate failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Aggregate over collection '%s' produced %d documents", collName, len(docs))
	writeJSON(w, http.StatusOK, docs)
}
