package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// InsertResponse is returned after a single insert
type InsertResponse struct {
	ID         string `json:"_id"`
	Collection string `json:"collection"`
}

// HandleInsert handles POST requests to insert a document into a collection
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	var doc domain.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	if doc == nil {
		WriteJSONError(w, http.StatusBadRequest, "document body is required")
		return
	}

	id, err := coll.InsertOne(doc)
	if err != nil {
		log.Printf("ERROR: Insert failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Insert successful for collection '%s'", collName)
	writeJSON(w, http.StatusCreated, InsertResponse{ID: id, Collection: collName})
}
