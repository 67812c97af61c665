package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/gorilla/mux"
)

// CreateIndexRequest optionally selects the index kind; hash is the default
type CreateIndexRequest struct {
	Kind domain.IndexKind `json:"kind"`
}

// HandleCreateIndex creates an index on a specific field in a collection
func (h *Handler) HandleCreateIndex(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	fieldName := mux.Vars(r)["field"]

	if fieldName == "_id" {
		WriteJSONError(w, http.StatusBadRequest, "cannot create index on _id field (looked up directly)")
		return
	}

	var req CreateIndexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = domain.IndexHash
	}

	if err := coll.CreateIndex(fieldName, req.Kind); err != nil {
		log.Printf("ERROR: Create index on '%s' failed for collection '%s': %v", fieldName, collName, err)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Index created successfully",
		"collection": collName,
		"field":      fieldName,
		"kind":       req.Kind,
	})
}

// HandleDropIndex removes the index on a field
func (h *Handler) HandleDropIndex(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	fieldName := mux.Vars(r)["field"]

	if err := coll.DropIndex(fieldName); err != nil {
		log.Printf("ERROR: Drop index on '%s' failed for collection '%s': %v", fieldName, collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Dropped index on '%s' for collection '%s'", fieldName, collName)
	w.WriteHeader(http.StatusNoContent)
}
