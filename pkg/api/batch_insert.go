package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// maxBatchSize bounds the documents accepted by one batch insert
const maxBatchSize = 1000

// BatchInsertRequest represents the request body for batch insert operations
type BatchInsertRequest struct {
	Documents []domain.Document `json:"documents"`
}

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	InsertedCount int      `json:"inserted_count"`
	Collection    string   `json:"collection"`
	IDs           []string `json:"ids"`
}

// HandleBatchInsert handles POST requests inserting many documents at once.
// The batch is all-or-nothing.
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	log.Printf("INFO: handleBatchInsert called for collection '%s'", collName)

	var req BatchInsertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Documents) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "No documents provided")
		return
	}
	if len(req.Documents) > maxBatchSize {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d documents allowed per batch", maxBatchSize))
		return
	}

	ids, err := coll.InsertMany(req.Documents)
	if err != nil {
		log.Printf("ERROR: Batch insert failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Batch inserted %d documents into collection '%s'", len(ids), collName)
	writeJSON(w, http.StatusCreated, BatchInsertResponse{
		InsertedCount: len(ids),
		Collection:    collName,
		IDs:           ids,
	})
}
