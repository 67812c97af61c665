package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/gorilla/mux"
)

// UpdateRequest is the body of update requests. Multi selects updateMany.
type UpdateRequest struct {
	Filter map[string]interface{} `json:"filter"`
	Update map[string]interface{} `json:"update"`
	Multi  bool                   `json:"multi"`
}

// HandleUpdate handles PATCH requests updating the documents matching a filter
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	log.Printf("INFO: handleUpdate called for collection '%s'", collName)

	var req UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Update) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "update is required")
		return
	}

	var (
		result domain.UpdateResult
		err    error
	)
	if req.Multi {
		result, err = coll.UpdateMany(req.Filter, req.Update)
	} else {
		result, err = coll.UpdateOne(req.Filter, req.Update)
	}
	if err != nil {
		log.Printf("ERROR: Update failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Updated %d of %d matched documents in collection '%s'",
		result.ModifiedCount, result.MatchedCount, collName)
	writeJSON(w, http.StatusOK, result)
}

// HandleUpdateById handles PATCH requests updating a specific document by ID
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

	var spec map[string]interface{}
	if !decodeBody(w, r, &spec) {
		return
	}
	if len(spec) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "update is required")
		return
	}

	result, err := coll.UpdateOne(map[string]interface{}{"_id": docId}, spec)
	if err != nil {
		log.Printf("ERROR: Update failed for document '%s' in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}
	if result.MatchedCount == 0 {
		WriteJSONError(w, http.StatusNotFound, "document "+docId+" not found")
		return
	}

	doc, err := coll.GetByID(docId)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Updated document '%s' in collection '%s'", docId, collName)
	writeJSON(w, http.StatusOK, doc)
}
