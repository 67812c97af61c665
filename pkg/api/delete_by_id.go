package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
	"github.com/gorilla/mux"
)

// DeleteRequest is the body of delete requests. Multi selects deleteMany.
type DeleteRequest struct {
	Filter map[string]interface{} `json:"filter"`
	Multi  bool                   `json:"multi"`
}

// HandleDelete handles POST requests deleting the documents matching a filter
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	log.Printf("INFO: handleDelete called for collection '%s'", collName)

	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		result domain.DeleteResult
		err    error
	)
	if req.Multi {
		result, err = coll.DeleteMany(req.Filter)
	} else {
		result, err = coll.DeleteOne(req.Filter)
	}
	if err != nil {
		log.Printf("ERROR: Delete failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Deleted %d documents from collection '%s'", result.DeletedCount, collName)
	writeJSON(w, http.StatusOK, result)
}

// HandleDeleteById handles DELETE requests to remove a specific document by ID
func (h *Handler) HandleDeleteById(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]

	log.Printf("INFO: handleDeleteById called for collection '%s', document '%s'", collName, docId)

	result, err := coll.DeleteOne(map[string]interface{}{"_id": docId})
	if err != nil {
		log.Printf("ERROR: Delete failed for document '%s' in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		WriteJSONError(w, http.StatusNotFound, "document "+docId+" not found")
		return
	}

	log.Printf("INFO: Deleted document '%s' from collection '%s'", docId, collName)
	w.WriteHeader(http.StatusNoContent)
}
