package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleGetById handles GET requests to retrieve a specific document by ID
func (h *Handler) HandleGetById(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	docId := mux.Vars(r)["id"]

	doc, err := coll.GetByID(docId)
	if err != nil {
		log.Printf("ERROR: Get failed for document '%s' in collection '%s': %v", docId, collName, err)
		writeEngineError(w, err)
		return
	}
	if doc == nil {
		WriteJSONError(w, http.StatusNotFound, "document "+docId+" not found")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
