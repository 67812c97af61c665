package api

import (
	"log"
	"net/http"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// FindRequest is the body of find and findOne requests
type FindRequest struct {
	Filter map[string]interface{} `json:"filter"`
	domain.FindOptions
}

// FilterRequest is the body of requests that only carry a filter
type FilterRequest struct {
	Filter map[string]interface{} `json:"filter"`
}

// DistinctRequest is the body of distinct requests
type DistinctRequest struct {
	Field  string                 `json:"field"`
	Filter map[string]interface{} `json:"filter"`
}

// HandleFind handles POST requests returning the documents matching a filter
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req FindRequest
	if !decodeBody(w, r, &req) {
		return
	}

	docs, err := coll.FindWithOptions(req.Filter, &req.FindOptions)
	if err != nil {
		log.Printf("ERROR: Find failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}

	log.Printf("INFO: Found %d documents in collection '%s'", len(docs), collName)
	writeJSON(w, http.StatusOK, docs)
}

// HandleFindOne returns the first matching document, or 404
func (h *Handler) HandleFindOne(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doc, err := coll.FindOne(req.Filter)
	if err != nil {
		log.Printf("ERROR: FindOne failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}
	if doc == nil {
		WriteJSONError(w, http.StatusNotFound, "no document matches the filter")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleCount returns the number of matching documents
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req FilterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	count, err := coll.Count(req.Filter)
	if err != nil {
		log.Printf("ERROR: Count failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collection": collName,
		"count":      count,
	})
}

// HandleDistinct returns the distinct values of a field
func (h *Handler) HandleDistinct(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}

	var req DistinctRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Field == "" {
		WriteJSONError(w, http.StatusBadRequest, "field is required")
		return
	}

	values, err := coll.Distinct(req.Field, req.Filter)
	if err != nil {
		log.Printf("ERROR: Distinct failed for collection '%s': %v", collName, err)
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"field":  req.Field,
		"values": values,
	})
}
