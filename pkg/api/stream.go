package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// HandleFindWithStream runs a find and writes the results as a chunked JSON
// array, flushing after every document
func (h *Handler) HandleFindWithStream(w http.ResponseWriter, r *http.Request) {
	coll, collName, ok := h.collection(w, r)
	if !ok {
		return
	}
	log.Printf("INFO: handleFindWithStream called for collection '%s'", collName)

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

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)

	w.Write([]byte("[\n"))
	for i, doc := range docs {
		if i > 0 {
			w.Write([]byte(",\n"))
		}

		docJSON, err := json.Marshal(doc)
		if err != nil {
			log.Printf("ERROR: Failed to marshal document: %v", err)
			w.Write([]byte("null"))
			continue
		}
		if _, err := w.Write(docJSON); err != nil {
			log.Printf("ERROR: Failed to write to response: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte("\n]"))

	log.Printf("INFO: Streamed %d documents from collection '%s'", len(docs), collName)
}
