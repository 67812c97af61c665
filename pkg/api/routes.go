package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	if h.recorder != nil {
		router.Handle("/metrics", h.recorder.Handler()).Methods("GET")
	}

	// Inserts
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchInsert).Methods("POST")

	// Queries
	router.HandleFunc("/collections/{coll}/find", h.HandleFind).Methods("POST")
	router.HandleFunc("/collections/{coll}/find_with_stream", h.HandleFindWithStream).Methods("POST")
	router.HandleFunc("/collections/{coll}/findOne", h.HandleFindOne).Methods("POST")
	router.HandleFunc("/collections/{coll}/count", h.HandleCount).Methods("POST")
	router.HandleFunc("/collections/{coll}/distinct", h.HandleDistinct).Methods("POST")
	router.HandleFunc("/collections/{coll}/aggregate", h.HandleAggregate).Methods("POST")

	// Mutations by filter
	router.HandleFunc("/collections/{coll}/update", h.HandleUpdate).Methods("PATCH")
	router.HandleFunc("/collections/{coll}/delete", h.HandleDelete).Methods("POST")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PATCH")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")

	// Index operations
	router.HandleFunc("/collections/{coll}/indexes", h.HandleGetIndexes).Methods("GET")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleCreateIndex).Methods("POST")
	router.HandleFunc("/collections/{coll}/indexes/{field}", h.HandleDropIndex).Methods("DELETE")

	router.HandleFunc("/collections/{coll}/stats", h.HandleStats).Methods("GET")
}
