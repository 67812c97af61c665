package api

import (
	"net/http"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string                 `json:"status"`
	Message     string                 `json:"message"`
	Collections []string               `json:"collections"`
	Memory      map[string]interface{} `json:"memory,omitempty"`
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:      "healthy",
		Message:     "go-docdb is running",
		Collections: h.db.CollectionNames(),
	}
	if h.stats != nil {
		response.Memory = h.stats.GetMemoryStats()
	}

	writeJSON(w, http.StatusOK, response)
}
