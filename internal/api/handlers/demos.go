package handlers

import (
	"net/http"

	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/catalog"
)

// Demos handles GET /api/demos
func Demos(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"groups": catalog.Groups(),
		"links":  catalog.Links(),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
