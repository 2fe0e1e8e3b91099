package handlers

import (
	"net/http"

	"github.com/argobridge/argobridge/internal/models"
)

// Models lists the client-facing model aliases.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   models.List(),
	})
}
