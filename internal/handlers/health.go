package handlers

import "net/http"

// Health reports liveness and whether a usable config is loaded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.config.Get().Validate(); err != nil {
		status = "unconfigured"
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
	})
}
