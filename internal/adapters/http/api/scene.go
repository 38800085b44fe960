package api

import (
	"net/http"
)

// SceneHandler serves the last presented scene.
type SceneHandler struct {
	scene SceneSource
}

// NewSceneHandler creates a new scene handler.
func NewSceneHandler(scene SceneSource) *SceneHandler {
	return &SceneHandler{scene: scene}
}

// HandleScene handles GET /scene requests.
func (h *SceneHandler) HandleScene(w http.ResponseWriter, r *http.Request) {
	const op = "api.scene"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	body := h.scene.LastJSON()
	if body == nil {
		writeError(w, http.StatusServiceUnavailable, "no_scene", NewKind(op, ErrNoScene))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
