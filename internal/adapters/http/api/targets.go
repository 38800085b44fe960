package api

import (
	"net/http"
	"strconv"

	"github.com/okian/bodytrack/internal/domain/selection"
)

// TargetsProvider lists the selection targets.
type TargetsProvider interface {
	Targets() []selection.Target
}

// TargetsHandler handles target listing requests.
type TargetsHandler struct {
	deps TargetsProvider
}

// NewTargetsHandler creates a new targets handler.
func NewTargetsHandler(deps TargetsProvider) *TargetsHandler {
	return &TargetsHandler{deps: deps}
}

type targetResponse struct {
	Name     string  `json:"name"`
	Size     float64 `json:"size"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Selected bool    `json:"selected"`
}

// HandleTargets handles GET /targets requests. ?selected=true|false filters
// by selection state.
func (h *TargetsHandler) HandleTargets(w http.ResponseWriter, r *http.Request) {
	const op = "api.targets"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	var (
		filter bool
		want   bool
	)
	if raw := r.URL.Query().Get("selected"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		filter, want = true, v
	}

	targets := h.deps.Targets()
	out := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		if filter && t.Selected != want {
			continue
		}
		out = append(out, targetResponse{
			Name:     t.Name,
			Size:     t.Size,
			X:        t.Center.X,
			Y:        t.Center.Y,
			Selected: t.Selected,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
