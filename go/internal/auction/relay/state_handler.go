package relay

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
)

// StateProvider exposes the mirrored state. *engine.Engine satisfies it.
type StateProvider interface {
	Current() (store.Mirror, derive.Facts)
}

// StateHandler re-serves the mirror to local screens.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetState handles GET /api/state with the same document shape the
// authority serves.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mirror, _ := h.stateProvider.Current()
	if mirror.Doc == nil {
		http.Error(w, "State not yet synchronized", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, mirror.Doc)
}

// HandleGetView handles GET /api/view.
func (h *StateHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, facts := h.stateProvider.Current()
	writeJSON(w, facts)
}

func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.HandleGetState)
	mux.HandleFunc("/api/view", h.HandleGetView)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
