package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	relaymodel "github.com/nurtureme/support-relay/internal/model/relay"
	relayservice "github.com/nurtureme/support-relay/internal/relay"
	"github.com/nurtureme/support-relay/pkg/utils"
)

// Handler exposes read-only chat state over HTTP for dashboards.
type Handler struct {
	svc *relayservice.Service
}

// New creates the chat read handler.
func New(svc *relayservice.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the chat read routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats", h.handleActiveChats)
	r.Get("/chats/{sessionID}/history", h.handleHistory)
}

// handleActiveChats returns the session directory in connect order.
func (h *Handler) handleActiveChats(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"activeChats": h.svc.ActiveChats(),
	})
}

// handleHistory returns the transcript for a session id. Unknown ids
// yield an empty history, matching the socket fetch semantics.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, relaymodel.HistorySnapshot{
		ChatID:  sessionID,
		History: h.svc.History(sessionID),
	})
}
