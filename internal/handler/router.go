package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/nurtureme/support-relay/internal/handler/chat"
	relayHandler "github.com/nurtureme/support-relay/internal/handler/relay"
	middlewarePkg "github.com/nurtureme/support-relay/internal/middleware"
	relayService "github.com/nurtureme/support-relay/internal/relay"
	"github.com/nurtureme/support-relay/pkg/utils"
)

// NewRouter wires HTTP routes to the relay service.
func NewRouter(corsOrigin string, relaySvc *relayService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(corsOrigin))

	socketHandler := relayHandler.New(relaySvc)
	readHandler := chatHandler.New(relaySvc)

	// The socket lives at the root so the frontend connects without the
	// API prefix, matching the original handshake URL.
	socketHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		readHandler.RegisterRoutes(api)
	})

	return r
}
