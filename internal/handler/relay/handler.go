package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	relaymodel "github.com/nurtureme/support-relay/internal/model/relay"
	relayservice "github.com/nurtureme/support-relay/internal/relay"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler exposes the relay over a WebSocket endpoint.
type Handler struct {
	svc      *relayservice.Service
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler bound to the relay service.
func New(svc *relayservice.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the socket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleSocket)
}

type inboundEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type messagePayload struct {
	ID     string  `json:"id"`
	Body   string  `json:"message"`
	Sender *string `json:"sender"`
}

// handleSocket upgrades the connection, classifies it from the
// handshake flag, and relays events until the transport drops.
func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	role := relaymodel.ParseRole(r.URL.Query().Get("isAdmin"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := h.svc.Accept(role)
	if client == nil {
		// Relay already shut down.
		return
	}
	defer h.svc.Remove(client)

	log.Printf("[websocket] %s connected: %s", role, client.ID())
	defer log.Printf("[websocket] %s disconnected: %s", role, client.ID())

	go h.writePump(conn, client)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var evt inboundEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleEvent(client, &evt)
	}
}

func (h *Handler) handleEvent(client *relayservice.Client, evt *inboundEvent) {
	switch evt.Name {
	case relaymodel.EventMessage:
		h.handleChatMessage(client, evt.Data)
	case relaymodel.EventFetchChat:
		h.handleFetchChat(client, evt.Data)
	default:
		h.sendError(client, "unsupported event: "+evt.Name)
	}
}

// handleChatMessage validates the payload shape before routing; a
// malformed message gets a structured rejection instead of being
// silently dropped.
func (h *Handler) handleChatMessage(client *relayservice.Client, raw json.RawMessage) {
	var payload messagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(client, "invalid message payload")
		return
	}

	switch {
	case payload.ID == "":
		h.sendError(client, "message id is required")
	case payload.Body == "":
		h.sendError(client, "message body is required")
	case payload.Sender == nil || *payload.Sender == "":
		h.sendError(client, "message sender is required")
	default:
		h.svc.Route(client, payload.ID, payload.Body)
	}
}

func (h *Handler) handleFetchChat(client *relayservice.Client, raw json.RawMessage) {
	var sessionID string
	if err := json.Unmarshal(raw, &sessionID); err != nil || sessionID == "" {
		h.sendError(client, "invalid fetch_chat payload")
		return
	}

	client.Send(relaymodel.Event{
		Name: relaymodel.EventChatHistory,
		Data: relaymodel.HistorySnapshot{
			ChatID:  sessionID,
			History: h.svc.History(sessionID),
		},
	})
}

func (h *Handler) sendError(client *relayservice.Client, message string) {
	client.Send(relaymodel.Event{
		Name: relaymodel.EventError,
		Data: relaymodel.ErrorPayload{Message: message},
	})
}

// writePump is the connection's single writer: it drains the client's
// event stream and keeps the transport alive with periodic pings. When
// the stream closes (client removed or relay shut down) it closes the
// socket, which unblocks the read loop.
func (h *Handler) writePump(conn *websocket.Conn, client *relayservice.Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-client.Events():
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"))
				conn.Close()
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.Printf("[websocket] write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
