package relay

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	relaymodel "github.com/nurtureme/support-relay/internal/model/relay"
	relayservice "github.com/nurtureme/support-relay/internal/relay"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func setupServer(t *testing.T) (*httptest.Server, *relayservice.Service) {
	t.Helper()
	svc := relayservice.NewService(relayservice.Config{})
	handler := New(svc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv, svc
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func readDirectory(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	f := readFrame(t, conn)
	if f.Event != relaymodel.EventActiveChats {
		t.Fatalf("expected active_chats frame, got %q", f.Event)
	}
	var ids []string
	if err := json.Unmarshal(f.Data, &ids); err != nil {
		t.Fatalf("decode active_chats: %v", err)
	}
	return ids
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		t.Fatalf("write %s frame: %v", event, err)
	}
}

func TestUserHandshakeJoinsDirectory(t *testing.T) {
	srv, svc := setupServer(t)

	user := dial(t, srv, "")
	ids := readDirectory(t, user)
	if len(ids) != 1 {
		t.Fatalf("directory broadcast = %v, want one id", ids)
	}

	if chats := svc.ActiveChats(); len(chats) != 1 || chats[0] != ids[0] {
		t.Fatalf("service directory = %v, broadcast = %v", chats, ids)
	}
}

func TestAdminHandshakeGetsSnapshotOnly(t *testing.T) {
	srv, svc := setupServer(t)

	user := dial(t, srv, "")
	ids := readDirectory(t, user)

	admin := dial(t, srv, "?isAdmin=true")
	snapshot := readDirectory(t, admin)
	if len(snapshot) != 1 || snapshot[0] != ids[0] {
		t.Fatalf("admin snapshot = %v, want %v", snapshot, ids)
	}

	if chats := svc.ActiveChats(); len(chats) != 1 {
		t.Fatalf("admin must not join the directory: %v", chats)
	}
}

func TestGarbageAdminFlagMeansUser(t *testing.T) {
	srv, svc := setupServer(t)

	conn := dial(t, srv, "?isAdmin=1")
	ids := readDirectory(t, conn)
	if len(ids) != 1 {
		t.Fatalf("directory broadcast = %v, want the connection's own id", ids)
	}
	if chats := svc.ActiveChats(); len(chats) != 1 {
		t.Fatalf("connection with garbage flag did not join directory: %v", chats)
	}
}

func TestMessageRoundTripAndHistory(t *testing.T) {
	// A user message reaches user and admin over a real socket, and
	// fetch_chat returns the recorded transcript.
	srv, _ := setupServer(t)

	user := dial(t, srv, "")
	ids := readDirectory(t, user)
	sessionID := ids[0]

	admin := dial(t, srv, "?isAdmin=true")
	readDirectory(t, admin)

	writeFrame(t, user, relaymodel.EventMessage, map[string]any{
		"id": sessionID, "message": "hi", "sender": "user",
	})

	for name, conn := range map[string]*websocket.Conn{"user": user, "admin": admin} {
		f := readFrame(t, conn)
		if f.Event != relaymodel.EventMessage {
			t.Fatalf("%s got %q frame, want message", name, f.Event)
		}
		var msg relaymodel.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.SessionID != sessionID || msg.Body != "hi" || msg.Sender != relaymodel.RoleUser {
			t.Fatalf("%s got %+v", name, msg)
		}
	}

	writeFrame(t, admin, relaymodel.EventFetchChat, sessionID)

	f := readFrame(t, admin)
	if f.Event != relaymodel.EventChatHistory {
		t.Fatalf("expected chat_history frame, got %q", f.Event)
	}
	var snapshot relaymodel.HistorySnapshot
	if err := json.Unmarshal(f.Data, &snapshot); err != nil {
		t.Fatalf("decode chat_history: %v", err)
	}
	if snapshot.ChatID != sessionID || len(snapshot.History) != 1 || snapshot.History[0].Body != "hi" {
		t.Fatalf("history snapshot = %+v", snapshot)
	}
}

func TestAdminReplyUnicast(t *testing.T) {
	srv, _ := setupServer(t)

	user := dial(t, srv, "")
	sessionID := readDirectory(t, user)[0]

	other := dial(t, srv, "")
	readDirectory(t, user) // directory update for the second user
	readDirectory(t, other)

	admin := dial(t, srv, "?isAdmin=true")
	readDirectory(t, admin)

	writeFrame(t, admin, relaymodel.EventMessage, map[string]any{
		"id": sessionID, "message": "hello", "sender": "admin",
	})

	f := readFrame(t, user)
	if f.Event != relaymodel.EventMessage {
		t.Fatalf("target got %q frame, want message", f.Event)
	}
	var msg relaymodel.Message
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Sender != relaymodel.RoleAdmin || msg.Body != "hello" {
		t.Fatalf("target got %+v", msg)
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray frame
	if err := other.ReadJSON(&stray); err == nil {
		t.Fatalf("bystander received %q frame, want none", stray.Event)
	}
}

func TestMalformedMessageRejected(t *testing.T) {
	srv, _ := setupServer(t)

	user := dial(t, srv, "")
	readDirectory(t, user)

	cases := []map[string]any{
		{"message": "no id", "sender": "user"},
		{"id": "x", "sender": "user"},
		{"id": "x", "message": "no sender"},
		{"id": "x", "message": "bad sender type", "sender": 7},
	}
	for _, payload := range cases {
		writeFrame(t, user, relaymodel.EventMessage, payload)
		f := readFrame(t, user)
		if f.Event != relaymodel.EventError {
			t.Fatalf("payload %v produced %q frame, want error", payload, f.Event)
		}
	}
}

func TestUnknownEventRejected(t *testing.T) {
	srv, _ := setupServer(t)

	user := dial(t, srv, "")
	readDirectory(t, user)

	writeFrame(t, user, "typing", nil)
	f := readFrame(t, user)
	if f.Event != relaymodel.EventError {
		t.Fatalf("unknown event produced %q frame, want error", f.Event)
	}
}

func TestDisconnectBroadcastsDirectory(t *testing.T) {
	srv, svc := setupServer(t)

	u1 := dial(t, srv, "")
	sessionID := readDirectory(t, u1)[0]

	u2 := dial(t, srv, "")
	readDirectory(t, u1)
	readDirectory(t, u2)

	u1.Close()

	// The disconnect lands asynchronously; the remaining user's next
	// frame is the shrunken directory.
	ids := readDirectory(t, u2)
	if len(ids) != 1 || ids[0] == sessionID {
		t.Fatalf("directory after disconnect = %v", ids)
	}

	if history := svc.History(sessionID); history == nil {
		t.Fatal("transcript should remain queryable after disconnect")
	}
}
