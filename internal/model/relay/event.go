package relay

// Event names exchanged over the socket.
const (
	EventActiveChats = "active_chats"
	EventMessage     = "message"
	EventFetchChat   = "fetch_chat"
	EventChatHistory = "chat_history"
	EventError       = "error"
)

// Event is the JSON envelope for every server-to-client frame.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}
