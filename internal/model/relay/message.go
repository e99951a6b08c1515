package relay

import "time"

// Role classifies a connection once at accept time; it never changes
// for the lifetime of the connection.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps the handshake admin flag to a role. Anything other
// than an explicit admin flag is a user connection.
func ParseRole(isAdmin string) Role {
	if isAdmin == "true" {
		return RoleAdmin
	}
	return RoleUser
}

// Message is one immutable transcript entry. SessionID is the user
// connection id the message belongs to, for admin replies as well.
type Message struct {
	SessionID string    `json:"id"`
	Body      string    `json:"message"`
	Sender    Role      `json:"sender"`
	SentAt    time.Time `json:"sentAt"`
}

// HistorySnapshot carries a full session transcript back to the
// connection that requested it.
type HistorySnapshot struct {
	ChatID  string    `json:"chatId"`
	History []Message `json:"history"`
}
