package relay

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	relay "github.com/nurtureme/support-relay/internal/model/relay"
)

// RoutingMode controls where user-originated messages are delivered.
type RoutingMode string

const (
	// RouteAll fans user messages out to every live connection. This is
	// the relay's documented contract and the default.
	RouteAll RoutingMode = "all"
	// RouteAdminsOnly restricts user messages to admin observers plus
	// the sender.
	RouteAdminsOnly RoutingMode = "admins"
)

const defaultSendBuffer = 32

// Config tunes a relay service.
type Config struct {
	// SendBuffer is the per-client outbound event buffer. Events to a
	// client whose buffer is full are dropped.
	SendBuffer int
	// HistoryLimit bounds each session transcript to its most recent N
	// messages. Zero keeps transcripts unbounded.
	HistoryLimit int
	// UserRouting selects the fan-out discipline for user messages.
	UserRouting RoutingMode
}

// Service owns the relay's shared state: the connection registry, the
// session directory, and the transcript store. A single mutex
// serializes every mutation and the fan-out that follows it, so
// directory updates and transcript appends are atomic with respect to
// each other.
type Service struct {
	cfg Config

	mu          sync.Mutex
	closed      bool
	clients     map[string]*Client
	directory   *directory
	transcripts *transcripts
}

// NewService bootstraps the in-memory relay service.
func NewService(cfg Config) *Service {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if cfg.UserRouting == "" {
		cfg.UserRouting = RouteAll
	}
	return &Service{
		cfg:         cfg,
		clients:     make(map[string]*Client),
		directory:   newDirectory(),
		transcripts: newTranscripts(cfg.HistoryLimit),
	}
}

// Accept registers a new connection under a freshly assigned id and
// classifies it by role. Admin connections get a one-shot directory
// snapshot; user connections join the directory, get an empty
// transcript, and trigger a directory broadcast to every connection.
// Returns nil after Close.
func (s *Service) Accept(role relay.Role) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	c := &Client{
		id:     uuid.NewString(),
		role:   role,
		events: make(chan relay.Event, s.cfg.SendBuffer),
	}
	s.clients[c.id] = c

	if role == relay.RoleAdmin {
		s.deliver(c, relay.Event{Name: relay.EventActiveChats, Data: s.directory.snapshot()})
		return c
	}

	if s.directory.add(c.id) {
		s.transcripts.ensure(c.id)
		s.broadcastDirectory()
	}
	return c
}

// Remove unregisters a connection. User connections leave the
// directory and the change is broadcast; admin removals mutate nothing
// beyond the registry. Safe to call more than once.
func (s *Service) Remove(c *Client) {
	if c == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	c.close()

	if c.role == relay.RoleUser && s.directory.remove(c.id) {
		s.broadcastDirectory()
	}
}

// Route records a message under targetID and delivers it according to
// the sender's role: admin messages unicast to the live connection with
// that id (a silent no-op when it is gone; the transcript entry still
// lands), user messages fan out per the configured routing mode. The
// sender role stored and delivered is the connection's, not anything
// the payload claimed.
func (s *Service) Route(from *Client, targetID, body string) relay.Message {
	msg := relay.Message{
		SessionID: targetID,
		Body:      body,
		Sender:    from.Role(),
		SentAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return msg
	}

	s.transcripts.append(msg)

	evt := relay.Event{Name: relay.EventMessage, Data: msg}
	if from.Role() == relay.RoleAdmin {
		if target, ok := s.clients[targetID]; ok {
			s.deliver(target, evt)
		}
		return msg
	}

	for _, c := range s.clients {
		if s.cfg.UserRouting == RouteAdminsOnly && c.role != relay.RoleAdmin && c.id != from.id {
			continue
		}
		s.deliver(c, evt)
	}
	return msg
}

// History returns a copy of the transcript for sessionID in append
// order. Unknown ids yield an empty slice, never an error.
func (s *Service) History(sessionID string) []relay.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcripts.fetch(sessionID)
}

// ActiveChats returns the directory snapshot in connect order.
func (s *Service) ActiveChats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.snapshot()
}

// Close terminates every client's event stream and marks the service
// down; subsequent Accept calls return nil and other operations become
// no-ops. Transcripts are not recoverable past this point.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, c := range s.clients {
		c.close()
		delete(s.clients, id)
	}
}

// broadcastDirectory pushes the full current directory to every
// connection, admin and user alike. Callers hold s.mu.
func (s *Service) broadcastDirectory() {
	snapshot := s.directory.snapshot()
	for _, c := range s.clients {
		s.deliver(c, relay.Event{Name: relay.EventActiveChats, Data: snapshot})
	}
}

// deliver is a best-effort non-blocking send. Callers hold s.mu.
func (s *Service) deliver(c *Client, evt relay.Event) {
	if !c.Send(evt) {
		log.Printf("[relay] dropped %s event for connection %s", evt.Name, c.id)
	}
}
