package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
)

var (
	ErrAssistantRequired = errors.New("assistant id is required")
	ErrSessionNotFound   = errors.New("session not found")
	ErrMessageNotFound   = errors.New("message not found")
)

// EventKind distinguishes transcript mutations delivered to subscribers.
type EventKind string

const (
	EventAppended EventKind = "message.appended"
	EventReplaced EventKind = "message.replaced"
)

// Event is published for every transcript mutation.
type Event struct {
	Kind    EventKind    `json:"kind"`
	Message chat.Message `json:"message"`
}

const subscriberBuffer = 32

// Service encapsulates conversation state management.
type Service struct {
	mu          sync.RWMutex
	sessions    map[string]chat.Session
	messages    map[string][]chat.Message
	subscribers map[string]map[int]chan Event
	nextSubID   int
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		sessions:    make(map[string]chat.Session),
		messages:    make(map[string][]chat.Message),
		subscribers: make(map[string]map[int]chan Event),
	}
}

// CreateSession provisions an anonymous session bound to an assistant.
func (s *Service) CreateSession(_ context.Context, assistantID string) (chat.Session, error) {
	if assistantID == "" {
		return chat.Session{}, ErrAssistantRequired
	}

	session := chat.Session{
		ID:          uuid.NewString(),
		AssistantID: assistantID,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// Append adds a message to the session history and returns the stored copy.
// An ID is generated when the caller leaves it empty.
func (s *Service) Append(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	if _, ok := s.sessions[message.SessionID]; !ok {
		s.mu.Unlock()
		return chat.Message{}, ErrSessionNotFound
	}

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	s.publishLocked(message.SessionID, Event{Kind: EventAppended, Message: message})
	s.mu.Unlock()

	return message, nil
}

// Replace swaps the message with the same ID in place, keeping its position
// and creation time.
func (s *Service) Replace(_ context.Context, message chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript, ok := s.messages[message.SessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	for i := range transcript {
		if transcript[i].ID != message.ID {
			continue
		}
		message.CreatedAt = transcript[i].CreatedAt
		transcript[i] = message
		s.publishLocked(message.SessionID, Event{Kind: EventReplaced, Message: message})
		return message, nil
	}
	return chat.Message{}, ErrMessageNotFound
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// FindByCorrelation looks up a bot message by the messageId sent to the webhook.
func (s *Service) FindByCorrelation(_ context.Context, sessionID, correlationID string) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}
	for _, m := range messages {
		if correlationID != "" && m.CorrelationID == correlationID {
			return m, nil
		}
	}
	return chat.Message{}, ErrMessageNotFound
}

// Subscribe streams transcript events for a session until cancel is called.
// Slow subscribers miss events rather than blocking writers.
func (s *Service) Subscribe(sessionID string) (<-chan Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, nil, ErrSessionNotFound
	}

	id := s.nextSubID
	s.nextSubID++

	ch := make(chan Event, subscriberBuffer)
	if s.subscribers[sessionID] == nil {
		s.subscribers[sessionID] = make(map[int]chan Event)
	}
	s.subscribers[sessionID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if subs, ok := s.subscribers[sessionID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(s.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (s *Service) publishLocked(sessionID string, event Event) {
	for _, ch := range s.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
		}
	}
}
