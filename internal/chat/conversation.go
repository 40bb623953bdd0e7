// Package chat holds the conversational demos: the trip planner and the
// TanyaPajak tax assistant grounded on Vertex AI Search.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleDuration marks the timing note shown after each reply. It is never sent to the model.
	RoleDuration Role = "duration"
)

// ErrSessionNotFound is returned by SessionStore for an unknown id.
var ErrSessionNotFound = errors.New("chat session not found")

// Message is one entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only chat transcript. Values are never mutated in
// place; Append returns a new Conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// NewConversation starts a conversation with the assistant greeting.
func NewConversation(greeting string) Conversation {
	c := Conversation{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	if greeting != "" {
		c.Messages = []Message{{Role: RoleAssistant, Content: greeting}}
	}
	return c
}

// Append returns a copy of c with msgs added at the end.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := c
	out.Messages = make([]Message, 0, len(c.Messages)+len(msgs))
	out.Messages = append(out.Messages, c.Messages...)
	out.Messages = append(out.Messages, msgs...)
	return out
}

// History converts the transcript into model turns. Duration notes and the
// assistant messages before the first user turn are left out.
func (c Conversation) History() []*genai.Content {
	var out []*genai.Content
	for _, m := range c.Messages {
		switch m.Role {
		case RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		case RoleAssistant:
			if len(out) == 0 {
				continue
			}
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return out
}

// SessionStore keeps live conversations for the HTTP layer. It is safe for
// concurrent use; Turn serialises the turns of one conversation.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	// turn is held for the whole of a Turn call.
	turn sync.Mutex

	// conv and ended are guarded by SessionStore.mu.
	conv  Conversation
	ended bool
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session)}
}

// Start creates, stores and returns a new conversation.
func (s *SessionStore) Start(ctx context.Context, greeting string) Conversation {
	c := NewConversation(greeting)
	s.Save(ctx, c)
	return c
}

// Get returns the conversation with id.
func (s *SessionStore) Get(ctx context.Context, id string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Conversation{}, ErrSessionNotFound
	}
	return sess.conv, nil
}

// Save stores c, replacing any earlier value with the same id.
func (s *SessionStore) Save(ctx context.Context, c Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[c.ID]; ok {
		sess.conv = c
		return
	}
	s.sessions[c.ID] = &session{conv: c}
}

// Turn runs fn on the current conversation and stores what it returns. Turns
// on the same id run one at a time, so each sees the previous one's result.
// If the conversation is ended while fn runs, the result is dropped and
// ErrSessionNotFound is returned.
func (s *SessionStore) Turn(ctx context.Context, id string, fn func(Conversation) (Conversation, error)) (Conversation, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Conversation{}, ErrSessionNotFound
	}

	sess.turn.Lock()
	defer sess.turn.Unlock()

	s.mu.RLock()
	conv, ended := sess.conv, sess.ended
	s.mu.RUnlock()
	if ended {
		return Conversation{}, ErrSessionNotFound
	}

	next, err := fn(conv)
	if err != nil {
		return Conversation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ended {
		return Conversation{}, ErrSessionNotFound
	}
	sess.conv = next
	return next, nil
}

// End discards the conversation. A Turn in progress on it will not be stored.
func (s *SessionStore) End(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.ended = true
		delete(s.sessions, id)
	}
}

// Len returns the number of live conversations.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
