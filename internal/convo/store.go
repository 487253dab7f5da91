// Package convo is the keyed conversation store: a concurrent-safe map
// of core.Conversation by ID, plus the per-conversation rate limiter
// exposed as a guardrail. Grounded on the teacher's internal/core/history.go
// (the per-ID accumulation shape) and internal/api/middleware/rate_limit.go
// (the token-bucket-per-client shape, here keyed by conversation ID
// instead of API key/IP).
package convo

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
)

// Store holds one core.Conversation per conversation ID. The zero value
// is not usable; use New.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// New returns an empty Store.
func New() *Store {
	return &Store{conversations: make(map[string]*core.Conversation)}
}

// Open starts a new conversation and returns its ID.
func (s *Store) Open() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.conversations[id] = core.NewConversation(id)
	s.mu.Unlock()
	return id
}

// Get returns the conversation for id, or false if none is open under
// that ID.
func (s *Store) Get(id string) (*core.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok
}

// AppendTurn records a turn against conversation id, opening it
// implicitly if it doesn't already exist (a caller may start sending
// turns under a client-chosen ID without calling Open first).
func (s *Store) AppendTurn(id string, stage core.Stage, text string, results []core.GuardrailResult) core.Turn {
	s.mu.Lock()
	c, ok := s.conversations[id]
	if !ok {
		c = core.NewConversation(id)
		s.conversations[id] = c
	}
	s.mu.Unlock()
	return c.AppendTurn(stage, text, results)
}

// History returns the recorded turns for id, or an error if the
// conversation isn't open.
func (s *Store) History(id string) ([]core.Turn, error) {
	c, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("convo: unknown conversation %q", id)
	}
	return c.History(), nil
}

// Reset discards the recorded turns for id but keeps the conversation
// open.
func (s *Store) Reset(id string) error {
	c, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("convo: unknown conversation %q", id)
	}
	c.Reset()
	return nil
}

// Close removes a conversation from the store entirely. The
// conversation object itself is unaffected if a caller still holds a
// reference to it.
func (s *Store) Close(id string) {
	s.mu.Lock()
	delete(s.conversations, id)
	s.mu.Unlock()
}

// Serialize snapshots conversation id for external persistence (see
// DESIGN.md Open Question 3: the store itself never persists).
func (s *Store) Serialize(id string) ([]byte, error) {
	c, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("convo: unknown conversation %q", id)
	}
	return c.Serialize()
}

// Restore rehydrates a conversation from a snapshot previously produced
// by Serialize and installs it in the store under its original ID.
func (s *Store) Restore(data []byte) (*core.Conversation, error) {
	c, err := core.Restore(data)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.conversations[c.ID()] = c
	s.mu.Unlock()
	return c, nil
}

// Len reports how many conversations are currently open. Used by
// internal/health for a rough memory-pressure signal.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
