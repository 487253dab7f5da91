package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ConversationKind distinguishes a fresh conversation from one restored
// from a caller-supplied serialization (Conversation.Restore).
type ConversationKind string

const (
	ConversationNew      ConversationKind = "new"
	ConversationRestored ConversationKind = "restored"
)

// Turn is one exchange recorded against a conversation: the content that
// was checked and the verdicts the pipeline reached for it.
type Turn struct {
	Sequence  int               `json:"sequence"`
	Stage     Stage             `json:"stage"`
	Text      string            `json:"text"`
	Results   []GuardrailResult `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
}

// Conversation accumulates turns for a single conversation ID. It is
// safe for concurrent use: internal/convo.Store holds one Conversation
// per ID and callers reach it only through the store's locking.
type Conversation struct {
	mu   sync.RWMutex
	id   string
	kind ConversationKind
	turns []Turn
	next  int
}

// NewConversation starts an empty conversation.
func NewConversation(id string) *Conversation {
	return &Conversation{id: id, kind: ConversationNew}
}

func (c *Conversation) ID() string { return c.id }

// AppendTurn records a turn. Sequence numbers are monotonic and
// gap-free starting at 0, assigned by the conversation itself so two
// concurrent callers can never collide or skip a number.
func (c *Conversation) AppendTurn(stage Stage, text string, results []GuardrailResult) Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Turn{
		Sequence:  c.next,
		Stage:     stage,
		Text:      text,
		Results:   results,
		Timestamp: time.Now(),
	}
	c.turns = append(c.turns, t)
	c.next++
	return t
}

// History returns a copy of the recorded turns in order.
func (c *Conversation) History() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Reset discards all recorded turns but keeps the conversation ID and
// sequence counter at zero, as if the conversation had just been opened.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.next = 0
}

// conversationSnapshot is the wire shape for Serialize/Restore. It is
// deliberately small: just enough for a caller to persist and rehydrate
// a conversation across a process restart, which internal/convo itself
// does not do (see DESIGN.md Open Question 3).
type conversationSnapshot struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
	Next  int    `json:"next"`
}

// Serialize returns a caller-opaque snapshot of the conversation state.
func (c *Conversation) Serialize() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.Marshal(conversationSnapshot{ID: c.id, Turns: c.turns, Next: c.next})
	if err != nil {
		return nil, fmt.Errorf("serialize conversation: %w", err)
	}
	return data, nil
}

// Restore rehydrates a conversation from a snapshot previously produced
// by Serialize. The resulting conversation reports ConversationRestored
// from Kind.
func Restore(data []byte) (*Conversation, error) {
	var snap conversationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("restore conversation: %w", err)
	}
	return &Conversation{
		id:    snap.ID,
		kind:  ConversationRestored,
		turns: snap.Turns,
		next:  snap.Next,
	}, nil
}

// Kind reports whether the conversation was freshly opened or restored
// from a snapshot.
func (c *Conversation) Kind() ConversationKind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind
}
