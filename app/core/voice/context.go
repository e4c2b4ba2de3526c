package voice

import (
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single exchange unit in a conversation.
type Turn struct {
	Role    Role
	Content string
}

type history struct {
	turns      []Turn
	lastAppend time.Time
}

// ContextBuffer gives the voice endpoint short-term memory. Each caller
// key holds its own rolling window; after any append the oldest turns
// are dropped until the window fits the limit. Keys that stop receiving
// appends are reclaimed by PruneIdle.
type ContextBuffer struct {
	mu        sync.Mutex
	limit     int
	histories map[string]*history
}

func NewContextBuffer(limit int) *ContextBuffer {
	if limit <= 0 {
		limit = 10
	}
	return &ContextBuffer{
		limit:     limit,
		histories: map[string]*history{},
	}
}

func (b *ContextBuffer) AppendUser(key string, content string) {
	b.append(key, Turn{Role: RoleUser, Content: content})
}

func (b *ContextBuffer) AppendAssistant(key string, content string) {
	b.append(key, Turn{Role: RoleAssistant, Content: content})
}

func (b *ContextBuffer) append(key string, turn Turn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.histories[key]
	if !ok {
		h = &history{}
		b.histories[key] = h
	}
	h.turns = append(h.turns, turn)
	if over := len(h.turns) - b.limit; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
	h.lastAppend = time.Now()
}

// History returns the caller's turns oldest first.
func (b *ContextBuffer) History(key string) []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.histories[key]
	if !ok {
		return nil
	}
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of retained turns for a caller.
func (b *ContextBuffer) Len(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.histories[key]
	if !ok {
		return 0
	}
	return len(h.turns)
}

// PruneIdle drops caller keys with no append within the window and
// reports how many were removed.
func (b *ContextBuffer) PruneIdle(window time.Duration) int {
	cutoff := time.Now().Add(-window)
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for key, h := range b.histories {
		if h.lastAppend.Before(cutoff) {
			delete(b.histories, key)
			removed++
		}
	}
	return removed
}
