// Package session keeps per-session chat history.
package session

import (
	"slices"
	"sync"

	"github.com/flarexio/semsearch/llm"
)

// Memory maps a session id to its ordered messages. A positive window
// keeps only the most recent rounds, one round being a user message and
// the assistant reply.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
	window   int
}

func NewMemory(window int) *Memory {
	return &Memory{
		sessions: make(map[string][]llm.Message),
		window:   window,
	}
}

// Messages returns a copy of the session history, oldest first.
func (m *Memory) Messages(id string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.sessions[id])
}

func (m *Memory) Append(id string, msgs ...llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[id], msgs...)

	if limit := m.window * 2; limit > 0 && len(history) > limit {
		history = slices.Clone(history[len(history)-limit:])
	}

	m.sessions[id] = history
}

// Clear drops the session and reports whether it existed.
func (m *Memory) Clear(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Sessions returns the known session ids in sorted order.
func (m *Memory) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids
}
