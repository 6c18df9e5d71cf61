package banding

import (
	"context"
	"sync"

	"github.com/wonny/factorband/internal/contracts"
)

// MemoryStore keeps banding state in process memory
type MemoryStore struct {
	mu     sync.Mutex
	states map[string][]contracts.Holding
}

// NewMemoryStore creates an empty state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]contracts.Holding)}
}

var _ contracts.BandingStateStore = (*MemoryStore)(nil)

// Load returns a copy of the strategy's state; unknown strategies start empty
func (m *MemoryStore) Load(_ context.Context, strategy string) (*contracts.BandingState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &contracts.BandingState{Strategy: strategy}
	for _, h := range m.states[strategy] {
		h := h
		state.Holdings = append(state.Holdings, &h)
	}
	return state, nil
}

// UpsertHolding inserts or replaces the record keyed by (ticker, entry date)
func (m *MemoryStore) UpsertHolding(_ context.Context, strategy string, h *contracts.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.states[strategy]
	for i := range rows {
		if rows[i].Ticker == h.Ticker && rows[i].EntryDate.Equal(h.EntryDate) {
			rows[i] = *h
			return nil
		}
	}
	m.states[strategy] = append(rows, *h)
	return nil
}
