// Package registry is indexed storage of picks, keyed by run and by bettor.
// Enumeration is stable in insertion order so settlement and tests are
// deterministic. No business rules live here.
package registry

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/model"
)

// Registry holds all picks. Safe for concurrent use; readers get copies.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*model.Pick
	byRun    map[string][]*model.Pick
	byBettor map[string][]*model.Pick
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:     make(map[string]*model.Pick),
		byRun:    make(map[string][]*model.Pick),
		byBettor: make(map[string][]*model.Pick),
	}
}

// Add stores a pick and indexes it by run and bettor.
func (r *Registry) Add(p model.Pick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := p
	r.byID[p.ID] = &stored
	r.byRun[p.RunID] = append(r.byRun[p.RunID], &stored)
	r.byBettor[p.BettorID] = append(r.byBettor[p.BettorID], &stored)
}

// Get returns a copy of one pick.
func (r *Registry) Get(id string) (model.Pick, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return model.Pick{}, false
	}
	return *p, true
}

// ByRun returns copies of a run's picks in insertion order.
func (r *Registry) ByRun(runID string) []model.Pick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyPicks(r.byRun[runID])
}

// ByBettor returns copies of a bettor's picks in insertion order.
func (r *Registry) ByBettor(bettorID string) []model.Pick {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyPicks(r.byBettor[bettorID])
}

// Settle locks a pick and records its outcome and payout, exactly once.
// Returns the updated pick, or ok=false for an unknown id. A second call on
// a locked pick is a no-op returning the stored state.
func (r *Registry) Settle(id string, outcome model.PickOutcome, payout decimal.Decimal) (model.Pick, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return model.Pick{}, false
	}
	if p.Locked {
		return *p, true
	}
	p.Locked = true
	p.Outcome = outcome
	p.Payout = payout
	return *p, true
}

func copyPicks(src []*model.Pick) []model.Pick {
	out := make([]model.Pick, len(src))
	for i, p := range src {
		out[i] = *p
	}
	return out
}
