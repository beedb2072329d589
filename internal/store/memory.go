package store

import (
	"context"
	"sync"

	"github.com/simpletech310/redline/internal/card"
	"github.com/simpletech310/redline/internal/model"
)

// MemoryJournal implements Journal with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryJournal struct {
	mu        sync.RWMutex
	accounts  map[string]model.Account
	runs      map[string]model.Run
	picks     map[string]model.Pick
	cards     map[string]card.Snapshot
	snapshots map[string]model.ResultSnapshot // keyed by run id
	ledger    []model.LedgerEntry
	ledgerIDs map[string]bool
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		accounts:  make(map[string]model.Account),
		runs:      make(map[string]model.Run),
		picks:     make(map[string]model.Pick),
		cards:     make(map[string]card.Snapshot),
		snapshots: make(map[string]model.ResultSnapshot),
		ledgerIDs: make(map[string]bool),
	}
}

func (j *MemoryJournal) SaveAccount(_ context.Context, a *model.Account) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.accounts[a.ID] = *a
	return nil
}

func (j *MemoryJournal) SaveRun(_ context.Context, r *model.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs[r.ID] = *r
	return nil
}

func (j *MemoryJournal) SavePick(_ context.Context, p *model.Pick) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.picks[p.ID] = *p
	return nil
}

// AppendLedgerEntry records one entry, skipping ids seen before — the same
// at-most-once semantics the Postgres journal gets from ON CONFLICT DO NOTHING.
func (j *MemoryJournal) AppendLedgerEntry(_ context.Context, e *model.LedgerEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.ledgerIDs[e.ID] {
		return nil
	}
	j.ledgerIDs[e.ID] = true
	j.ledger = append(j.ledger, *e)
	return nil
}

func (j *MemoryJournal) SaveCard(_ context.Context, snap card.Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cards[snap.OwnerID] = snap
	return nil
}

func (j *MemoryJournal) SaveSnapshot(_ context.Context, snap *model.ResultSnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshots[snap.RunID] = *snap
	return nil
}

// --- Test accessors ---

// Run returns the journaled state of one run.
func (j *MemoryJournal) Run(id string) (model.Run, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	r, ok := j.runs[id]
	return r, ok
}

// Pick returns the journaled state of one pick.
func (j *MemoryJournal) Pick(id string) (model.Pick, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	p, ok := j.picks[id]
	return p, ok
}

// Snapshot returns the journaled result snapshot for a run.
func (j *MemoryJournal) Snapshot(runID string) (model.ResultSnapshot, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s, ok := j.snapshots[runID]
	return s, ok
}

// LedgerEntries returns all journaled entries for one wallet owner,
// in append order.
func (j *MemoryJournal) LedgerEntries(ownerID string) []model.LedgerEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []model.LedgerEntry
	for _, e := range j.ledger {
		if e.WalletOwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out
}

// LedgerLen returns the total number of journaled ledger entries.
func (j *MemoryJournal) LedgerLen() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.ledger)
}
