// Package store provides durability for the settlement engine. The engine's
// in-memory state is authoritative; a Journal is a post-commit sink that
// receives every committed entity so the platform survives restarts and
// feeds downstream reporting. Implementations include PostgreSQL and
// in-memory (for testing and local development).
package store

import (
	"context"

	"github.com/simpletech310/redline/internal/card"
	"github.com/simpletech310/redline/internal/model"
)

// Journal is the durability interface. Saves are upserts keyed by entity id;
// ledger entries are append-only.
type Journal interface {
	// SaveAccount persists a registered account.
	SaveAccount(ctx context.Context, a *model.Account) error

	// SaveRun persists a run's current state, participants and odds included.
	SaveRun(ctx context.Context, r *model.Run) error

	// SavePick persists a pick at placement and again at settlement.
	SavePick(ctx context.Context, p *model.Pick) error

	// AppendLedgerEntry appends one immutable wallet ledger record.
	AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error

	// SaveCard persists a performance card snapshot.
	SaveCard(ctx context.Context, snap card.Snapshot) error

	// SaveSnapshot persists a run's result snapshot, at most one per run.
	SaveSnapshot(ctx context.Context, snap *model.ResultSnapshot) error
}
