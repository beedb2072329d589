package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simpletech310/redline/internal/card"
	"github.com/simpletech310/redline/internal/model"
)

// PostgresJournal implements Journal using PostgreSQL. All monetary values
// are stored as NUMERIC for exact decimal precision; list- and map-shaped
// fields (participants, odds, times, history) are stored as JSONB.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// NewPostgresJournal creates a new PostgreSQL-backed journal.
func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

func (j *PostgresJournal) SaveAccount(ctx context.Context, a *model.Account) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO accounts (id, username, role, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Username, string(a.Role), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

func (j *PostgresJournal) SaveRun(ctx context.Context, r *model.Run) error {
	participants, err := json.Marshal(r.Participants)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	accessBuyers, err := json.Marshal(r.AccessBuyers)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	odds, err := json.Marshal(r.CurrentOdds)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}

	_, err = j.pool.Exec(ctx,
		`INSERT INTO runs (id, name, type, creator_id, schedule, location, description,
		                   class_tag, entry_fee, access_fee, participants, access_buyers,
		                   picks_enabled, current_odds, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::NUMERIC, $10::NUMERIC, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		   participants = EXCLUDED.participants,
		   access_buyers = EXCLUDED.access_buyers,
		   current_odds = EXCLUDED.current_odds,
		   state = EXCLUDED.state`,
		r.ID, r.Name, string(r.Type), r.CreatorID, r.Schedule, r.Location, r.Description,
		r.ClassTag, r.EntryFee.String(), r.AccessFee.String(), participants, accessBuyers,
		r.PicksEnabled, odds, string(r.State), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

func (j *PostgresJournal) SavePick(ctx context.Context, p *model.Pick) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO picks (id, bettor_id, run_id, predicted_id, stake, odds,
		                    locked, outcome, payout, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7, $8, $9::NUMERIC, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   locked = EXCLUDED.locked,
		   outcome = EXCLUDED.outcome,
		   payout = EXCLUDED.payout`,
		p.ID, p.BettorID, p.RunID, p.PredictedID, p.Stake.String(), p.Odds.String(),
		p.Locked, string(p.Outcome), p.Payout.String(), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pick %s: %w", p.ID, err)
	}
	return nil
}

func (j *PostgresJournal) AppendLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO ledger_entries (id, wallet_owner_id, amount, description, category,
		                             idempotency_key, balance_after, timestamp)
		 VALUES ($1, $2, $3::NUMERIC, $4, $5, NULLIF($6, ''), $7::NUMERIC, $8)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.WalletOwnerID, e.Amount.String(), e.Description, e.Category,
		e.IdempotencyKey, e.BalanceAfter.String(), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry %s: %w", e.ID, err)
	}
	return nil
}

func (j *PostgresJournal) SaveCard(ctx context.Context, snap card.Snapshot) error {
	history, err := json.Marshal(snap.History)
	if err != nil {
		return fmt.Errorf("save card %s: %w", snap.OwnerID, err)
	}

	_, err = j.pool.Exec(ctx,
		`INSERT INTO cards (owner_id, total_runs, wins, podiums, best_time, avg_time,
		                    trust_score, history)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (owner_id) DO UPDATE SET
		   total_runs = EXCLUDED.total_runs,
		   wins = EXCLUDED.wins,
		   podiums = EXCLUDED.podiums,
		   best_time = EXCLUDED.best_time,
		   avg_time = EXCLUDED.avg_time,
		   trust_score = EXCLUDED.trust_score,
		   history = EXCLUDED.history`,
		snap.OwnerID, snap.TotalRuns, snap.Wins, snap.Podiums, snap.BestTime, snap.AvgTime,
		snap.TrustScore, history,
	)
	if err != nil {
		return fmt.Errorf("save card %s: %w", snap.OwnerID, err)
	}
	return nil
}

func (j *PostgresJournal) SaveSnapshot(ctx context.Context, snap *model.ResultSnapshot) error {
	times, err := json.Marshal(snap.Times)
	if err != nil {
		return fmt.Errorf("save snapshot for run %s: %w", snap.RunID, err)
	}

	// run_id carries a unique constraint: the first snapshot wins, ever.
	_, err = j.pool.Exec(ctx,
		`INSERT INTO result_snapshots (id, run_id, winner_id, times, winner_payout,
		                               platform_cut, posted_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (run_id) DO NOTHING`,
		snap.ID, snap.RunID, snap.WinnerID, times, snap.WinnerPayout.String(),
		snap.PlatformCut.String(), snap.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("save snapshot for run %s: %w", snap.RunID, err)
	}
	return nil
}
