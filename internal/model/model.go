// Package model defines the core domain types shared across the settlement
// engine. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is an account's capability set. Roles are mutually exclusive and
// immutable after registration.
type Role string

const (
	RoleSpectator   Role = "Spectator"
	RoleParticipant Role = "Participant"
	RoleTeamOwner   Role = "TeamOwner"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSpectator, RoleParticipant, RoleTeamOwner:
		return true
	}
	return false
}

// CanHoldCard reports whether accounts of this role carry a performance card.
// Spectators only watch and wager; they have no results to track.
func (r Role) CanHoldCard() bool {
	return r == RoleParticipant || r == RoleTeamOwner
}

// RunType distinguishes head-to-head races from bracketed tournaments.
type RunType string

const (
	RunTypeRace       RunType = "Race"
	RunTypeTournament RunType = "Tournament"
)

// RunState is the run lifecycle. PICKS_LOCKED exists only inside settlement's
// critical section; externally a run is OPEN or RESULTS_POSTED.
type RunState string

const (
	RunStateOpen          RunState = "open"
	RunStatePicksLocked   RunState = "picks_locked"
	RunStateResultsPosted RunState = "results_posted"
)

// Account identifies one user. The wallet is owned by id reference; there are
// no back-pointers between Account and Wallet.
type Account struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LedgerEntry is one immutable record of a wallet balance change.
// Once appended, entries are never modified or deleted.
type LedgerEntry struct {
	ID             string          `json:"id" db:"id"`
	WalletOwnerID  string          `json:"wallet_owner_id" db:"wallet_owner_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"` // signed: +credit, -debit
	Description    string          `json:"description" db:"description"`
	Category       string          `json:"category" db:"category"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" db:"idempotency_key"`
	BalanceAfter   decimal.Decimal `json:"balance_after" db:"balance_after"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
}

// Ledger entry categories written by the engine.
const (
	CategoryDeposit       = "deposit"
	CategoryEntryFee      = "entry_fee"
	CategoryPickPlaced    = "pick_placed"
	CategoryRaceWin       = "race_win"
	CategoryPickWin       = "pick_win"
	CategoryAccessFee     = "access_fee"
	CategoryAccessRevenue = "access_revenue"
)

// ResultRecord is one row of a performance card's history, most recent first.
type ResultRecord struct {
	RunName  string    `json:"run_name"`
	Place    int       `json:"place"`
	Time     float64   `json:"time"`
	Recorded time.Time `json:"recorded"`
}

// Run is one scheduled competitive event. The participant list grows only via
// join and preserves insertion order; CurrentOdds is the live pricing map and
// never feeds back into odds already frozen on picks.
type Run struct {
	ID           string                     `json:"id" db:"id"`
	Name         string                     `json:"name" db:"name"`
	Type         RunType                    `json:"type" db:"type"`
	CreatorID    string                     `json:"creator_id" db:"creator_id"`
	Schedule     time.Time                  `json:"schedule" db:"schedule"`
	Location     string                     `json:"location" db:"location"`
	Description  string                     `json:"description" db:"description"`
	ClassTag     string                     `json:"class_tag" db:"class_tag"`
	EntryFee     decimal.Decimal            `json:"entry_fee" db:"entry_fee"`
	AccessFee    decimal.Decimal            `json:"access_fee" db:"access_fee"`
	Participants []string                   `json:"participants"`
	AccessBuyers []string                   `json:"access_buyers,omitempty"`
	PicksEnabled bool                       `json:"picks_enabled" db:"picks_enabled"`
	CurrentOdds  map[string]decimal.Decimal `json:"current_odds"`
	State        RunState                   `json:"state" db:"state"`
	Result       *ResultSnapshot            `json:"result,omitempty"`
	CreatedAt    time.Time                  `json:"created_at" db:"created_at"`
}

// HasParticipant reports whether userID already joined the run.
func (r *Run) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HasAccessBuyer reports whether userID already purchased an access pass.
func (r *Run) HasAccessBuyer(userID string) bool {
	for _, b := range r.AccessBuyers {
		if b == userID {
			return true
		}
	}
	return false
}

// PickOutcome is set exactly once by settlement.
type PickOutcome string

const (
	PickUndetermined PickOutcome = "undetermined"
	PickWon          PickOutcome = "won"
	PickLost         PickOutcome = "lost"
)

// Pick is a stake placed against a run participant at odds frozen at
// placement time. Settlement mutates it exactly once: lock, outcome, payout.
type Pick struct {
	ID          string          `json:"id" db:"id"`
	BettorID    string          `json:"bettor_id" db:"bettor_id"`
	RunID       string          `json:"run_id" db:"run_id"`
	PredictedID string          `json:"predicted_id" db:"predicted_id"`
	Stake       decimal.Decimal `json:"stake" db:"stake"`
	Odds        decimal.Decimal `json:"odds" db:"odds"` // frozen at placement
	Locked      bool            `json:"locked" db:"locked"`
	Outcome     PickOutcome     `json:"outcome" db:"outcome"`
	Payout      decimal.Decimal `json:"payout" db:"payout"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ResultSnapshot is the immutable record produced by settlement,
// at most one per run.
type ResultSnapshot struct {
	ID           string             `json:"id" db:"id"`
	RunID        string             `json:"run_id" db:"run_id"`
	WinnerID     string             `json:"winner_id" db:"winner_id"`
	Times        map[string]float64 `json:"times"`
	WinnerPayout decimal.Decimal    `json:"winner_payout" db:"winner_payout"`
	PlatformCut  decimal.Decimal    `json:"platform_cut" db:"platform_cut"`
	PostedAt     time.Time          `json:"posted_at" db:"posted_at"`
}
