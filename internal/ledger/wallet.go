// Package ledger implements the wallet ledger — the unit of monetary truth.
//
// Each wallet owns one balance and an append-only transaction log. Balance
// mutation and log append happen together under the wallet's own mutex, so a
// committed operation is never observable half-applied. Entries are immutable
// once appended.
//
// An optional idempotency key gives credit/debit at-most-once semantics under
// retried external triggers (e.g. payment-provider callbacks): a repeated key
// is a no-op that returns the prior entry and reports the replay, so callers
// can keep once-per-entry side effects (journaling, counters) exact.
//
// All monetary values use shopspring/decimal — never float64 for money.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/model"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	// The wallet is left untouched.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrNonPositiveAmount is returned when a credit or debit amount is
	// zero or negative. Direction is carried by the operation, not the sign.
	ErrNonPositiveAmount = errors.New("ledger: amount must be positive")
)

// MoneyScale is the number of decimal places money is rounded to at the
// point of emission. Intermediate arithmetic stays unrounded.
const MoneyScale int32 = 2

// Wallet is one account's monetary state. Safe for concurrent use; every
// credit/debit is a self-contained critical section.
type Wallet struct {
	mu      sync.Mutex
	ownerID string
	balance decimal.Decimal
	entries []model.LedgerEntry
	byKey   map[string]int // idempotency key → entry index
}

// NewWallet creates an empty wallet owned by the given account.
func NewWallet(ownerID string) *Wallet {
	return &Wallet{
		ownerID: ownerID,
		balance: decimal.Zero,
		byKey:   make(map[string]int),
	}
}

// OwnerID returns the owning account id.
func (w *Wallet) OwnerID() string {
	return w.ownerID
}

// Balance returns the current balance.
func (w *Wallet) Balance() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Entries returns a copy of the ledger in append order.
func (w *Wallet) Entries() []model.LedgerEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.LedgerEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Credit adds amount to the balance and appends one ledger entry.
// A repeated idempotency key returns the prior entry without effect and
// reports replayed=true, so callers can skip once-per-entry side effects.
func (w *Wallet) Credit(amount decimal.Decimal, description, category, idempotencyKey string) (entry model.LedgerEntry, replayed bool, err error) {
	if !amount.IsPositive() {
		return model.LedgerEntry{}, false, ErrNonPositiveAmount
	}
	return w.apply(amount, description, category, idempotencyKey)
}

// Debit subtracts amount from the balance and appends one ledger entry.
// Fails with ErrInsufficientFunds when amount exceeds the balance; the
// failure never partially applies. Replay semantics match Credit.
func (w *Wallet) Debit(amount decimal.Decimal, description, category, idempotencyKey string) (entry model.LedgerEntry, replayed bool, err error) {
	if !amount.IsPositive() {
		return model.LedgerEntry{}, false, ErrNonPositiveAmount
	}
	return w.apply(amount.Neg(), description, category, idempotencyKey)
}

// apply is the single mutation path. signed > 0 credits, signed < 0 debits.
func (w *Wallet) apply(signed decimal.Decimal, description, category, idempotencyKey string) (model.LedgerEntry, bool, error) {
	signed = signed.Round(MoneyScale)
	if signed.IsZero() {
		return model.LedgerEntry{}, false, ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if idempotencyKey != "" {
		if idx, ok := w.byKey[idempotencyKey]; ok {
			return w.entries[idx], true, nil
		}
	}

	next := w.balance.Add(signed)
	if next.IsNegative() {
		return model.LedgerEntry{}, false, ErrInsufficientFunds
	}

	entry := model.LedgerEntry{
		ID:             uuid.New().String(),
		WalletOwnerID:  w.ownerID,
		Amount:         signed,
		Description:    description,
		Category:       category,
		IdempotencyKey: idempotencyKey,
		BalanceAfter:   next,
		Timestamp:      time.Now().UTC(),
	}

	w.balance = next
	w.entries = append(w.entries, entry)
	if idempotencyKey != "" {
		w.byKey[idempotencyKey] = len(w.entries) - 1
	}
	return entry, false, nil
}
