// Package engine owns the platform's authoritative in-memory state and the
// operations over it: account registration, run lifecycle, pick placement,
// and settlement. Every run has one exclusive critical section covering guard
// evaluation, participant mutation, odds recomputation, and lifecycle
// transitions; wallets carry their own locks. Durability and side channels
// (journal, Redis, WebSocket) run after a critical section commits, never
// inside it.
//
// All monetary values use shopspring/decimal — never float64 for money.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/card"
	"github.com/simpletech310/redline/internal/ledger"
	"github.com/simpletech310/redline/internal/metrics"
	"github.com/simpletech310/redline/internal/model"
	"github.com/simpletech310/redline/internal/odds"
	"github.com/simpletech310/redline/internal/registry"
	"github.com/simpletech310/redline/internal/store"
)

// DefaultCutRatio is the platform's share of every settled pool.
var DefaultCutRatio = decimal.NewFromFloat(0.10)

// Publisher pushes committed odds and results to a side channel (Redis).
// Implementations must tolerate being called outside any critical section.
type Publisher interface {
	PublishOdds(ctx context.Context, runID string, quoted map[string]decimal.Decimal) error
	PublishResult(ctx context.Context, snap *model.ResultSnapshot) error
}

// Service is the settlement and ledger engine. One instance owns all
// accounts, wallets, cards, runs, and picks for the process; lifecycle is
// tied to process start/stop.
type Service struct {
	cutRatio decimal.Decimal

	mu        sync.RWMutex
	accounts  map[string]*model.Account
	usernames map[string]string // username → account id
	wallets   map[string]*ledger.Wallet
	cards     map[string]*card.Card
	runs      map[string]*model.Run
	runOrder  []string
	runLocks  map[string]*sync.Mutex

	picks *registry.Registry

	journal   store.Journal
	publisher Publisher // optional
	hub       *Hub      // optional WebSocket hub
}

// NewService creates an engine backed by the given journal.
// Pass nil for publisher and hub when Redis/WebSocket fan-out is not needed.
func NewService(journal store.Journal, publisher Publisher, hub *Hub) *Service {
	return &Service{
		cutRatio:  DefaultCutRatio,
		accounts:  make(map[string]*model.Account),
		usernames: make(map[string]string),
		wallets:   make(map[string]*ledger.Wallet),
		cards:     make(map[string]*card.Card),
		runs:      make(map[string]*model.Run),
		runLocks:  make(map[string]*sync.Mutex),
		picks:     registry.New(),
		journal:   journal,
		publisher: publisher,
		hub:       hub,
	}
}

// SetCutRatio overrides the platform cut. Must be called before serving.
func (s *Service) SetCutRatio(r decimal.Decimal) {
	if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return
	}
	s.cutRatio = r
}

// --- Accounts & wallets ---

// RegisterAccount creates an account with its wallet and, for roles that
// compete, a performance card. The role is immutable thereafter.
func (s *Service) RegisterAccount(ctx context.Context, username string, role model.Role) (model.Account, error) {
	if !role.Valid() {
		return model.Account{}, ErrInvalidRole
	}

	s.mu.Lock()
	if _, taken := s.usernames[username]; taken || username == "" {
		s.mu.Unlock()
		return model.Account{}, ErrUsernameTaken
	}

	acct := &model.Account{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[acct.ID] = acct
	s.usernames[username] = acct.ID
	s.wallets[acct.ID] = ledger.NewWallet(acct.ID)
	if role.CanHoldCard() {
		s.cards[acct.ID] = card.New(acct.ID)
	}
	s.mu.Unlock()

	s.journalSaveAccount(ctx, acct)
	slog.Info("account registered", "account", acct.ID, "username", username, "role", role)
	return *acct, nil
}

// Deposit credits a wallet from an external payment provider. The provider
// reference doubles as the idempotency key, so a retried callback applies
// at most once.
func (s *Service) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (model.LedgerEntry, error) {
	if !amount.IsPositive() {
		return model.LedgerEntry{}, ErrNonPositiveAmount
	}
	w := s.wallet(userID)
	if w == nil {
		return model.LedgerEntry{}, ErrWalletNotFound
	}

	key := ""
	if externalRef != "" {
		key = "deposit:" + externalRef
	}
	entry, replayed, err := w.Credit(amount, "Deposit", model.CategoryDeposit, key)
	if err != nil {
		return model.LedgerEntry{}, mapLedgerErr(err)
	}
	if replayed {
		return entry, nil
	}

	s.journalAppendEntry(ctx, entry)
	metrics.DepositsTotal.Inc()
	return entry, nil
}

// WalletView is a read-only snapshot of a wallet.
type WalletView struct {
	OwnerID string              `json:"owner_id"`
	Balance decimal.Decimal     `json:"balance"`
	Entries []model.LedgerEntry `json:"entries"`
}

// GetWallet returns the wallet balance and full ledger for an account.
func (s *Service) GetWallet(userID string) (WalletView, error) {
	w := s.wallet(userID)
	if w == nil {
		return WalletView{}, ErrWalletNotFound
	}
	return WalletView{OwnerID: userID, Balance: w.Balance(), Entries: w.Entries()}, nil
}

// GetCard returns the performance card snapshot for an account.
func (s *Service) GetCard(userID string) (card.Snapshot, error) {
	c := s.card(userID)
	if c == nil {
		return card.Snapshot{}, ErrCardNotFound
	}
	return c.Snapshot(), nil
}

// --- Runs ---

// CreateRunParams carries run creation input. Money fields are decimal;
// a zero AccessFee means no access passes are sold.
type CreateRunParams struct {
	Name         string
	Type         model.RunType
	Schedule     time.Time
	Location     string
	Description  string
	ClassTag     string
	EntryFee     decimal.Decimal
	AccessFee    decimal.Decimal
	PicksEnabled bool
}

// CreateRun creates a run. Spectators may not create runs; participants may
// not create tournaments. A participant-role creator is seeded as the first
// participant and pays the entry fee immediately, keeping the entry pool
// fully funded from the start.
func (s *Service) CreateRun(ctx context.Context, creatorID string, p CreateRunParams) (model.Run, error) {
	creator := s.account(creatorID)
	if creator == nil {
		return model.Run{}, ErrCreatorNotFound
	}
	if creator.Role == model.RoleSpectator {
		return model.Run{}, ErrRoleNotAllowedForType
	}
	if creator.Role == model.RoleParticipant && p.Type == model.RunTypeTournament {
		return model.Run{}, ErrRoleNotAllowedForType
	}
	if p.EntryFee.IsNegative() || p.AccessFee.IsNegative() {
		return model.Run{}, ErrNonPositiveAmount
	}

	run := &model.Run{
		ID:           uuid.New().String(),
		Name:         p.Name,
		Type:         p.Type,
		CreatorID:    creatorID,
		Schedule:     p.Schedule,
		Location:     p.Location,
		Description:  p.Description,
		ClassTag:     p.ClassTag,
		EntryFee:     p.EntryFee.Round(ledger.MoneyScale),
		AccessFee:    p.AccessFee.Round(ledger.MoneyScale),
		PicksEnabled: p.PicksEnabled,
		CurrentOdds:  map[string]decimal.Decimal{},
		State:        model.RunStateOpen,
		CreatedAt:    time.Now().UTC(),
	}

	var creatorEntry model.LedgerEntry
	if creator.Role == model.RoleParticipant {
		if run.EntryFee.IsPositive() {
			w := s.wallet(creatorID)
			if w == nil {
				return model.Run{}, ErrWalletNotFound
			}
			entry, _, err := w.Debit(run.EntryFee, "Entry fee - "+run.Name, model.CategoryEntryFee, "entry:"+run.ID+":"+creatorID)
			if err != nil {
				return model.Run{}, mapLedgerErr(err)
			}
			creatorEntry = entry
		}
		run.Participants = append(run.Participants, creatorID)
		s.recomputeOdds(run)
	}

	snap := s.snapshotRun(run)

	s.mu.Lock()
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)
	s.runLocks[run.ID] = &sync.Mutex{}
	s.mu.Unlock()

	if creatorEntry.ID != "" {
		s.journalAppendEntry(ctx, creatorEntry)
	}
	s.journalSaveRun(ctx, snap)
	s.publishOdds(ctx, snap)
	metrics.RunsCreatedTotal.Inc()
	slog.Info("run created", "run", run.ID, "name", run.Name, "type", run.Type, "entry_fee", run.EntryFee.String())
	return snap, nil
}

// GetRun returns a copy of one run, current odds included.
func (s *Service) GetRun(runID string) (model.Run, error) {
	run, lock := s.runWithLock(runID)
	if run == nil {
		return model.Run{}, ErrRunNotFound
	}
	lock.Lock()
	defer lock.Unlock()
	return s.snapshotRun(run), nil
}

// ListRuns returns copies of all runs in creation order.
func (s *Service) ListRuns() []model.Run {
	s.mu.RLock()
	order := make([]string, len(s.runOrder))
	copy(order, s.runOrder)
	s.mu.RUnlock()

	out := make([]model.Run, 0, len(order))
	for _, id := range order {
		if run, err := s.GetRun(id); err == nil {
			out = append(out, run)
		}
	}
	return out
}

// JoinRun adds a participant to an open run, charging the entry fee and
// recomputing live odds. Guard failures leave the run and wallet untouched.
func (s *Service) JoinRun(ctx context.Context, userID, runID string) (model.Run, error) {
	run, lock := s.runWithLock(runID)
	if run == nil {
		return model.Run{}, ErrRunNotFound
	}
	acct := s.account(userID)
	if acct == nil {
		return model.Run{}, ErrAccountNotFound
	}
	w := s.wallet(userID)
	if w == nil {
		return model.Run{}, ErrWalletNotFound
	}

	lock.Lock()

	if run.State != model.RunStateOpen {
		lock.Unlock()
		return model.Run{}, ErrRunClosed
	}
	if acct.Role != model.RoleParticipant {
		lock.Unlock()
		return model.Run{}, ErrNotAParticipantRole
	}
	if run.HasParticipant(userID) {
		lock.Unlock()
		return model.Run{}, ErrAlreadyJoined
	}

	var entry model.LedgerEntry
	if run.EntryFee.IsPositive() {
		var err error
		entry, _, err = w.Debit(run.EntryFee, "Entry fee - "+run.Name, model.CategoryEntryFee, "entry:"+run.ID+":"+userID)
		if err != nil {
			lock.Unlock()
			return model.Run{}, mapLedgerErr(err)
		}
	}

	run.Participants = append(run.Participants, userID)
	s.recomputeOdds(run)
	snap := s.snapshotRun(run)
	lock.Unlock()

	if entry.ID != "" {
		s.journalAppendEntry(ctx, entry)
	}
	s.journalSaveRun(ctx, snap)
	s.publishOdds(ctx, snap)
	s.broadcastOdds(snap)
	slog.Info("run joined", "run", runID, "account", userID, "participants", len(snap.Participants))
	return snap, nil
}

// PurchaseAccess sells an access pass to a run that offers one. The access
// pool is distributed to the creator at settlement, minus the platform cut.
func (s *Service) PurchaseAccess(ctx context.Context, userID, runID string) (model.Run, error) {
	run, lock := s.runWithLock(runID)
	if run == nil {
		return model.Run{}, ErrRunNotFound
	}
	if s.account(userID) == nil {
		return model.Run{}, ErrAccountNotFound
	}
	w := s.wallet(userID)
	if w == nil {
		return model.Run{}, ErrWalletNotFound
	}

	lock.Lock()

	if run.State != model.RunStateOpen {
		lock.Unlock()
		return model.Run{}, ErrRunClosed
	}
	if !run.AccessFee.IsPositive() {
		lock.Unlock()
		return model.Run{}, ErrNoAccessPass
	}
	if run.HasAccessBuyer(userID) {
		lock.Unlock()
		return model.Run{}, ErrAccessAlreadyOwned
	}

	entry, _, err := w.Debit(run.AccessFee, "Access pass - "+run.Name, model.CategoryAccessFee, "access:"+run.ID+":"+userID)
	if err != nil {
		lock.Unlock()
		return model.Run{}, mapLedgerErr(err)
	}

	run.AccessBuyers = append(run.AccessBuyers, userID)
	snap := s.snapshotRun(run)
	lock.Unlock()

	s.journalAppendEntry(ctx, entry)
	s.journalSaveRun(ctx, snap)
	slog.Info("access purchased", "run", runID, "account", userID)
	return snap, nil
}

// --- Picks ---

// PlacePick stakes a prediction on an open run. Odds are recomputed
// immediately before pricing and frozen on the pick; later recomputation
// never touches them.
func (s *Service) PlacePick(ctx context.Context, userID, runID, predictedID string, stake decimal.Decimal) (model.Pick, error) {
	run, lock := s.runWithLock(runID)
	if run == nil {
		return model.Pick{}, ErrRunNotFound
	}
	acct := s.account(userID)
	if acct == nil {
		return model.Pick{}, ErrAccountNotFound
	}
	w := s.wallet(userID)
	if w == nil {
		return model.Pick{}, ErrWalletNotFound
	}
	if acct.Role == model.RoleTeamOwner {
		return model.Pick{}, ErrRoleCannotPick
	}

	lock.Lock()

	if run.State != model.RunStateOpen {
		lock.Unlock()
		return model.Pick{}, ErrPicksLocked
	}
	if !run.PicksEnabled {
		lock.Unlock()
		return model.Pick{}, ErrPicksDisabled
	}
	if !run.HasParticipant(predictedID) {
		lock.Unlock()
		return model.Pick{}, ErrInvalidPrediction
	}
	if !stake.IsPositive() {
		lock.Unlock()
		return model.Pick{}, ErrNonPositiveStake
	}

	// Price at live odds, frozen on the pick from here on.
	s.recomputeOdds(run)
	frozen := run.CurrentOdds[predictedID]

	entry, _, err := w.Debit(stake, "Pick placed - "+run.Name, model.CategoryPickPlaced, "")
	if err != nil {
		lock.Unlock()
		return model.Pick{}, mapLedgerErr(err)
	}

	pick := model.Pick{
		ID:          uuid.New().String(),
		BettorID:    userID,
		RunID:       runID,
		PredictedID: predictedID,
		Stake:       stake.Round(ledger.MoneyScale),
		Odds:        frozen,
		Outcome:     model.PickUndetermined,
		Payout:      decimal.Zero,
		CreatedAt:   time.Now().UTC(),
	}
	s.picks.Add(pick)
	snap := s.snapshotRun(run)
	lock.Unlock()

	s.journalAppendEntry(ctx, entry)
	s.journalSavePick(ctx, &pick)
	s.publishOdds(ctx, snap)
	s.broadcastOdds(snap)
	metrics.PicksPlacedTotal.Inc()
	slog.Info("pick placed", "pick", pick.ID, "run", runID, "bettor", userID,
		"predicted", predictedID, "stake", pick.Stake.String(), "odds", frozen.String())
	return pick, nil
}

// ListPicks returns a run's picks in placement order.
func (s *Service) ListPicks(runID string) ([]model.Pick, error) {
	if run, _ := s.runWithLock(runID); run == nil {
		return nil, ErrRunNotFound
	}
	return s.picks.ByRun(runID), nil
}

// --- Internal lookups (short map reads under s.mu) ---

func (s *Service) account(id string) *model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[id]
}

func (s *Service) wallet(id string) *ledger.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallets[id]
}

func (s *Service) card(id string) *card.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cards[id]
}

func (s *Service) runWithLock(id string) (*model.Run, *sync.Mutex) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id], s.runLocks[id]
}

// mustWallet panics on a dangling internal reference: every registered
// account owns a wallet, so a miss is a programmer-invariant violation,
// not a recoverable caller error.
func (s *Service) mustWallet(id string) *ledger.Wallet {
	w := s.wallet(id)
	if w == nil {
		panic(fmt.Sprintf("engine: wallet missing for account %s", id))
	}
	return w
}

// recomputeOdds refreshes the run's live odds map from participant cards.
// Caller holds the run lock. Frozen odds on existing picks are untouched.
func (s *Service) recomputeOdds(run *model.Run) {
	stats := make(map[string]odds.ParticipantStats, len(run.Participants))
	for _, pid := range run.Participants {
		if c := s.card(pid); c != nil {
			snap := c.Snapshot()
			stats[pid] = odds.ParticipantStats{
				TotalRuns:  snap.TotalRuns,
				Wins:       snap.Wins,
				TrustScore: snap.TrustScore,
			}
		} else {
			stats[pid] = odds.ParticipantStats{}
		}
	}
	run.CurrentOdds = odds.Compute(stats)
}

// snapshotRun deep-copies a run for handing outside the critical section.
func (s *Service) snapshotRun(run *model.Run) model.Run {
	snap := *run
	snap.Participants = append([]string(nil), run.Participants...)
	snap.AccessBuyers = append([]string(nil), run.AccessBuyers...)
	snap.CurrentOdds = make(map[string]decimal.Decimal, len(run.CurrentOdds))
	for k, v := range run.CurrentOdds {
		snap.CurrentOdds[k] = v
	}
	if run.Result != nil {
		res := *run.Result
		res.Times = copyTimes(run.Result.Times)
		snap.Result = &res
	}
	return snap
}

func copyTimes(src map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func mapLedgerErr(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, ledger.ErrNonPositiveAmount):
		return ErrNonPositiveAmount
	default:
		return err
	}
}

// --- Post-commit side effects (best effort, logged not surfaced) ---

func (s *Service) journalSaveAccount(ctx context.Context, a *model.Account) {
	if err := s.journal.SaveAccount(ctx, a); err != nil {
		slog.Error("journal save account failed", "account", a.ID, "err", err)
	}
}

func (s *Service) journalSaveRun(ctx context.Context, snap model.Run) {
	if err := s.journal.SaveRun(ctx, &snap); err != nil {
		slog.Error("journal save run failed", "run", snap.ID, "err", err)
	}
}

func (s *Service) journalSavePick(ctx context.Context, p *model.Pick) {
	if err := s.journal.SavePick(ctx, p); err != nil {
		slog.Error("journal save pick failed", "pick", p.ID, "err", err)
	}
}

func (s *Service) journalAppendEntry(ctx context.Context, e model.LedgerEntry) {
	if err := s.journal.AppendLedgerEntry(ctx, &e); err != nil {
		slog.Error("journal append ledger entry failed", "entry", e.ID, "err", err)
	}
}

func (s *Service) journalSaveCard(ctx context.Context, snap card.Snapshot) {
	if err := s.journal.SaveCard(ctx, snap); err != nil {
		slog.Error("journal save card failed", "card", snap.OwnerID, "err", err)
	}
}

func (s *Service) journalSaveSnapshot(ctx context.Context, snap *model.ResultSnapshot) {
	if err := s.journal.SaveSnapshot(ctx, snap); err != nil {
		slog.Error("journal save snapshot failed", "run", snap.RunID, "err", err)
	}
}

func (s *Service) publishOdds(ctx context.Context, snap model.Run) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOdds(ctx, snap.ID, snap.CurrentOdds); err != nil {
		slog.Error("odds publish failed", "run", snap.ID, "err", err)
	}
}

func (s *Service) publishResult(ctx context.Context, snap *model.ResultSnapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResult(ctx, snap); err != nil {
		slog.Error("result publish failed", "run", snap.RunID, "err", err)
	}
}

func (s *Service) broadcastOdds(run model.Run) {
	if s.hub == nil {
		return
	}
	quoted := make(map[string]string, len(run.CurrentOdds))
	for id, q := range run.CurrentOdds {
		quoted[id] = q.String()
	}
	s.hub.Broadcast(Event{
		Type:    "odds_update",
		RunID:   run.ID,
		RunName: run.Name,
		State:   string(run.State),
		Odds:    quoted,
	})
}
