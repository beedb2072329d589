package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/ledger"
	"github.com/simpletech310/redline/internal/metrics"
	"github.com/simpletech310/redline/internal/model"
)

// Trust score deltas applied at settlement. The card clamps to [0,100].
const (
	trustDeltaCreator = 0.2
	trustDeltaPodium  = 0.1
	trustDeltaMiss    = -0.1
)

// PostResults settles a run: one call per run ever takes effect. The whole
// algorithm runs inside the run's critical section so no reader observes
// PICKS_LOCKED without the result snapshot, and a second call returns
// AlreadySettled with zero additional ledger entries.
//
// Validation is strictly separated from mutation: every guard passes before
// any wallet, pick, or card is touched, so a failed call commits nothing.
func (s *Service) PostResults(ctx context.Context, actorID, runID, winnerID string, times map[string]float64) (model.ResultSnapshot, error) {
	run, lock := s.runWithLock(runID)
	if run == nil {
		return model.ResultSnapshot{}, ErrRunNotFound
	}

	lock.Lock()

	// --- Step 1: guards, no mutation past this block ---
	if run.State == model.RunStateResultsPosted {
		lock.Unlock()
		return model.ResultSnapshot{}, ErrAlreadySettled
	}
	if run.CreatorID != actorID {
		lock.Unlock()
		return model.ResultSnapshot{}, ErrNotCreator
	}
	if !run.HasParticipant(winnerID) {
		lock.Unlock()
		return model.ResultSnapshot{}, ErrWinnerNotParticipant
	}
	for _, pid := range run.Participants {
		if _, ok := times[pid]; !ok {
			lock.Unlock()
			return model.ResultSnapshot{}, ErrMissingTime
		}
	}

	// --- Step 2: pools. Accumulation stays unrounded; each emitted amount
	// rounds once, and payout = pool − cut keeps conservation exact.
	participantCount := int64(len(run.Participants))
	entryPool := run.EntryFee.Mul(decimal.NewFromInt(participantCount))
	platformCut := entryPool.Mul(s.cutRatio).Round(ledger.MoneyScale)
	winnerPayout := entryPool.Sub(platformCut)

	accessPool := run.AccessFee.Mul(decimal.NewFromInt(int64(len(run.AccessBuyers))))
	accessCut := accessPool.Mul(s.cutRatio).Round(ledger.MoneyScale)
	accessRevenue := accessPool.Sub(accessCut)

	// --- Step 3: lifecycle. PICKS_LOCKED is never visible outside this
	// critical section.
	run.State = model.RunStatePicksLocked

	var entries []model.LedgerEntry

	// --- Step 4: winner payout ---
	if winnerPayout.IsPositive() {
		entry, _, err := s.mustWallet(winnerID).Credit(
			winnerPayout, "Win - "+run.Name, model.CategoryRaceWin, "settle:"+run.ID+":win")
		if err != nil {
			slog.Error("winner payout credit failed", "run", run.ID, "account", winnerID, "err", err)
		} else {
			entries = append(entries, entry)
		}
	}

	// --- Step 5: picks, in creation order ---
	settledPicks := make([]model.Pick, 0)
	for _, p := range s.picks.ByRun(run.ID) {
		outcome := model.PickLost
		payout := decimal.Zero
		if p.PredictedID == winnerID {
			outcome = model.PickWon
			payout = p.Stake.Mul(p.Odds).Round(ledger.MoneyScale)
		}
		settled, ok := s.picks.Settle(p.ID, outcome, payout)
		if !ok {
			slog.Error("pick missing from registry at settlement", "run", run.ID, "pick", p.ID)
			continue
		}
		settledPicks = append(settledPicks, settled)

		if outcome == model.PickWon && payout.IsPositive() {
			entry, _, err := s.mustWallet(p.BettorID).Credit(
				payout, "Pick win - "+run.Name, model.CategoryPickWin, "settle:"+run.ID+":pick:"+p.ID)
			if err != nil {
				slog.Error("pick win credit failed", "run", run.ID, "pick", p.ID, "bettor", p.BettorID, "err", err)
			} else {
				entries = append(entries, entry)
			}
		}
	}

	// Access revenue goes to the creator once all wager flows are settled.
	if accessRevenue.IsPositive() {
		entry, _, err := s.mustWallet(run.CreatorID).Credit(
			accessRevenue, "Access revenue - "+run.Name, model.CategoryAccessRevenue, "settle:"+run.ID+":access")
		if err != nil {
			slog.Error("access revenue credit failed", "run", run.ID, "creator", run.CreatorID, "err", err)
		} else {
			entries = append(entries, entry)
		}
	}

	// --- Step 6: performance cards. Places come from ascending time order;
	// ties keep join order.
	ordered := append([]string(nil), run.Participants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return times[ordered[i]] < times[ordered[j]]
	})
	for place, pid := range ordered {
		c := s.card(pid)
		if c == nil {
			continue
		}
		c.RecordResult(run.Name, place+1, times[pid])
		switch {
		case pid == run.CreatorID:
			c.AdjustTrust(trustDeltaCreator)
		case place+1 <= 3:
			c.AdjustTrust(trustDeltaPodium)
		default:
			c.AdjustTrust(trustDeltaMiss)
		}
	}

	// --- Step 7: immutable result snapshot, exactly once ---
	recordedTimes := make(map[string]float64, len(run.Participants))
	for _, pid := range run.Participants {
		recordedTimes[pid] = times[pid]
	}
	snapshot := model.ResultSnapshot{
		ID:           uuid.New().String(),
		RunID:        run.ID,
		WinnerID:     winnerID,
		Times:        recordedTimes,
		WinnerPayout: winnerPayout,
		PlatformCut:  platformCut,
		PostedAt:     time.Now().UTC(),
	}
	run.Result = &snapshot
	run.State = model.RunStateResultsPosted

	runSnap := s.snapshotRun(run)
	cardOwners := append([]string(nil), run.Participants...)
	lock.Unlock()

	// --- Durability and side channels, after commit ---
	for _, e := range entries {
		s.journalAppendEntry(ctx, e)
	}
	for i := range settledPicks {
		s.journalSavePick(ctx, &settledPicks[i])
	}
	for _, pid := range cardOwners {
		if c := s.card(pid); c != nil {
			s.journalSaveCard(ctx, c.Snapshot())
		}
	}
	s.journalSaveRun(ctx, runSnap)
	s.journalSaveSnapshot(ctx, &snapshot)
	s.publishResult(ctx, &snapshot)
	if s.hub != nil {
		s.hub.Broadcast(Event{
			Type:         "results_posted",
			RunID:        run.ID,
			RunName:      runSnap.Name,
			State:        string(model.RunStateResultsPosted),
			WinnerID:     winnerID,
			WinnerPayout: winnerPayout.String(),
		})
	}

	metrics.SettlementsTotal.Inc()
	metrics.SettledPayoutTotal.Add(winnerPayout.InexactFloat64())
	slog.Info("results posted",
		"run", run.ID,
		"winner", winnerID,
		"entry_pool", entryPool.String(),
		"platform_cut", platformCut.String(),
		"winner_payout", winnerPayout.String(),
		"picks", len(settledPicks),
	)
	return snapshot, nil
}
