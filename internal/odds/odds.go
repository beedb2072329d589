// Package odds implements the deterministic pricing policy for run
// participants.
//
// Each participant gets a weight blending career win rate with reputation:
//
//	w = 0.7 * winRate + 0.3 * (trust / 100)
//
// Weights are floored so a cold streak can never zero a participant out of
// the book, then normalized into implied probabilities. Quoted odds are the
// inverse probability with a house floor.
//
// The package is stateless — participant stats are passed as arguments, not
// stored. Frozen odds on existing picks are never touched by recomputation;
// callers only ever replace a run's live odds map.
//
// Probability arithmetic stays in float64 (these are ratios, not money) and
// is converted to decimal only at the quoted-odds boundary.
package odds

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// WinRateWeight and TrustWeight blend the two normalized signals.
	WinRateWeight = 0.7
	TrustWeight   = 0.3

	// MinWeight floors a participant's weight to avoid degenerate
	// zero-probability pricing.
	MinWeight = 0.1

	// NeutralWinRate and NeutralTrust price entrants with no recorded runs.
	NeutralWinRate = 0.5
	NeutralTrust   = 90.0
)

// MinOdds is the lowest quotable odds. Below this a winning pick would pay
// back less than house margin allows.
var MinOdds = decimal.NewFromFloat(1.2)

// OddsScale is the number of decimal places quoted odds are rounded to.
const OddsScale int32 = 2

// ParticipantStats is the slice of a performance card the pricer reads.
type ParticipantStats struct {
	TotalRuns  int
	Wins       int
	TrustScore float64
}

// winRate returns wins/totalRuns, or the neutral rate with no history.
func (s ParticipantStats) winRate() float64 {
	if s.TotalRuns == 0 {
		return NeutralWinRate
	}
	return float64(s.Wins) / float64(s.TotalRuns)
}

// trust returns the trust score, or the neutral score with no history.
func (s ParticipantStats) trust() float64 {
	if s.TotalRuns == 0 {
		return NeutralTrust
	}
	return s.TrustScore
}

// weight computes the blended, floored weight for one participant.
func (s ParticipantStats) weight() float64 {
	w := WinRateWeight*s.winRate() + TrustWeight*(s.trust()/100)
	return math.Max(w, MinWeight)
}

// Compute derives quoted odds for every participant from their stats.
// Weights are accumulated unrounded; rounding happens once per participant at
// the quoted-odds boundary.
//
// Returns an empty map for an empty participant set.
func Compute(stats map[string]ParticipantStats) map[string]decimal.Decimal {
	quoted := make(map[string]decimal.Decimal, len(stats))
	if len(stats) == 0 {
		return quoted
	}

	weights := make(map[string]float64, len(stats))
	var total float64
	for id, s := range stats {
		w := s.weight()
		weights[id] = w
		total += w
	}

	for id, w := range weights {
		implied := w / total
		quote := decimal.NewFromFloat(1 / implied).Round(OddsScale)
		if quote.LessThan(MinOdds) {
			quote = MinOdds
		}
		quoted[id] = quote
	}
	return quoted
}
