package odds

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Weight tests ---

func TestWeight_NeutralDefaults(t *testing.T) {
	s := ParticipantStats{}
	// 0.7*0.5 + 0.3*0.9 = 0.62
	if got := s.weight(); math.Abs(got-0.62) > 1e-9 {
		t.Errorf("expected neutral weight 0.62, got %f", got)
	}
}

func TestWeight_Floor(t *testing.T) {
	s := ParticipantStats{TotalRuns: 10, Wins: 0, TrustScore: 0}
	if got := s.weight(); got != MinWeight {
		t.Errorf("expected floored weight %f, got %f", MinWeight, got)
	}
}

func TestWeight_StrongRecord(t *testing.T) {
	s := ParticipantStats{TotalRuns: 10, Wins: 8, TrustScore: 100}
	// 0.7*0.8 + 0.3*1.0 = 0.86
	if got := s.weight(); math.Abs(got-0.86) > 1e-9 {
		t.Errorf("expected weight 0.86, got %f", got)
	}
}

// --- Compute tests ---

func TestCompute_EmptySet(t *testing.T) {
	quoted := Compute(nil)
	if len(quoted) != 0 {
		t.Errorf("expected empty odds map, got %d entries", len(quoted))
	}
}

func TestCompute_TwoEqualEntrants(t *testing.T) {
	stats := map[string]ParticipantStats{
		"a": {},
		"b": {},
	}
	quoted := Compute(stats)

	// Equal weights → implied probability 0.5 each → odds 2.00.
	for id, q := range quoted {
		if !q.Equal(d(2)) {
			t.Errorf("participant %s: expected odds 2, got %s", id, q)
		}
	}
}

func TestCompute_FavoriteGetsShorterOdds(t *testing.T) {
	stats := map[string]ParticipantStats{
		"champ":  {TotalRuns: 20, Wins: 18, TrustScore: 95},
		"rookie": {},
	}
	quoted := Compute(stats)

	if quoted["champ"].GreaterThanOrEqual(quoted["rookie"]) {
		t.Errorf("favorite should have shorter odds: champ=%s rookie=%s",
			quoted["champ"], quoted["rookie"])
	}
}

func TestCompute_MinOddsFloor(t *testing.T) {
	// Overwhelming favorite against a floored long shot: implied probability
	// pushes odds below 1.2, which must be clamped.
	stats := map[string]ParticipantStats{
		"champ": {TotalRuns: 50, Wins: 50, TrustScore: 100},
		"z1":    {TotalRuns: 50, Wins: 0, TrustScore: 0},
	}
	quoted := Compute(stats)

	// champ weight = 1.0, z1 floored at 0.1 → implied 0.909 → raw 1.1 → clamp.
	if !quoted["champ"].Equal(MinOdds) {
		t.Errorf("expected champ clamped to %s, got %s", MinOdds, quoted["champ"])
	}
}

func TestCompute_SingleParticipant(t *testing.T) {
	quoted := Compute(map[string]ParticipantStats{"solo": {}})

	// Implied probability 1.0 → raw odds 1.0 → clamped to the floor.
	if !quoted["solo"].Equal(MinOdds) {
		t.Errorf("expected solo clamped to %s, got %s", MinOdds, quoted["solo"])
	}
}

func TestCompute_TwoDecimalRounding(t *testing.T) {
	stats := map[string]ParticipantStats{
		"a": {TotalRuns: 3, Wins: 2, TrustScore: 80},
		"b": {TotalRuns: 3, Wins: 1, TrustScore: 70},
		"c": {},
	}
	for id, q := range Compute(stats) {
		if q.Exponent() < -OddsScale {
			t.Errorf("participant %s: odds %s not rounded to %d places", id, q, OddsScale)
		}
	}
}

func TestCompute_ImpliedProbabilitiesNormalized(t *testing.T) {
	stats := map[string]ParticipantStats{
		"a": {TotalRuns: 10, Wins: 7, TrustScore: 90},
		"b": {TotalRuns: 10, Wins: 3, TrustScore: 60},
		"c": {},
	}

	// Reconstruct total implied probability from unclamped weights.
	var total float64
	for _, s := range stats {
		total += s.weight()
	}
	var sum float64
	for _, s := range stats {
		sum += s.weight() / total
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("implied probabilities should sum to 1, got %f", sum)
	}
}
