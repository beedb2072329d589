// Package card tracks per-participant rolling performance statistics: run
// counts, finishing results, times, and the bounded trust score consumed by
// the odds pricer.
//
// Cards are mutated only by settlement, once per run the owner participated
// in. The trust delta policy itself lives in the settlement engine; the card
// only knows how to record a result and clamp its trust score.
package card

import (
	"math"
	"sync"
	"time"

	"github.com/simpletech310/redline/internal/model"
)

// Trust score bounds.
const (
	TrustMin = 0.0
	TrustMax = 100.0
)

// InitialTrust is the trust score of a freshly issued card. The odds pricer
// applies its own neutral defaults until the first result is recorded.
const InitialTrust = 100.0

// Card is one participant's performance record. Safe for concurrent use:
// settlements of different runs sharing a participant serialize on the
// card's own mutex.
type Card struct {
	mu        sync.Mutex
	ownerID   string
	totalRuns int
	wins      int
	podiums   int
	bestTime  float64 // 0 until first result
	avgTime   float64
	trust     float64
	history   []model.ResultRecord // most recent first
}

// New issues a card for the given account.
func New(ownerID string) *Card {
	return &Card{ownerID: ownerID, trust: InitialTrust}
}

// OwnerID returns the owning account id.
func (c *Card) OwnerID() string {
	return c.ownerID
}

// RecordResult folds one run result into the card: counters, best time,
// running average, and a history row at the front.
func (c *Card) RecordResult(runName string, place int, timeValue float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRuns++
	if place == 1 {
		c.wins++
	}
	if place <= 3 {
		c.podiums++
	}

	if c.bestTime == 0 || timeValue < c.bestTime {
		c.bestTime = timeValue
	}

	n := float64(c.totalRuns)
	if c.totalRuns == 1 {
		c.avgTime = timeValue
	} else {
		c.avgTime = (c.avgTime*(n-1) + timeValue) / n
	}

	record := model.ResultRecord{
		RunName:  runName,
		Place:    place,
		Time:     timeValue,
		Recorded: time.Now().UTC(),
	}
	c.history = append([]model.ResultRecord{record}, c.history...)
}

// AdjustTrust applies a signed delta and clamps the score to [TrustMin, TrustMax].
func (c *Card) AdjustTrust(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trust = math.Min(TrustMax, math.Max(TrustMin, c.trust+delta))
}

// Snapshot is a point-in-time copy of a card's state.
type Snapshot struct {
	OwnerID    string               `json:"owner_id"`
	TotalRuns  int                  `json:"total_runs"`
	Wins       int                  `json:"wins"`
	Podiums    int                  `json:"podiums"`
	BestTime   float64              `json:"best_time"`
	AvgTime    float64              `json:"avg_time"`
	TrustScore float64              `json:"trust_score"`
	History    []model.ResultRecord `json:"history"`
}

// Snapshot returns a consistent copy of the card.
func (c *Card) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]model.ResultRecord, len(c.history))
	copy(history, c.history)

	return Snapshot{
		OwnerID:    c.ownerID,
		TotalRuns:  c.totalRuns,
		Wins:       c.wins,
		Podiums:    c.podiums,
		BestTime:   c.bestTime,
		AvgTime:    c.avgTime,
		TrustScore: c.trust,
		History:    history,
	}
}
