package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/model"
)

// DefaultOddsChannel is the pub/sub channel odds and result messages are
// published on.
const DefaultOddsChannel = "redline.odds"

// OddsCache keeps each run's current odds in Redis with a TTL and publishes
// change notifications, so read-side consumers (boards, frontends) never hit
// the engine for live prices. Called only after a critical section commits.
type OddsCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	channel string
}

// NewOddsCache creates a Redis odds cache publishing on channel.
func NewOddsCache(rdb *redis.Client, ttl time.Duration, channel string) *OddsCache {
	if channel == "" {
		channel = DefaultOddsChannel
	}
	return &OddsCache{rdb: rdb, ttl: ttl, channel: channel}
}

type oddsMessage struct {
	Type      string            `json:"type"`
	RunID     string            `json:"run_id"`
	Odds      map[string]string `json:"odds,omitempty"`
	WinnerID  string            `json:"winner_id,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func oddsKey(runID string) string {
	return "redline:odds:" + runID
}

// PublishOdds caches the run's current odds and notifies subscribers.
func (c *OddsCache) PublishOdds(ctx context.Context, runID string, quoted map[string]decimal.Decimal) error {
	odds := make(map[string]string, len(quoted))
	for id, q := range quoted {
		odds[id] = q.String()
	}
	msg := oddsMessage{
		Type:      "odds_update",
		RunID:     runID,
		Odds:      odds,
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, oddsKey(runID), payload, c.ttl).Err(); err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.channel, payload).Err()
}

// PublishResult announces a settlement and drops the stale odds key: the
// book is closed, there is nothing left to price.
func (c *OddsCache) PublishResult(ctx context.Context, snap *model.ResultSnapshot) error {
	msg := oddsMessage{
		Type:      "results_posted",
		RunID:     snap.RunID,
		WinnerID:  snap.WinnerID,
		UpdatedAt: snap.PostedAt,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err := c.rdb.Del(ctx, oddsKey(snap.RunID)).Err(); err != nil {
		return err
	}
	return c.rdb.Publish(ctx, c.channel, payload).Err()
}
