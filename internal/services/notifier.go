package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/models"
)

const (
	ledgerEventsQueue  = "ledger_events"
	bindingCachePrefix = "deposit_target"
)

// LedgerEvent is pushed to downstream notifiers after an applied terminal
// transition commits.
type LedgerEvent struct {
	AccountID string             `json:"accountId"`
	Rail      models.Rail        `json:"rail"`
	Kind      models.EntryKind   `json:"kind"`
	Direction models.Direction   `json:"direction"`
	Status    models.EntryStatus `json:"status"`
	Amount    int64              `json:"amount"`
	Fee       int64              `json:"fee"`
	Reference string             `json:"reference"`
}

// RedisEventPublisher is best-effort: the ledger is already committed, so a
// queue failure is logged and dropped. A nil client disables publishing.
type RedisEventPublisher struct {
	redis *redis.Client
}

func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{redis: rdb}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ev LedgerEvent) {
	if p == nil || p.redis == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.redis.RPush(ctx, ledgerEventsQueue, string(data)).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component":  "notifier",
			"account_id": ev.AccountID,
			"reference":  ev.Reference,
		}).WithError(err).Warn("failed to publish ledger event")
	}
}

// RedisBindingCache fronts the binding table for repeated deposit-target
// requests. Misses and errors fall through to the database.
type RedisBindingCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisBindingCache(rdb *redis.Client, ttl time.Duration) *RedisBindingCache {
	return &RedisBindingCache{redis: rdb, ttl: ttl}
}

func bindingKey(accountID string, rail models.Rail) string {
	return fmt.Sprintf("%s:%s:%s", bindingCachePrefix, accountID, rail)
}

func (c *RedisBindingCache) Get(ctx context.Context, accountID string, rail models.Rail) (*models.DepositBinding, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, bindingKey(accountID, rail)).Bytes()
	if err != nil {
		return nil, false
	}
	var b models.DepositBinding
	if err := json.Unmarshal(data, &b); err != nil || b.Address == "" {
		return nil, false
	}
	return &b, true
}

func (c *RedisBindingCache) Set(ctx context.Context, b *models.DepositBinding) {
	if c == nil || c.redis == nil {
		return
	}
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, bindingKey(b.AccountID, b.Rail), string(data), c.ttl).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"component":  "binding_cache",
			"account_id": b.AccountID,
		}).WithError(err).Debug("binding cache write failed")
	}
}
