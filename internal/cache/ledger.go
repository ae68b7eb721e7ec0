// Package cache keeps recently read ledgers in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"prism/internal/domain"
	"prism/internal/utils"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledger:account:" // Cache key prefix for ledgers

// entry keeps the version that the JSON shape of a ledger hides
type entry struct {
	Ledger  json.RawMessage `json:"ledger"`
	Version int64           `json:"version"`
}

// Ledgers is a Redis-backed ledger cache
type Ledgers struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLedgers returns a cache whose entries expire after ttl
func NewLedgers(rdb *redis.Client, ttl time.Duration) *Ledgers {
	return &Ledgers{rdb: rdb, ttl: ttl}
}

func key(accountID string) string { return keyPrefix + accountID }

// Get returns the cached ledger, if present
func (c *Ledgers) Get(ctx context.Context, accountID string) (*domain.Ledger, bool, error) {
	var e entry
	found, err := utils.GetCache(ctx, c.rdb, key(accountID), &e)
	if err != nil || !found {
		return nil, false, err
	}
	var l domain.Ledger
	if err := json.Unmarshal(e.Ledger, &l); err != nil {
		return nil, false, err
	}
	l.Version = e.Version
	if l.Transactions == nil {
		l.Transactions = []domain.Transaction{}
	}
	for i := range l.Transactions {
		l.Transactions[i].AccountID = l.AccountID // Not part of the JSON shape
		l.Transactions[i].Seq = int64(i) + 1
	}
	return &l, true, nil
}

// Set caches l for the configured TTL
func (c *Ledgers) Set(ctx context.Context, l *domain.Ledger) error {
	raw, err := json.Marshal(l)
	if err != nil {
		return err
	}
	return utils.SetCache(ctx, c.rdb, key(l.AccountID), entry{Ledger: raw, Version: l.Version}, c.ttl)
}

// Invalidate drops the cached ledgers of accountIDs
func (c *Ledgers) Invalidate(ctx context.Context, accountIDs ...string) error {
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = key(id)
	}
	return utils.DeleteCache(ctx, c.rdb, keys...)
}
