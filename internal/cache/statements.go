package cache

import (
	"fmt"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
)

// StatementCache memoizes statement projections. Entries are keyed by the
// ledger revision, so any mutation makes older entries unreachable; they
// age out through LRU eviction or TTL. The calendar day is part of the key
// because due-date risk depends on it.
type StatementCache struct {
	lru *LRUCache[ledger.Statement]
}

func NewStatementCache(maxSize int, ttl time.Duration) *StatementCache {
	return &StatementCache{lru: NewLRUCache[ledger.Statement](maxSize, ttl)}
}

func statementKey(rev uint64, p core.Period, f ledger.Filter, today time.Time) string {
	return fmt.Sprintf("%d|%s|%s|%s", rev, p, f, today.Format(time.DateOnly))
}

// GetOrBuild returns the cached statement or builds and stores it.
func (c *StatementCache) GetOrBuild(rev uint64, p core.Period, f ledger.Filter, today time.Time, build func() ledger.Statement) (ledger.Statement, bool) {
	key := statementKey(rev, p, f, today)
	if st, ok := c.lru.Get(key); ok {
		return st, true
	}
	st := build()
	c.lru.Set(key, st)
	return st, false
}

func (c *StatementCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *StatementCache) Stats() Stats { return c.lru.Stats() }
