package cache

import (
	"testing"
	"time"

	"cardledger/internal/core"
	"cardledger/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 2, st.Size)
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute).WithClock(func() time.Time { return now })
	c.Set("a", "x")
	c.Set("b", "y")

	now = now.Add(2 * time.Minute)
	c.Set("c", "z")
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestLRUDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())
	c.Purge()
	assert.Equal(t, 0, c.Size())
}

func TestStatementCacheKeyedByRevisionAndDay(t *testing.T) {
	c := NewStatementCache(8, time.Hour)
	p := core.NewPeriod(2025, time.June)
	today := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

	builds := 0
	build := func() ledger.Statement {
		builds++
		return ledger.Statement{Period: p, Filter: ledger.FilterAll}
	}

	_, hit := c.GetOrBuild(1, p, ledger.FilterAll, today, build)
	assert.False(t, hit)
	_, hit = c.GetOrBuild(1, p, ledger.FilterAll, today.Add(3*time.Hour), build)
	assert.True(t, hit, "same day and revision")
	_, hit = c.GetOrBuild(2, p, ledger.FilterAll, today, build)
	assert.False(t, hit, "new revision")
	_, hit = c.GetOrBuild(2, p, ledger.FilterCash, today, build)
	assert.False(t, hit, "other filter")
	_, hit = c.GetOrBuild(2, p, ledger.FilterAll, today.AddDate(0, 0, 1), build)
	assert.False(t, hit, "next day")

	assert.Equal(t, 4, builds)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestManagerSweepAndStop(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](5, time.Second).WithClock(func() time.Time { return now })
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	now = now.Add(time.Minute)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	NewManager(nil).Stop()
}
