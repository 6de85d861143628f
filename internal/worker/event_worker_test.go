package worker

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"cardledger/internal/amqp"
	applog "cardledger/internal/log"
	"cardledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

func newWorker(t *testing.T) (*EventWorker, *storage.DataStore, string) {
	t.Helper()
	store := storage.New(storage.NewMemoryBackend(), storage.Options{})
	_, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	dir := t.TempDir()
	now := func() time.Time { return testNow }
	archive := storage.NewFileArchive(store, dir).WithClock(now)
	w := NewEventWorker(store, archive, 24*time.Hour, applog.New(applog.Config{Output: io.Discard})).WithClock(now)
	return w, store, dir
}

func TestStartupCheckWritesStaleBackup(t *testing.T) {
	ctx := context.Background()
	w, store, dir := newWorker(t)

	wrote, err := w.StartupCheck(ctx)
	require.NoError(t, err)
	assert.True(t, wrote, "never backed up")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastBackup.Equal(testNow))

	wrote, err = w.StartupCheck(ctx)
	require.NoError(t, err)
	assert.False(t, wrote, "backup is fresh")
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	w, _, dir := newWorker(t)

	for _, kind := range []amqp.EventKind{
		amqp.EventCapacityExceeded,
		amqp.EventRolloverPending,
		amqp.EventPurgeCompleted,
	} {
		require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(kind, nil)))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventBackupStale, nil)))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackupLeavesEmptyStoreEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.New(storage.NewMemoryBackend(), storage.Options{})
	dir := t.TempDir()
	now := func() time.Time { return testNow }
	archive := storage.NewFileArchive(store, dir).WithClock(now)
	w := NewEventWorker(store, archive, 24*time.Hour, applog.New(applog.Config{Output: io.Discard})).WithClock(now)

	wrote, err := w.StartupCheck(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventBackupStale, nil)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, ok, err := store.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "worker must not seed the document")
	meta, err := store.Meta(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastBackup.IsZero())
}

func TestHandleEventWithoutArchive(t *testing.T) {
	store := storage.New(storage.NewMemoryBackend(), storage.Options{})
	w := NewEventWorker(store, nil, time.Hour, applog.New(applog.Config{Output: io.Discard}))
	assert.NoError(t, w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventBackupStale, nil)))
}
