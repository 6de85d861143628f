package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	applog "cardledger/internal/log"
	"cardledger/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu    sync.Mutex
	due   map[services.CheckKind]bool
	fail  map[services.CheckKind]error
	calls []services.CheckKind
}

func (f *fakeChecker) RunCheck(_ context.Context, kind services.CheckKind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind)
	return f.due[kind], f.fail[kind]
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(&fakeChecker{}, "every day please", quietLogger())
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	f := &fakeChecker{due: map[services.CheckKind]bool{services.CheckBackup: true}}
	s, err := New(f, "0 9 * * *", quietLogger())
	require.NoError(t, err)

	fired, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []services.CheckKind{services.CheckBackup}, fired)
	assert.Equal(t, []services.CheckKind{services.CheckRollover, services.CheckBackup}, f.calls)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	f := &fakeChecker{
		due:  map[services.CheckKind]bool{services.CheckBackup: true},
		fail: map[services.CheckKind]error{services.CheckRollover: errors.New("meta unreadable")},
	}
	s, err := New(f, "@daily", quietLogger())
	require.NoError(t, err)

	fired, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta unreadable")
	assert.Equal(t, []services.CheckKind{services.CheckBackup}, fired)
}

func TestStartStop(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	s, err := New(&fakeChecker{}, "0 9 * * *", quietLogger(), WithLocation(loc), WithTimeout(time.Second))
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	assert.False(t, next.IsZero())
	assert.Equal(t, 9, next.In(loc).Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
