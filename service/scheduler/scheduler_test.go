package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 3, s.err
}

func TestRun_StopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, "0 * * * *")
	// crontab 的计时 goroutine 在 New 中启动，不属于 Run
	ignore := goleak.IgnoreCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return sweeper.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	goleak.VerifyNone(t, ignore)
}

func TestRun_InvalidSpec(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(sweeper, "every hour")

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add session cleanup job")
	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestCleanup_ErrorIsLogged(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	s := New(sweeper, "0 * * * *")
	defer s.ctab.Shutdown()

	assert.NotPanics(t, func() { s.cleanup(context.Background()) })
	assert.Equal(t, int32(1), sweeper.calls.Load())
}
