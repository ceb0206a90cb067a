package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

// countingRunner counts Run invocations
type countingRunner struct {
	runs int32
	err  error
}

func (r *countingRunner) Run(context.Context) (*domain.RunResult, error) {
	atomic.AddInt32(&r.runs, 1)
	if r.err != nil {
		return nil, r.err
	}
	now := time.Now()
	return &domain.RunResult{StartTime: now, EndTime: now}, nil
}

func TestScheduler_Run(t *testing.T) {
	t.Run("runs immediately then on ticks", func(t *testing.T) {
		runner := &countingRunner{}
		s := New(runner, 30*time.Millisecond, t.TempDir(), false)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		require.NoError(t, s.Run(ctx))
		assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.runs), int32(2))
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		runner := &countingRunner{}
		s := New(runner, time.Hour, t.TempDir(), false)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		// wait for the immediate run, then cancel
		require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.runs) == 1 },
			time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("scheduler did not stop on cancel")
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&runner.runs))
	})

	t.Run("writes report when enabled", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports")
		runner := &countingRunner{}
		s := New(runner, time.Hour, dir, true)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool {
			entries, err := os.ReadDir(dir)
			return err == nil && len(entries) == 1
		}, time.Second, 5*time.Millisecond)
		cancel()
		require.NoError(t, <-done)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Contains(t, entries[0].Name(), "result_")
	})

	t.Run("failed run leaves no report", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports")
		runner := &countingRunner{err: fmt.Errorf("no enabled sources configured")}
		s := New(runner, time.Hour, dir, true)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.runs) == 1 },
			time.Second, 5*time.Millisecond)
		cancel()
		require.NoError(t, <-done)

		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})
}
