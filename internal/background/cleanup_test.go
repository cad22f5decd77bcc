package background

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) CleanupExpiredRecords(retention time.Duration) int {
	s.calls.Add(1)
	return 1
}

func TestCleanupManager(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sweeps on the configured interval", func(t *testing.T) {
		sweeper := &countingSweeper{}
		cm := NewCleanupManager(sweeper, logger, 10*time.Millisecond, time.Hour)

		done := make(chan struct{})
		go func() {
			cm.Start(context.Background())
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return sweeper.calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		cm.Stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop")
		}
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		sweeper := &countingSweeper{}
		cm := NewCleanupManager(sweeper, logger, time.Hour, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			cm.Start(ctx)
			close(done)
		}()

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop on context cancel")
		}
	})
}
