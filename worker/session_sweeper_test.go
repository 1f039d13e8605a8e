package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingTarget struct {
	calls atomic.Int32
}

func (c *countingTarget) Sweep(time.Time) int {
	c.calls.Add(1)
	return 1
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	target := &countingTarget{}
	s := NewSweeper(target, 5*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return target.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&countingTarget{}, 0, nil)
	assert.Equal(t, DefaultSweepInterval, s.interval)
}
