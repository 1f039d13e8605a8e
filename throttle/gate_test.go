package throttle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testWindow = 40 * time.Millisecond

type recorder struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (r *recorder) call(payload map[string]string) CallFunc[string] {
	return func(ctx context.Context) (string, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, payload)
		return payload["a"], nil
	}
}

func (r *recorder) snapshot() []map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]string(nil), r.calls...)
}

type outcome struct {
	result string
	ok     bool
	err    error
}

func waitForGeneration(t *testing.T, g *Gate, endpoint string, gen uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, ok := g.Pending(endpoint)
		return ok && rec.Generation == gen
	}, time.Second, time.Millisecond)
}

func TestSubmit_SingleCallAfterWindow(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	rec := &recorder{}
	payload := map[string]string{"a": "1"}

	start := time.Now()
	result, ok, err := Submit(context.Background(), g, "/price/X", payload, rec.call(payload))
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, "1", result)
	assert.GreaterOrEqual(t, time.Since(start), testWindow)
	assert.Equal(t, []map[string]string{{"a": "1"}}, rec.snapshot())

	pending, found := g.Pending("/price/X")
	require.True(t, found)
	assert.True(t, pending.Complete)
}

func TestSubmit_BurstSendsOnlyLastPayload(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	rec := &recorder{}
	endpoint := "/price/burst"

	const n = 5
	outcomes := make([]outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		payload := map[string]string{"a": string(rune('1' + i))}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, ok, err := Submit(context.Background(), g, endpoint, payload, rec.call(payload))
			outcomes[i] = outcome{res, ok, err}
		}(i)
		waitForGeneration(t, g, endpoint, uint64(i+1))
	}
	wg.Wait()

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "5", calls[0]["a"])

	for i, o := range outcomes {
		require.NoError(t, o.err)
		if i == n-1 {
			assert.True(t, o.ok, "last submission should resolve with the response")
			assert.Equal(t, "5", o.result)
		} else {
			assert.False(t, o.ok, "submission %d should be superseded", i)
		}
	}
}

func TestSubmit_DuplicatePayloadIsNoop(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	rec := &recorder{}
	endpoint := "/checkout/X"

	var okCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		// a fresh map each time: equality is structural, not identity
		payload := map[string]string{"a": "1", "b": "2"}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := Submit(context.Background(), g, endpoint, payload, rec.call(payload))
			assert.NoError(t, err)
			if ok {
				okCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, rec.snapshot(), 1)
	assert.Equal(t, int32(1), okCount.Load())

	pending, _ := g.Pending(endpoint)
	assert.Equal(t, uint64(1), pending.Generation)
}

func TestSubmit_CompletedPayloadIsNotResent(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	rec := &recorder{}
	payload := map[string]string{"a": "1"}

	_, ok, err := Submit(context.Background(), g, "/price/X", payload, rec.call(payload))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = Submit(context.Background(), g, "/price/X", payload, rec.call(payload))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, rec.snapshot(), 1)
}

func TestSubmit_SupersededWaiterReturnsEarly(t *testing.T) {
	t.Parallel()

	window := 500 * time.Millisecond
	g := NewGate(window, zaptest.NewLogger(t))
	rec := &recorder{}
	endpoint := "/price/early"

	first := make(chan outcome, 1)
	start := time.Now()
	go func() {
		p := map[string]string{"a": "1"}
		res, ok, err := Submit(context.Background(), g, endpoint, p, rec.call(p))
		first <- outcome{res, ok, err}
	}()
	waitForGeneration(t, g, endpoint, 1)

	ctx, cancel := context.WithCancel(context.Background())
	second := make(chan outcome, 1)
	go func() {
		p := map[string]string{"a": "2"}
		res, ok, err := Submit(ctx, g, endpoint, p, rec.call(p))
		second <- outcome{res, ok, err}
	}()

	o := <-first
	assert.Less(t, time.Since(start), window)
	assert.NoError(t, o.err)
	assert.False(t, o.ok)

	cancel()
	o = <-second
	assert.ErrorIs(t, o.err, context.Canceled)
	assert.Empty(t, rec.snapshot())
}

func TestSubmit_ErrorPropagatesAndAllowsRetry(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	payload := map[string]string{"a": "1"}
	boom := errors.New("connection refused")

	var calls atomic.Int32
	failing := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}

	_, ok, err := Submit(context.Background(), g, "/price/X", payload, failing)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	pending, _ := g.Pending("/price/X")
	assert.False(t, pending.Complete)
	assert.False(t, pending.InFlight)

	rec := &recorder{}
	_, ok, err = Submit(context.Background(), g, "/price/X", payload, rec.call(payload))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, rec.snapshot(), 1)
}

func TestSubmit_IdenticalSubmissionDuringFlightIsDropped(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	endpoint := "/checkout/inflight"
	payload := map[string]string{"a": "1"}

	release := make(chan struct{})
	var calls atomic.Int32
	blocking := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "done", nil
	}

	first := make(chan outcome, 1)
	go func() {
		res, ok, err := Submit(context.Background(), g, endpoint, payload, blocking)
		first <- outcome{res, ok, err}
	}()
	require.Eventually(t, func() bool {
		rec, ok := g.Pending(endpoint)
		return ok && rec.InFlight
	}, time.Second, time.Millisecond)

	_, ok, err := Submit(context.Background(), g, endpoint, payload, blocking)
	require.NoError(t, err)
	assert.False(t, ok)

	close(release)
	o := <-first
	require.NoError(t, o.err)
	assert.True(t, o.ok)
	assert.Equal(t, "done", o.result)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmit_EndpointsAreIndependent(t *testing.T) {
	t.Parallel()

	g := NewGate(testWindow, zaptest.NewLogger(t))
	rec := &recorder{}

	var wg sync.WaitGroup
	for _, endpoint := range []string{"/price/X", "/checkout/X"} {
		payload := map[string]string{"a": endpoint}
		wg.Add(1)
		go func(endpoint string) {
			defer wg.Done()
			_, ok, err := Submit(context.Background(), g, endpoint, payload, rec.call(payload))
			assert.NoError(t, err)
			assert.True(t, ok)
		}(endpoint)
	}
	wg.Wait()

	assert.Len(t, rec.snapshot(), 2)
}

func TestFingerprint_IgnoresMapOrder(t *testing.T) {
	a, err := Fingerprint(map[string]string{"x": "1", "y": "2"})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]string{"y": "2", "x": "1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Fingerprint(func() {})
	assert.Error(t, err)
}
