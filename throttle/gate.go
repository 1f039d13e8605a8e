// Package throttle debounces and deduplicates submissions keyed by endpoint.
//
// Every endpoint has at most one pending record. A submission whose payload
// differs from the pending one supersedes it and bumps the endpoint's
// generation; waiters of older generations are released immediately with no
// result. A submission that is still current when its debounce window ends
// performs the call.
package throttle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultWindow is the debounce delay used when none is configured.
const DefaultWindow = time.Second

// CallFunc performs the real network call for a settled submission.
type CallFunc[T any] func(ctx context.Context) (T, error)

type record struct {
	fingerprint string
	generation  uint64
	inFlight    bool
	complete    bool
	superseded  chan struct{}
}

// Record is a read-only view of an endpoint's pending record.
type Record struct {
	Endpoint   string
	Generation uint64
	InFlight   bool
	Complete   bool
}

type Gate struct {
	window time.Duration
	logger *zap.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	records map[string]*record
}

func NewGate(window time.Duration, logger *zap.Logger) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		window:  window,
		logger:  logger,
		tracer:  otel.Tracer("event-storefront/throttle"),
		records: make(map[string]*record),
	}
}

// Submit registers payload for endpoint and, once the debounce window has
// elapsed without a newer payload, runs call. ok is false when the submission
// was superseded or an identical earlier submission already satisfied it.
// Errors from call are returned unchanged.
func Submit[T any](ctx context.Context, g *Gate, endpoint string, payload any, call CallFunc[T]) (result T, ok bool, err error) {
	fp, err := Fingerprint(payload)
	if err != nil {
		return result, false, err
	}

	gen, superseded := g.register(endpoint, fp)

	timer := time.NewTimer(g.window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return result, false, ctx.Err()
	case <-superseded:
		g.logger.Debug("throttled call superseded",
			zap.String("endpoint", endpoint), zap.Uint64("generation", gen))
		return result, false, nil
	case <-timer.C:
	}

	if !g.claim(endpoint, gen) {
		g.logger.Debug("throttled call already satisfied or replaced",
			zap.String("endpoint", endpoint), zap.Uint64("generation", gen))
		return result, false, nil
	}

	ctx, span := g.tracer.Start(ctx, "throttle.send", trace.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int64("generation", int64(gen)),
	))
	defer span.End()

	g.logger.Debug("throttled call sending",
		zap.String("endpoint", endpoint), zap.Uint64("generation", gen))

	result, err = call(ctx)
	if err != nil {
		g.release(endpoint, gen)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, false, err
	}

	g.markComplete(endpoint, gen)
	return result, true, nil
}

// register records the submission and returns the generation the caller waits
// on plus the channel closed when that generation is superseded.
func (g *Gate) register(endpoint, fp string) (uint64, <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, exists := g.records[endpoint]
	if exists && rec.fingerprint == fp {
		return rec.generation, rec.superseded
	}

	if !exists {
		rec = &record{}
		g.records[endpoint] = rec
	} else {
		close(rec.superseded)
	}

	rec.generation++
	rec.fingerprint = fp
	rec.inFlight = false
	rec.complete = false
	rec.superseded = make(chan struct{})
	return rec.generation, rec.superseded
}

func (g *Gate) claim(endpoint string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[endpoint]
	if !ok || rec.complete || rec.inFlight || rec.generation != gen {
		return false
	}
	rec.inFlight = true
	return true
}

func (g *Gate) release(endpoint string, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rec, ok := g.records[endpoint]; ok && rec.generation == gen {
		rec.inFlight = false
	}
}

func (g *Gate) markComplete(endpoint string, gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rec, ok := g.records[endpoint]; ok && rec.generation == gen {
		rec.inFlight = false
		rec.complete = true
	}
}

// Pending returns the current record for endpoint, if any.
func (g *Gate) Pending(endpoint string) (Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[endpoint]
	if !ok {
		return Record{}, false
	}
	return Record{
		Endpoint:   endpoint,
		Generation: rec.generation,
		InFlight:   rec.inFlight,
		Complete:   rec.complete,
	}, true
}

// Fingerprint is the structural identity of a payload. encoding/json sorts
// map keys, so equal maps always produce equal fingerprints.
func Fingerprint(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint payload: %w", err)
	}
	return string(b), nil
}
