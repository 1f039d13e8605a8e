// Package diagnostics records payment-finalization failures for later
// inspection. The user only ever sees a generic message; the underlying error
// lands here.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListName = "storefront:payment_failures"
	// DefaultMaxEntries bounds the failure list; older entries are trimmed.
	DefaultMaxEntries = 1000
)

// Failure is one failed finalize-payment attempt.
type Failure struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	AttemptID  string    `json:"attempt_id"`
	EventKey   string    `json:"event_key"`
	Amount     int64     `json:"amount"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Reporter interface {
	Report(ctx context.Context, f Failure) error
}

// NewFailure stamps a failure with a fresh id and the current time.
func NewFailure(sessionID, attemptID, eventKey string, amount int64, err error) Failure {
	f := Failure{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		AttemptID:  attemptID,
		EventKey:   eventKey,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
	if err != nil {
		f.Error = err.Error()
	}
	return f
}

// LogReporter only logs. Used when no Redis is configured.
type LogReporter struct {
	logger *zap.Logger
}

func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(_ context.Context, f Failure) error {
	r.logger.Error("payment finalization failed",
		zap.String("failure_id", f.ID),
		zap.String("session_id", f.SessionID),
		zap.String("attempt_id", f.AttemptID),
		zap.String("event_key", f.EventKey),
		zap.Int64("amount", f.Amount),
		zap.String("error", f.Error))
	return nil
}

// RedisReporter appends failures to a capped Redis list.
type RedisReporter struct {
	client     *redis.Client
	listName   string
	maxEntries int64
	logger     *zap.Logger
}

// NewRedisReporter connects to redisURL and verifies the connection.
func NewRedisReporter(ctx context.Context, redisURL, listName string, logger *zap.Logger) (*RedisReporter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReporterWithClient(client, listName, logger), nil
}

func NewRedisReporterWithClient(client *redis.Client, listName string, logger *zap.Logger) *RedisReporter {
	if listName == "" {
		listName = DefaultListName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisReporter{
		client:     client,
		listName:   listName,
		maxEntries: DefaultMaxEntries,
		logger:     logger,
	}
}

func (r *RedisReporter) Report(ctx context.Context, f Failure) error {
	failureJSON, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal failure: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.listName, failureJSON)
	pipe.LTrim(ctx, r.listName, -r.maxEntries, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push failure to %s: %w", r.listName, err)
	}

	r.logger.Warn("recorded payment failure",
		zap.String("failure_id", f.ID),
		zap.String("session_id", f.SessionID),
		zap.String("attempt_id", f.AttemptID))
	return nil
}

// Recent returns up to n of the newest failures, oldest first.
func (r *RedisReporter) Recent(ctx context.Context, n int64) ([]Failure, error) {
	if n <= 0 {
		return []Failure{}, nil
	}
	raw, err := r.client.LRange(ctx, r.listName, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}

	failures := make([]Failure, 0, len(raw))
	for _, item := range raw {
		var f Failure
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			r.logger.Warn("skipping malformed failure entry", zap.Error(err))
			continue
		}
		failures = append(failures, f)
	}
	return failures, nil
}

func (r *RedisReporter) Client() *redis.Client {
	return r.client
}

func (r *RedisReporter) Close() error {
	return r.client.Close()
}

// Multi fans a failure out to several reporters and returns the first error.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, f Failure) error {
	var firstErr error
	for _, r := range m {
		if err := r.Report(ctx, f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
