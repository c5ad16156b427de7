// Package ledger reads the local node's ledger database
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"

	_ "modernc.org/sqlite"
)

const lastRewardQuery = "SELECT timestamp FROM transactions WHERE reward != 0 ORDER BY block_height DESC LIMIT 1"

// RetryPolicy bounds in-place retries of transient query failures
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultRetry retries every 100ms for up to a minute
var DefaultRetry = RetryPolicy{Interval: 100 * time.Millisecond, MaxAttempts: 600}

// SQLite is a read-only view of the node's ledger file
type SQLite struct {
	db     *sql.DB
	retry  RetryPolicy
	onFail func(attempt int, err error)
}

// Open opens the ledger at path in read-only mode
func Open(path string, retry RetryPolicy) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(1000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if retry.Interval <= 0 {
		retry.Interval = DefaultRetry.Interval
	}
	return &SQLite{db: db, retry: retry}, nil
}

// OnRetry registers a callback invoked after each failed attempt
func (s *SQLite) OnRetry(fn func(attempt int, err error)) {
	s.onFail = fn
}

// Close releases the database handle
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LastRewardTimestamp returns the timestamp of the most recent reward-bearing entry,
// retrying transient failures according to the retry policy
func (s *SQLite) LastRewardTimestamp(ctx context.Context) (time.Time, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		ts, err := s.queryOnce(ctx)
		if err == nil {
			return ts, nil
		}
		lastErr = err
		if s.onFail != nil {
			s.onFail(attempt, err)
		}
		if attempt == s.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		case <-time.After(s.retry.Interval):
		}
	}
	return time.Time{}, apperrors.Wrap(apperrors.CodeStorageTransient,
		fmt.Sprintf("ledger query failed after %d attempts", s.retry.MaxAttempts), lastErr)
}

func (s *SQLite) queryOnce(ctx context.Context) (time.Time, error) {
	var raw any
	if err := s.db.QueryRowContext(ctx, lastRewardQuery).Scan(&raw); err != nil {
		return time.Time{}, err
	}
	secs, err := toSeconds(raw)
	if err != nil {
		return time.Time{}, err
	}
	return FromUnixFloat(secs), nil
}

// toSeconds accepts the REAL, INTEGER or TEXT timestamps found in ledger files
func toSeconds(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	default:
		return 0, fmt.Errorf("unexpected timestamp type %T", raw)
	}
}

// FromUnixFloat converts fractional epoch seconds to a time
func FromUnixFloat(secs float64) time.Time {
	whole := int64(secs)
	return time.Unix(whole, int64((secs-float64(whole))*1e9))
}
