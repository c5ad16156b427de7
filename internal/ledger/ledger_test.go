package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

func seedLedger(t *testing.T, rows [][3]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE transactions (block_height INTEGER, timestamp, reward)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, r := range rows {
		if _, err := db.Exec("INSERT INTO transactions VALUES (?, ?, ?)", r[0], r[1], r[2]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return path
}

func TestLastRewardTimestamp(t *testing.T) {
	path := seedLedger(t, [][3]any{
		{1, 1700000000.5, 10},
		{2, 1700000100.25, 10},
		{3, 1700000200.0, 0},
	})
	l, err := Open(path, RetryPolicy{Interval: time.Millisecond, MaxAttempts: 2})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	ts, err := l.LastRewardTimestamp(context.Background())
	if err != nil {
		t.Fatalf("LastRewardTimestamp failed: %v", err)
	}
	want := time.Unix(1700000100, 250000000)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}
}

func TestLastRewardTimestampText(t *testing.T) {
	path := seedLedger(t, [][3]any{{7, "1700000300.75", 10}})
	l, _ := Open(path, RetryPolicy{Interval: time.Millisecond, MaxAttempts: 1})
	defer l.Close()

	ts, err := l.LastRewardTimestamp(context.Background())
	if err != nil {
		t.Fatalf("LastRewardTimestamp failed: %v", err)
	}
	if ts.Unix() != 1700000300 {
		t.Errorf("unexpected timestamp %v", ts)
	}
}

func TestLastRewardTimestampRetriesThenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	l, err := Open(path, RetryPolicy{Interval: time.Millisecond, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer l.Close()

	attempts := 0
	l.OnRetry(func(int, error) { attempts++ })

	_, err = l.LastRewardTimestamp(context.Background())
	if !apperrors.HasCode(err, apperrors.CodeStorageTransient) {
		t.Fatalf("expected storage transient error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestFromUnixFloat(t *testing.T) {
	ts := FromUnixFloat(10.5)
	if ts.Unix() != 10 || ts.Nanosecond() != 500000000 {
		t.Errorf("unexpected conversion %v", ts)
	}
}
