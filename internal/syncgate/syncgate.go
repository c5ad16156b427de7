// Package syncgate holds mining back while the local ledger lags behind wall-clock time
package syncgate

import (
	"context"
	"time"

	"github.com/carlosrabelo/powminer/pkg/logger"
)

// DefaultPollInterval is the pause between checks while the ledger is behind
const DefaultPollInterval = 5 * time.Second

// TimestampSource returns the timestamp of the newest reward-bearing ledger entry
type TimestampSource interface {
	LastRewardTimestamp(ctx context.Context) (time.Time, error)
}

// Gate polls the ledger until it is close enough to now
type Gate struct {
	src      TimestampSource
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a gate polling every interval
func New(src TimestampSource, interval time.Duration, log *logger.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = logger.Default
	}
	return &Gate{
		src:      src,
		interval: interval,
		log:      log,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// WaitUntilSynced blocks until the ledger lag is at most maxLag. It has no upper bound on
// waiting; only a source error or ctx cancellation ends it early.
func (g *Gate) WaitUntilSynced(ctx context.Context, maxLag time.Duration) error {
	for {
		last, err := g.src.LastRewardTimestamp(ctx)
		if err != nil {
			return err
		}
		lag := g.now().Sub(last)
		if lag <= maxLag {
			return nil
		}
		g.log.Info("local blockchain is %.1f minutes behind (%.0f seconds), waiting for sync to complete",
			lag.Minutes(), lag.Seconds())
		if err := g.sleep(ctx, g.interval); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
