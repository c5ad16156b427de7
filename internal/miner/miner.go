// Package miner runs the mining workers and the process-level loops around them
package miner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/carlosrabelo/powminer/internal/connection"
	"github.com/carlosrabelo/powminer/internal/metrics"
	"github.com/carlosrabelo/powminer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Miner owns the worker pool
type Miner struct {
	cfg  Config
	deps Deps
	mx   *metrics.Collector
	log  *logger.Logger

	wg      sync.WaitGroup
	errMu   sync.Mutex
	err     error
	started time.Time
}

// New creates a miner. Workers are not started until Start.
func New(cfg Config, deps Deps) *Miner {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.Log == nil {
		deps.Log = logger.Default
	}
	return &Miner{cfg: cfg, deps: deps, mx: deps.Metrics, log: deps.Log, started: time.Now()}
}

// Metrics returns the shared collector
func (m *Miner) Metrics() *metrics.Collector {
	return m.mx
}

// Start spawns one worker per configured thread. Workers stop when ctx is cancelled.
func (m *Miner) Start(ctx context.Context) {
	threads := m.cfg.Mining.Threads
	if threads <= 0 {
		threads = 1
	}
	for i := 1; i <= threads; i++ {
		w := NewWorker(i, m.cfg, m.deps)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := w.Run(ctx); err != nil {
				m.errMu.Lock()
				if m.err == nil {
					m.err = err
				}
				m.errMu.Unlock()
			}
		}()
	}
	m.log.Info("%d mining threads started", threads)
}

// Wait blocks until every worker has returned and reports the first worker error
func (m *Miner) Wait() error {
	m.wg.Wait()
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

// Pinger checks node reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForNode dials the node every interval until it accepts a connection
func WaitForNode(ctx context.Context, node Pinger, interval time.Duration, log *logger.Logger) error {
	if log == nil {
		log = logger.Default
	}
	for {
		err := node.Ping(ctx)
		if err == nil {
			log.Info("Connected to node")
			return nil
		}
		log.Warn("%v", err)
		log.Warn("Please start your node for the block to be submitted or adjust the node address in the configuration")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// WaitForSync blocks until gate sees the ledger within maxLag. Ledger errors are logged and
// the check is retried after a jittered backoff between retryMin and retryMax; only ctx
// cancellation ends the wait early.
func WaitForSync(ctx context.Context, gate SyncGate, maxLag, retryMin, retryMax time.Duration, log *logger.Logger) error {
	if log == nil {
		log = logger.Default
	}
	for {
		err := gate.WaitUntilSynced(ctx, maxLag)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d := connection.Backoff(retryMin, retryMax)
		log.Error("Ledger sync check failed: %v; retry in %s", err, d)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
}

// Handler returns the HTTP status and metrics endpoints
func (m *Miner) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]interface{}{
			"network":        m.cfg.Network,
			"pooled":         m.cfg.Pool.Enabled,
			"threads":        m.cfg.Mining.Threads,
			"mining_address": m.cfg.MiningAddress(m.deps.OwnAddress),
			"metrics":        m.mx.Snapshot(),
		}
		out["uptime_sec"] = int64(time.Since(m.started).Seconds())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// HttpServe starts the HTTP server with status and health endpoints
func (m *Miner) HttpServe(ctx context.Context) {
	srv := &http.Server{Addr: m.cfg.HTTP.Listen, Handler: m.Handler()}
	go func() {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx2)
	}()
	m.log.Info("http: listening on %s", m.cfg.HTTP.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		m.log.Error("http err: %v", err)
	}
}

// ReportLoop logs a periodic summary of mining performance
func (m *Miner) ReportLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	last := start
	lastHashes := m.mx.Hashes.Load()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.log.Info("%s", m.report(now, start, last, lastHashes))
			last = now
			lastHashes = m.mx.Hashes.Load()
		}
	}
}

// report formats one summary line
func (m *Miner) report(now, start, last time.Time, lastHashes uint64) string {
	s := m.mx.Snapshot()
	intervalDur := now.Sub(last)
	totalDur := now.Sub(start)
	delta := s.Hashes - lastHashes
	var rateInterval, rateTotal float64
	if secs := intervalDur.Seconds(); secs > 0 {
		rateInterval = float64(delta) / secs
	}
	if secs := totalDur.Seconds(); secs > 0 {
		rateTotal = float64(s.Hashes) / secs
	}
	return fmt.Sprintf("Periodic Report interval=%10s total=%10s | hashes %d/%d | rate %.2f/s (overall %.2f/s) | difficulty %d(%d) | solutions %d stale %d | shares %d/%d (acc %.1f%%) | broadcasts %d peers %d/%d | sigfail %d errors %d",
		intervalDur.Round(time.Second), totalDur.Round(time.Second),
		delta, s.Hashes, rateInterval, rateTotal,
		s.Difficulty, s.RealDifficulty,
		s.Solutions, s.StaleTargets,
		s.SharesOK, s.SharesOK+s.SharesBad, s.ShareAcceptance,
		s.Broadcasts, s.PeerSubmitOK, s.PeerSubmitOK+s.PeerSubmitBad,
		s.SignatureFails, s.WorkerErrors)
}
