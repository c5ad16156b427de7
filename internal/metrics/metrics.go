// Package metrics provides collection and reporting of miner metrics
package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Collector holds all miner metrics. Counters are mirrored into Prometheus when attached.
type Collector struct {
	// Work metrics
	Hashes        atomic.Uint64
	Solutions     atomic.Uint64
	StaleTargets  atomic.Uint64
	WorkersActive atomic.Int64

	// Submission metrics
	SharesOK       atomic.Uint64
	SharesBad      atomic.Uint64
	PeerSubmitOK   atomic.Uint64
	PeerSubmitBad  atomic.Uint64
	Broadcasts     atomic.Uint64
	SignatureFails atomic.Uint64
	WorkerErrors   atomic.Uint64

	// Target metrics
	LastDifficulty     atomic.Int64
	LastRealDifficulty atomic.Int64
	LastSolutionUnix   atomic.Int64

	rateMu sync.Mutex
	rates  map[int]float64

	prom *PrometheusCollectors
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{rates: make(map[int]float64)}
}

// AttachPrometheus mirrors subsequent updates into p
func (m *Collector) AttachPrometheus(p *PrometheusCollectors) {
	m.prom = p
}

// AddHashes accounts for n attempted nonces
func (m *Collector) AddHashes(n int) {
	if n <= 0 {
		return
	}
	m.Hashes.Add(uint64(n))
	if m.prom != nil {
		m.prom.Hashes.Add(float64(n))
	}
}

// SetWorkerRate records a worker's latest rate sample
func (m *Collector) SetWorkerRate(worker int, rate float64) {
	m.rateMu.Lock()
	m.rates[worker] = rate
	m.rateMu.Unlock()
	if m.prom != nil {
		m.prom.Hashrate.WithLabelValues(strconv.Itoa(worker)).Set(rate)
	}
}

// GetHashrate sums the latest samples of all workers
func (m *Collector) GetHashrate() float64 {
	m.rateMu.Lock()
	defer m.rateMu.Unlock()
	total := 0.0
	for _, r := range m.rates {
		total += r
	}
	return total
}

// IncrementWorkers increments the active worker count
func (m *Collector) IncrementWorkers() {
	m.WorkersActive.Add(1)
	if m.prom != nil {
		m.prom.WorkersActive.Inc()
	}
}

// DecrementWorkers decrements the active worker count
func (m *Collector) DecrementWorkers() {
	m.WorkersActive.Add(-1)
	if m.prom != nil {
		m.prom.WorkersActive.Dec()
	}
}

// SetDifficulty records the difficulty of the latest derived target
func (m *Collector) SetDifficulty(effective, real int) {
	m.LastDifficulty.Store(int64(effective))
	m.LastRealDifficulty.Store(int64(real))
	if m.prom != nil {
		m.prom.Difficulty.Set(float64(effective))
		m.prom.RealDifficulty.Set(float64(real))
	}
}

// IncrementSolutions counts a nonce that met the search condition
func (m *Collector) IncrementSolutions(at time.Time) {
	m.Solutions.Add(1)
	m.LastSolutionUnix.Store(at.Unix())
	if m.prom != nil {
		m.prom.Solutions.Inc()
	}
}

// IncrementStaleTargets counts an exhausted search budget
func (m *Collector) IncrementStaleTargets() {
	m.StaleTargets.Add(1)
	if m.prom != nil {
		m.prom.StaleTargets.Inc()
	}
}

// IncrementSharesOK counts a share delivered to the pool
func (m *Collector) IncrementSharesOK() {
	m.SharesOK.Add(1)
	if m.prom != nil {
		m.prom.Shares.WithLabelValues("ok").Inc()
	}
}

// IncrementSharesBad counts a failed pool submission
func (m *Collector) IncrementSharesBad() {
	m.SharesBad.Add(1)
	if m.prom != nil {
		m.prom.Shares.WithLabelValues("failed").Inc()
	}
}

// IncrementPeerSubmit counts one per-peer submission outcome
func (m *Collector) IncrementPeerSubmit(ok bool) {
	label := "ok"
	if ok {
		m.PeerSubmitOK.Add(1)
	} else {
		m.PeerSubmitBad.Add(1)
		label = "failed"
	}
	if m.prom != nil {
		m.prom.PeerSubmits.WithLabelValues(label).Inc()
	}
}

// IncrementBroadcasts counts a block broadcast to the peer set
func (m *Collector) IncrementBroadcasts() {
	m.Broadcasts.Add(1)
	if m.prom != nil {
		m.prom.Broadcasts.Inc()
	}
}

// IncrementSignatureFails counts a discarded block with an invalid reward signature
func (m *Collector) IncrementSignatureFails() {
	m.SignatureFails.Add(1)
	if m.prom != nil {
		m.prom.SignatureFails.Inc()
	}
}

// IncrementWorkerErrors counts errors caught by a worker's recovery boundary
func (m *Collector) IncrementWorkerErrors() {
	m.WorkerErrors.Add(1)
	if m.prom != nil {
		m.prom.WorkerErrors.Inc()
	}
}

// GetShareAcceptanceRate calculates the pool delivery rate as percentage
func (m *Collector) GetShareAcceptanceRate() float64 {
	ok := m.SharesOK.Load()
	total := ok + m.SharesBad.Load()
	if total == 0 {
		return 0
	}
	return (float64(ok) / float64(total)) * 100
}

// Snapshot returns a snapshot of current metrics
func (m *Collector) Snapshot() Snapshot {
	var last time.Time
	if u := m.LastSolutionUnix.Load(); u > 0 {
		last = time.Unix(u, 0)
	}
	return Snapshot{
		WorkersActive:   m.WorkersActive.Load(),
		Hashes:          m.Hashes.Load(),
		Hashrate:        m.GetHashrate(),
		Solutions:       m.Solutions.Load(),
		StaleTargets:    m.StaleTargets.Load(),
		SharesOK:        m.SharesOK.Load(),
		SharesBad:       m.SharesBad.Load(),
		ShareAcceptance: m.GetShareAcceptanceRate(),
		PeerSubmitOK:    m.PeerSubmitOK.Load(),
		PeerSubmitBad:   m.PeerSubmitBad.Load(),
		Broadcasts:      m.Broadcasts.Load(),
		SignatureFails:  m.SignatureFails.Load(),
		WorkerErrors:    m.WorkerErrors.Load(),
		Difficulty:      m.LastDifficulty.Load(),
		RealDifficulty:  m.LastRealDifficulty.Load(),
		LastSolution:    last,
	}
}

// Snapshot represents a point-in-time view of metrics
type Snapshot struct {
	WorkersActive   int64     `json:"workers_active"`
	Hashes          uint64    `json:"hashes"`
	Hashrate        float64   `json:"hashrate"`
	Solutions       uint64    `json:"solutions"`
	StaleTargets    uint64    `json:"stale_targets"`
	SharesOK        uint64    `json:"shares_ok"`
	SharesBad       uint64    `json:"shares_bad"`
	ShareAcceptance float64   `json:"share_acceptance"`
	PeerSubmitOK    uint64    `json:"peer_submit_ok"`
	PeerSubmitBad   uint64    `json:"peer_submit_failed"`
	Broadcasts      uint64    `json:"broadcasts"`
	SignatureFails  uint64    `json:"signature_failures"`
	WorkerErrors    uint64    `json:"worker_errors"`
	Difficulty      int64     `json:"difficulty"`
	RealDifficulty  int64     `json:"real_difficulty"`
	LastSolution    time.Time `json:"last_solution"`
}
