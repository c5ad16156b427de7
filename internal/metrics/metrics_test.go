package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorInitial(t *testing.T) {
	c := NewCollector()
	s := c.Snapshot()

	if s.Hashes != 0 || s.SharesOK != 0 || s.Broadcasts != 0 {
		t.Errorf("expected zero counters, got %+v", s)
	}
	if s.ShareAcceptance != 0 {
		t.Error("Initial acceptance rate should be 0")
	}
	if !s.LastSolution.IsZero() {
		t.Error("Initial last solution should be zero")
	}
}

func TestCollectorShares(t *testing.T) {
	c := NewCollector()

	c.IncrementSharesOK()
	c.IncrementSharesOK()
	c.IncrementSharesOK()
	c.IncrementSharesBad()

	if rate := c.GetShareAcceptanceRate(); rate != 75 {
		t.Errorf("Expected 75%% acceptance, got %.2f", rate)
	}
}

func TestCollectorHashrate(t *testing.T) {
	c := NewCollector()
	c.SetWorkerRate(1, 100)
	c.SetWorkerRate(2, 50)
	c.SetWorkerRate(1, 120)

	if got := c.GetHashrate(); got != 170 {
		t.Errorf("Expected 170, got %.1f", got)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.AddHashes(10)
				c.SetWorkerRate(w, float64(i))
				c.IncrementPeerSubmit(i%2 == 0)
			}
		}(w)
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Hashes != 8000 {
		t.Errorf("Expected 8000 hashes, got %d", s.Hashes)
	}
	if s.PeerSubmitOK != 400 || s.PeerSubmitBad != 400 {
		t.Errorf("unexpected peer submits %d/%d", s.PeerSubmitOK, s.PeerSubmitBad)
	}
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	at := time.Unix(1700000000, 0)

	c.IncrementWorkers()
	c.IncrementWorkers()
	c.DecrementWorkers()
	c.SetDifficulty(5, 10)
	c.IncrementSolutions(at)
	c.IncrementStaleTargets()
	c.IncrementBroadcasts()
	c.IncrementSignatureFails()
	c.IncrementWorkerErrors()

	s := c.Snapshot()
	if s.WorkersActive != 1 || s.Difficulty != 5 || s.RealDifficulty != 10 {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if s.Solutions != 1 || !s.LastSolution.Equal(at) {
		t.Errorf("unexpected solution fields %+v", s)
	}
	if s.StaleTargets != 1 || s.Broadcasts != 1 || s.SignatureFails != 1 || s.WorkerErrors != 1 {
		t.Errorf("unexpected counters %+v", s)
	}
}

func TestPrometheusMirror(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := InitPrometheus(reg, "powminer")

	c := NewCollector()
	c.AttachPrometheus(pc)

	c.AddHashes(2500)
	c.IncrementSharesOK()
	c.IncrementSharesBad()
	c.IncrementPeerSubmit(false)
	c.SetDifficulty(5, 10)
	c.SetWorkerRate(3, 42)

	if got := testutil.ToFloat64(pc.Hashes); got != 2500 {
		t.Errorf("hashes_total = %v", got)
	}
	if got := testutil.ToFloat64(pc.Shares.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed shares = %v", got)
	}
	if got := testutil.ToFloat64(pc.PeerSubmits.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed peer submits = %v", got)
	}
	if got := testutil.ToFloat64(pc.RealDifficulty); got != 10 {
		t.Errorf("network_difficulty = %v", got)
	}
	if got := testutil.ToFloat64(pc.Hashrate.WithLabelValues("3")); got != 42 {
		t.Errorf("worker_hashrate = %v", got)
	}

	again := InitPrometheus(reg, "powminer")
	if again.Hashes != pc.Hashes {
		t.Error("re-registration should return the existing collector")
	}
}
