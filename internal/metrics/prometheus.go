package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollectors holds all prometheus metric collectors
type PrometheusCollectors struct {
	Hashes         prometheus.Counter
	Hashrate       *prometheus.GaugeVec
	WorkersActive  prometheus.Gauge
	Solutions      prometheus.Counter
	StaleTargets   prometheus.Counter
	Shares         *prometheus.CounterVec
	PeerSubmits    *prometheus.CounterVec
	Broadcasts     prometheus.Counter
	SignatureFails prometheus.Counter
	WorkerErrors   prometheus.Counter
	Difficulty     prometheus.Gauge
	RealDifficulty prometheus.Gauge
}

// InitPrometheus initializes and registers prometheus metrics on reg
func InitPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollectors {
	// Helper to safely register or get existing collector
	register := func(c prometheus.Collector) prometheus.Collector {
		if err := reg.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				return are.ExistingCollector
			}
			return c
		}
		return c
	}

	pc := &PrometheusCollectors{}

	pc.Hashes = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hashes_total",
		Help:      "Total number of nonces tried",
	})).(prometheus.Counter)

	pc.Hashrate = register(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_hashrate",
		Help:      "Latest sampled attempts per second, per worker",
	}, []string{"worker"})).(*prometheus.GaugeVec)

	pc.WorkersActive = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_active_count",
		Help:      "Number of running mining workers",
	})).(prometheus.Gauge)

	pc.Solutions = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "solutions_total",
		Help:      "Total number of nonces meeting the search condition",
	})).(prometheus.Counter)

	pc.StaleTargets = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_targets_total",
		Help:      "Search bursts that exhausted their budget and forced re-derivation",
	})).(prometheus.Counter)

	pc.Shares = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_shares_total",
		Help:      "Pool share submissions by outcome",
	}, []string{"result"})).(*prometheus.CounterVec)

	pc.PeerSubmits = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "peer_submissions_total",
		Help:      "Per-peer block submissions by outcome",
	}, []string{"result"})).(*prometheus.CounterVec)

	pc.Broadcasts = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "block_broadcasts_total",
		Help:      "Blocks broadcast to the peer set",
	})).(prometheus.Counter)

	pc.SignatureFails = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_failures_total",
		Help:      "Blocks discarded because the reward signature did not verify",
	})).(prometheus.Counter)

	pc.WorkerErrors = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_errors_total",
		Help:      "Errors caught by worker recovery",
	})).(prometheus.Counter)

	pc.Difficulty = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "difficulty",
		Help:      "Effective difficulty of the latest target",
	})).(prometheus.Gauge)

	pc.RealDifficulty = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "network_difficulty",
		Help:      "Network difficulty of the latest target",
	})).(prometheus.Gauge)

	return pc
}
