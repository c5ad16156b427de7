package miner

import (
	"time"

	"github.com/carlosrabelo/powminer/internal/proxysocks"
)

// Networks
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// NetworkProfile holds the per-network defaults
type NetworkProfile struct {
	NodePort   int
	PeersFile  string
	LedgerPath string
}

var profiles = map[string]NetworkProfile{
	NetworkMainnet: {NodePort: 5658, PeersFile: "peers.txt", LedgerPath: "static/ledger.db"},
	NetworkTestnet: {NodePort: 2829, PeersFile: "peers_test.txt", LedgerPath: "static/test.db"},
}

// Profile returns the defaults for network
func Profile(network string) (NetworkProfile, bool) {
	p, ok := profiles[network]
	return p, ok
}

// Config holds miner configuration. It is read-only once loaded and copied into each worker.
type Config struct {
	Network string `json:"network"`
	Node    struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		TimeoutMs int    `json:"timeout_ms"`
	} `json:"node"`
	Pool struct {
		Enabled   bool   `json:"enabled"`
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Address   string `json:"address"` // pool's reward address
		TimeoutMs int    `json:"timeout_ms"`
	} `json:"pool"`
	Mining struct {
		Threads     int `json:"threads"`
		DiffRecalc  int `json:"diff_recalc"` // attempts per target before re-deriving
		SampleEvery int `json:"sample_every"`
	} `json:"mining"`
	Sync struct {
		Enabled         bool `json:"enabled"`
		StartupLagSec   int  `json:"startup_lag_sec"`
		SubmitLagSec    int  `json:"submit_lag_sec"`
		PollIntervalSec int  `json:"poll_interval_sec"`
	} `json:"sync"`
	Ledger struct {
		Path       string `json:"path"`
		RetryMs    int    `json:"retry_ms"`
		MaxRetries int    `json:"max_retries"`
	} `json:"ledger"`
	Peers struct {
		File      string `json:"file"`
		TimeoutMs int    `json:"timeout_ms"`
	} `json:"peers"`
	SocksProxy proxysocks.Config `json:"socks_proxy"`
	Wallet     struct {
		Path string `json:"path"`
	} `json:"wallet"`
	Journal struct {
		Path string `json:"path"`
	} `json:"journal"`
	HTTP struct {
		Listen string `json:"listen"`
	} `json:"http"`
	ReportIntervalSec int    `json:"report_interval_sec"`
	LogLevel          string `json:"log_level"`
	Debug             bool   `json:"debug"`
}

// MiningAddress is the address searched for and rewarded: the pool's when pooled
func (c Config) MiningAddress(own string) string {
	if c.Pool.Enabled {
		return c.Pool.Address
	}
	return own
}

// SubmitLag is the maximum ledger lag tolerated before submitting a block
func (c Config) SubmitLag() time.Duration {
	return time.Duration(c.Sync.SubmitLagSec) * time.Second
}

// StartupLag is the maximum ledger lag tolerated before workers start
func (c Config) StartupLag() time.Duration {
	return time.Duration(c.Sync.StartupLagSec) * time.Second
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// NodeTimeout is the node connect timeout
func (c Config) NodeTimeout() time.Duration { return millis(c.Node.TimeoutMs) }

// PoolTimeout is the pool connect timeout
func (c Config) PoolTimeout() time.Duration { return millis(c.Pool.TimeoutMs) }

// PeerTimeout is the per-peer connect timeout
func (c Config) PeerTimeout() time.Duration { return millis(c.Peers.TimeoutMs) }
