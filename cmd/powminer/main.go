// powminer (Go) - Proof-of-work mining client
// Author: Carlos Rabelo <contato@carlosrabelo.com.br>

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/carlosrabelo/powminer/internal/block"
	"github.com/carlosrabelo/powminer/internal/connection"
	"github.com/carlosrabelo/powminer/internal/journal"
	"github.com/carlosrabelo/powminer/internal/ledger"
	"github.com/carlosrabelo/powminer/internal/metrics"
	"github.com/carlosrabelo/powminer/internal/miner"
	"github.com/carlosrabelo/powminer/internal/peers"
	"github.com/carlosrabelo/powminer/internal/pow"
	"github.com/carlosrabelo/powminer/internal/proxysocks"
	"github.com/carlosrabelo/powminer/internal/routing"
	"github.com/carlosrabelo/powminer/internal/syncgate"
	"github.com/carlosrabelo/powminer/internal/wallet"
	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
	"github.com/carlosrabelo/powminer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const version = "powminer v0.1.0"

func main() {
	cfgFile := flag.String("config", "config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	log := logger.Default
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warn("Invalid log level %q, using info", cfg.LogLevel)
	}
	if cfg.Debug {
		_ = log.SetLevel("debug")
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil && ctx.Err() == nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

// run wires the components and blocks until every worker has stopped
func run(ctx context.Context, cfg *miner.Config, log *logger.Logger) error {
	keys, err := wallet.Load(cfg.Wallet.Path)
	if err != nil {
		return err
	}
	log.Info("Wallet loaded, address %s", keys.Address)

	dialer, err := proxysocks.NewProxyDialer(&cfg.SocksProxy)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeConfig, "socks proxy", err)
	}
	if dialer.IsEnabled() {
		log.Info("Routing connections through SOCKS proxy %s", dialer.GetAddress())
	}
	if cfg.Network == miner.NetworkTestnet {
		log.Info("Mining on testnet")
	}

	node := connection.NewNodeClient(dialer, connection.Endpoint{
		Host:    cfg.Node.Host,
		Port:    cfg.Node.Port,
		Timeout: cfg.NodeTimeout(),
	})
	if err := miner.WaitForNode(ctx, node, time.Second, log); err != nil {
		return err
	}

	var gate miner.SyncGate
	if cfg.Sync.Enabled {
		db, err := ledger.Open(cfg.Ledger.Path, ledger.RetryPolicy{
			Interval:    time.Duration(cfg.Ledger.RetryMs) * time.Millisecond,
			MaxAttempts: cfg.Ledger.MaxRetries,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		db.OnRetry(func(attempt int, err error) {
			log.Debug("Retrying database execute due to %v (attempt %d)", err, attempt)
		})
		g := syncgate.New(db, time.Duration(cfg.Sync.PollIntervalSec)*time.Second, log)
		if err := miner.WaitForSync(ctx, g, cfg.StartupLag(), time.Second, 8*time.Second, log); err != nil {
			return err
		}
		gate = g
	}

	dir, invalid, err := peers.LoadFile(cfg.Peers.File)
	if err != nil {
		return err
	}
	for _, bad := range invalid {
		log.Warn("Skipping peer line %d %q: %s", bad.Line, bad.Text, bad.Reason)
	}
	log.Info("Loaded %d peers from %s", dir.Len(), cfg.Peers.File)

	mx := metrics.NewCollector()
	mx.AttachPrometheus(metrics.InitPrometheus(prometheus.DefaultRegisterer, "powminer"))

	var (
		pool miner.PoolNegotiator
		sink routing.ShareSink
	)
	if cfg.Pool.Enabled {
		pc := connection.NewPoolClient(dialer, connection.Endpoint{
			Host:    cfg.Pool.Host,
			Port:    cfg.Pool.Port,
			Timeout: cfg.PoolTimeout(),
		})
		pool, sink = pc, pc
		log.Info("Pool mining via %s for %s", pc.Endpoint().Address(), cfg.Pool.Address)
	}
	router := routing.NewRouter(dir, dialer, sink, keys.Address, mx, log)
	router.SetPeerTimeout(cfg.PeerTimeout())

	var rec miner.Recorder
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	m := miner.New(*cfg, miner.Deps{
		State:      node,
		Mempool:    node,
		Pool:       pool,
		Router:     router,
		Gate:       gate,
		Journal:    rec,
		Signer:     block.NewSigner(keys.PrivateKey, keys.PublicKeyHashed),
		OwnAddress: keys.Address,
		Metrics:    mx,
		Log:        log,
	})

	if cfg.HTTP.Listen != "" {
		go m.HttpServe(ctx)
	}
	go m.ReportLoop(ctx, time.Duration(cfg.ReportIntervalSec)*time.Second)

	m.Start(ctx)
	err = m.Wait()
	log.Info("Shutting down...")
	return err
}

func loadConfig(path string) (*miner.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "reading config file", err)
	}

	var cfg miner.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "parsing config file", err)
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *miner.Config) error {
	if cfg.Network == "" {
		cfg.Network = miner.NetworkMainnet
	}
	profile, ok := miner.Profile(cfg.Network)
	if !ok {
		return apperrors.New(apperrors.CodeConfig, fmt.Sprintf("unknown network %q (must be %q or %q)",
			cfg.Network, miner.NetworkMainnet, miner.NetworkTestnet))
	}

	if cfg.Node.Host == "" {
		cfg.Node.Host = "127.0.0.1"
	}
	if cfg.Node.Port == 0 {
		cfg.Node.Port = profile.NodePort
	}
	if cfg.Node.TimeoutMs == 0 {
		cfg.Node.TimeoutMs = 10000
	}
	if cfg.Pool.Port == 0 {
		cfg.Pool.Port = connection.DefaultPoolPort
	}
	if cfg.Pool.TimeoutMs == 0 {
		cfg.Pool.TimeoutMs = 300
	}
	if cfg.Mining.Threads == 0 {
		cfg.Mining.Threads = runtime.NumCPU()
	}
	if cfg.Mining.DiffRecalc == 0 {
		cfg.Mining.DiffRecalc = pow.DefaultBudget
	}
	if cfg.Mining.SampleEvery == 0 {
		cfg.Mining.SampleEvery = pow.DefaultSampleEvery
	}
	if cfg.Sync.StartupLagSec == 0 {
		cfg.Sync.StartupLagSec = 120
	}
	if cfg.Sync.SubmitLagSec == 0 {
		cfg.Sync.SubmitLagSec = 300
	}
	if cfg.Sync.PollIntervalSec == 0 {
		cfg.Sync.PollIntervalSec = int(syncgate.DefaultPollInterval / time.Second)
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = profile.LedgerPath
	}
	if cfg.Ledger.RetryMs == 0 {
		cfg.Ledger.RetryMs = int(ledger.DefaultRetry.Interval / time.Millisecond)
	}
	if cfg.Ledger.MaxRetries == 0 {
		cfg.Ledger.MaxRetries = ledger.DefaultRetry.MaxAttempts
	}
	if cfg.Peers.File == "" {
		cfg.Peers.File = profile.PeersFile
	}
	if cfg.Peers.TimeoutMs == 0 {
		cfg.Peers.TimeoutMs = int(routing.DefaultPeerTimeout / time.Millisecond)
	}
	cfg.SocksProxy.ApplyTorDefaults()
	if cfg.Wallet.Path == "" {
		cfg.Wallet.Path = wallet.DefaultPath
	}
	if cfg.ReportIntervalSec == 0 {
		cfg.ReportIntervalSec = 60
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return nil
}

func validate(cfg *miner.Config) error {
	if cfg.Pool.Enabled {
		if cfg.Pool.Host == "" {
			return apperrors.New(apperrors.CodeConfig, "pool.host is required when pool mining is enabled")
		}
		if cfg.Pool.Address == "" {
			return apperrors.New(apperrors.CodeConfig, "pool.address is required when pool mining is enabled")
		}
	}
	if cfg.Mining.Threads < 0 {
		return apperrors.New(apperrors.CodeConfig, fmt.Sprintf("mining.threads (%d) must be positive", cfg.Mining.Threads))
	}
	if cfg.Mining.DiffRecalc < 0 {
		return apperrors.New(apperrors.CodeConfig, fmt.Sprintf("mining.diff_recalc (%d) must be positive", cfg.Mining.DiffRecalc))
	}
	if cfg.Sync.SubmitLagSec < 0 || cfg.Sync.StartupLagSec < 0 {
		return apperrors.New(apperrors.CodeConfig, "sync lags must be positive")
	}
	return nil
}
