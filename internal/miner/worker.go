package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carlosrabelo/powminer/internal/block"
	"github.com/carlosrabelo/powminer/internal/difficulty"
	"github.com/carlosrabelo/powminer/internal/journal"
	"github.com/carlosrabelo/powminer/internal/metrics"
	"github.com/carlosrabelo/powminer/internal/nonce"
	"github.com/carlosrabelo/powminer/internal/pow"
	"github.com/carlosrabelo/powminer/internal/routing"
	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
	"github.com/carlosrabelo/powminer/pkg/logger"
)

// RestartDelay is the pause after a worker error before mining resumes
const RestartDelay = 100 * time.Millisecond

// PoolNegotiator fetches the pool's share qualification percentage
type PoolNegotiator interface {
	Negotiate(ctx context.Context) (int, error)
}

// Submitter routes a solved block
type Submitter interface {
	Submit(ctx context.Context, blk block.Block, realDifficultyMet bool) routing.Outcome
}

// SyncGate blocks until the local ledger is recent enough
type SyncGate interface {
	WaitUntilSynced(ctx context.Context, maxLag time.Duration) error
}

// Recorder persists found solutions
type Recorder interface {
	Record(s journal.Solution) error
}

// Deps are the shared collaborators handed to every worker. Optional ones may be nil.
type Deps struct {
	State      difficulty.StateSource
	Mempool    block.MempoolSource
	Pool       PoolNegotiator // nil when solo mining
	Router     Submitter
	Gate       SyncGate // nil when sync checks are disabled
	Journal    Recorder
	Signer     *block.Signer
	OwnAddress string
	NewNonces  func() pow.NonceSource
	Metrics    *metrics.Collector
	Log        *logger.Logger
}

// Worker is one independent mining loop. Workers share no mutable state.
type Worker struct {
	id        int
	cfg       Config
	deps      Deps
	address   string
	log       *logger.Logger
	mx        *metrics.Collector
	oracle    *difficulty.Oracle
	searcher  *pow.Searcher
	assembler *block.Assembler
	now       func() time.Time
	target    difficulty.Target
}

// NewWorker creates worker id with its own nonce source
func NewWorker(id int, cfg Config, deps Deps) *Worker {
	log := deps.Log
	if log == nil {
		log = logger.Default
	}
	mx := deps.Metrics
	if mx == nil {
		mx = metrics.NewCollector()
	}
	var nonces pow.NonceSource
	if deps.NewNonces != nil {
		nonces = deps.NewNonces()
	} else {
		nonces = nonce.NewGenerator()
	}

	w := &Worker{
		id:        id,
		cfg:       cfg,
		deps:      deps,
		address:   cfg.MiningAddress(deps.OwnAddress),
		log:       log.With("worker", id),
		mx:        mx,
		assembler: block.NewAssembler(deps.Mempool, deps.Signer),
		now:       time.Now,
	}
	w.searcher = pow.NewSearcher(nonces, w.address)
	w.searcher.OnSample(cfg.Mining.SampleEvery, w.reportRate)
	return w
}

// ID returns the worker number
func (w *Worker) ID() int {
	return w.id
}

// Run mines until ctx is cancelled. Errors and panics are logged and the loop restarts
// after RestartDelay; in debug mode the first error is returned instead.
func (w *Worker) Run(ctx context.Context) error {
	w.mx.IncrementWorkers()
	defer w.mx.DecrementWorkers()
	w.log.Info("Thread %d started, mining for %s", w.id, w.address)

	for {
		err := w.safeSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}
		w.mx.IncrementWorkerErrors()
		w.log.Error("%v", err)
		if w.cfg.Debug {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(RestartDelay):
		}
	}
}

func (w *Worker) safeSession(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d panic: %v", w.id, r)
		}
	}()
	return w.session(ctx)
}

// session negotiates with the pool, then derives targets and searches until an error.
// The negotiated percentage lives as long as the session.
func (w *Worker) session(ctx context.Context) error {
	if err := w.negotiate(ctx); err != nil {
		return err
	}

	for ctx.Err() == nil {
		target, err := w.oracle.Derive(ctx)
		if err != nil {
			return err
		}
		w.target = target
		w.mx.SetDifficulty(target.Difficulty, target.RealDifficulty)

		res, err := w.searcher.Search(ctx, target, w.cfg.Mining.DiffRecalc)
		w.mx.AddHashes(res.Attempts)
		if errors.Is(err, pow.ErrExhausted) {
			w.mx.IncrementStaleTargets()
			continue
		}
		if err != nil {
			return err
		}
		if err := w.handleSolution(ctx, target, res); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (w *Worker) negotiate(ctx context.Context) error {
	if w.deps.Pool == nil {
		w.oracle = difficulty.NewSoloOracle(w.deps.State)
		return nil
	}
	w.log.Info("Asking pool for share qualification difficulty requirement")
	pct, err := w.deps.Pool.Negotiate(ctx)
	if err != nil {
		return fmt.Errorf("pool negotiation: %w", err)
	}
	w.log.Info("Received pool share qualification difficulty requirement: %d%%", pct)
	w.oracle = difficulty.NewPoolOracle(w.deps.State, pct)
	return nil
}

// handleSolution assembles, records, gates and submits a found nonce
func (w *Worker) handleSolution(ctx context.Context, target difficulty.Target, res pow.Result) error {
	foundAt := w.now()
	w.mx.IncrementSolutions(foundAt)
	w.log.Info("Thread %d found a good block hash in %d cycles", w.id, res.Attempts)

	asm, err := w.assembler.Assemble(ctx, res.Nonce, w.address)
	if apperrors.HasCode(err, apperrors.CodeSignatureInvalid) {
		w.mx.IncrementSignatureFails()
		w.log.Error("Invalid signature, block discarded")
		return nil
	}
	if err != nil {
		return err
	}
	w.log.Debug("Signature valid, block has %d transactions", len(asm.Block.Transactions()))

	meetsReal := res.MeetsReal(target)
	if w.deps.Journal != nil {
		sol := journal.Solution{
			Worker:            w.id,
			FoundAt:           foundAt,
			Nonce:             res.Nonce,
			MiningHash:        res.Hash,
			BlockHash:         target.BlockHash,
			Difficulty:        target.Difficulty,
			RealDifficulty:    target.RealDifficulty,
			Pooled:            w.deps.Pool != nil,
			MeetsReal:         meetsReal,
			Transactions:      len(asm.Block.Transactions()),
			RemovalSignatures: asm.RemovalSignatures,
		}
		if err := w.deps.Journal.Record(sol); err != nil {
			w.log.Warn("Could not record solution: %v", err)
		}
	}

	if w.deps.Gate != nil {
		if err := w.deps.Gate.WaitUntilSynced(ctx, w.cfg.SubmitLag()); err != nil {
			return err
		}
	}

	w.deps.Router.Submit(ctx, asm.Block, meetsReal)
	return nil
}

func (w *Worker) reportRate(s pow.Sample) {
	w.mx.SetWorkerRate(w.id, s.Rate)
	hash := w.target.BlockHash
	if len(hash) > 10 {
		hash = hash[:10]
	}
	w.log.Info("Thread%d %s @ %.2f cycles/second, difficulty: %d(%d), iteration: %d",
		w.id, hash, s.Rate, w.target.Difficulty, w.target.RealDifficulty, s.Attempts)
}
