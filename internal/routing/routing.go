// Package routing delivers solved blocks to the pool and to the peer set
package routing

import (
	"context"
	"sync"
	"time"

	"github.com/carlosrabelo/powminer/internal/block"
	"github.com/carlosrabelo/powminer/internal/connection"
	"github.com/carlosrabelo/powminer/internal/metrics"
	"github.com/carlosrabelo/powminer/internal/peers"
	"github.com/carlosrabelo/powminer/pkg/logger"
)

// DefaultPeerTimeout bounds each peer connect
const DefaultPeerTimeout = 300 * time.Millisecond

// ShareSink accepts pool shares tagged with the miner's address
type ShareSink interface {
	SubmitShare(ctx context.Context, minerAddress string, block any) error
}

// Outcome summarizes one submission
type Outcome struct {
	ShareSent   bool
	ShareFailed bool
	Broadcast   bool
	PeersOK     int
	PeersFailed int
}

// Router manages block delivery. It is safe for concurrent use by all workers.
type Router struct {
	peers        []peers.Peer
	dialer       connection.Dialer
	pool         ShareSink
	minerAddress string
	peerTimeout  time.Duration
	mx           *metrics.Collector
	log          *logger.Logger
}

// NewRouter creates a router for solo mining when pool is nil, pooled mining otherwise
func NewRouter(dir *peers.Directory, d connection.Dialer, pool ShareSink, minerAddress string, mx *metrics.Collector, log *logger.Logger) *Router {
	if mx == nil {
		mx = metrics.NewCollector()
	}
	if log == nil {
		log = logger.Default
	}
	var list []peers.Peer
	if dir != nil {
		list = dir.Peers()
	}
	return &Router{
		peers:        list,
		dialer:       d,
		pool:         pool,
		minerAddress: minerAddress,
		peerTimeout:  DefaultPeerTimeout,
		mx:           mx,
		log:          log,
	}
}

// SetPeerTimeout overrides the per-peer connect timeout
func (r *Router) SetPeerTimeout(d time.Duration) {
	if d > 0 {
		r.peerTimeout = d
	}
}

// Pooled reports whether shares go to a pool
func (r *Router) Pooled() bool {
	return r.pool != nil
}

// Submit delivers blk. Solo: broadcast to every peer. Pooled: always send the share, and
// broadcast too when the block meets the network difficulty. Failures are logged and counted,
// never returned, so a block may be submitted more than once without harm.
func (r *Router) Submit(ctx context.Context, blk block.Block, realDifficultyMet bool) Outcome {
	var out Outcome

	if r.pool != nil {
		if err := r.pool.SubmitShare(ctx, r.minerAddress, blk); err != nil {
			r.log.Warn("Pool share submission failed: %v", err)
			r.mx.IncrementSharesBad()
			out.ShareFailed = true
		} else {
			r.log.Info("Share submitted to pool")
			r.mx.IncrementSharesOK()
			out.ShareSent = true
		}
		if !realDifficultyMet {
			return out
		}
		r.log.Info("Block meets network difficulty, broadcasting to peers")
	}

	out.Broadcast = true
	out.PeersOK, out.PeersFailed = r.broadcast(ctx, blk)
	r.mx.IncrementBroadcasts()
	return out
}

// broadcast sends blk to every peer concurrently and waits for all attempts
func (r *Router) broadcast(ctx context.Context, blk block.Block) (int, int) {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, failed int
	)
	for _, p := range r.peers {
		wg.Add(1)
		go func(p peers.Peer) {
			defer wg.Done()
			e := connection.Endpoint{Host: p.Host, Port: p.Port, Timeout: r.peerTimeout}
			err := connection.SubmitBlock(ctx, r.dialer, e, blk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.log.Debug("Could not submit block to %s: %v", p.Address(), err)
				r.mx.IncrementPeerSubmit(false)
				failed++
				return
			}
			r.log.Debug("Block submitted to %s", p.Address())
			r.mx.IncrementPeerSubmit(true)
			ok++
		}(p)
	}
	wg.Wait()
	r.log.Info("Block broadcast: %d peers ok, %d failed", ok, failed)
	return ok, failed
}
