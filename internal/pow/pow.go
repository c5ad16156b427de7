// Package pow runs the proof-of-work nonce search
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/carlosrabelo/powminer/internal/difficulty"
	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

const (
	// DefaultBudget is the number of attempts before the target is re-derived
	DefaultBudget = 10000
	// DefaultSampleEvery is the attempt interval between rate samples
	DefaultSampleEvery = 2500
	// ctxCheckMask sets how often the loop polls for cancellation
	ctxCheckMask = 1023
)

// ErrExhausted means the attempt budget ran out before a match
var ErrExhausted = apperrors.New(apperrors.CodeStaleTarget, "search budget exhausted")

// NonceSource yields fresh nonces
type NonceSource interface {
	Next() (string, error)
}

// Sample is a periodic rate observation
type Sample struct {
	Attempts int
	Elapsed  time.Duration
	Rate     float64 // attempts per second
}

// Result is a successful search
type Result struct {
	Nonce    string
	Hash     string // hex mining hash
	Binary   string // binary expansion of Hash
	Attempts int
}

// MeetsReal re-tests the solution against the target's full network difficulty
func (r Result) MeetsReal(t difficulty.Target) bool {
	return difficulty.Meets(r.Binary, t.RealCondition())
}

// Searcher hashes address+nonce+block hash until the condition appears
type Searcher struct {
	nonces      NonceSource
	address     string
	sampleEvery int
	onSample    func(Sample)
	now         func() time.Time
}

// NewSearcher creates a searcher mining for address
func NewSearcher(nonces NonceSource, address string) *Searcher {
	return &Searcher{
		nonces:      nonces,
		address:     address,
		sampleEvery: DefaultSampleEvery,
		now:         time.Now,
	}
}

// OnSample registers fn to receive rate samples every n attempts
func (s *Searcher) OnSample(n int, fn func(Sample)) {
	if n > 0 {
		s.sampleEvery = n
	}
	s.onSample = fn
}

// Hash computes the hex SHA-224 mining hash of address+nonce+blockHash
func Hash(address, nonce, blockHash string) string {
	sum := sha256.Sum224([]byte(address + nonce + blockHash))
	return hex.EncodeToString(sum[:])
}

// Search tries at most budget nonces. It returns ErrExhausted when none matched.
// Result.Attempts is set on every return so callers can account for the work done.
func (s *Searcher) Search(ctx context.Context, target difficulty.Target, budget int) (Result, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	start := s.now()
	for attempts := 0; attempts < budget; attempts++ {
		if attempts&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return Result{Attempts: attempts}, err
			}
		}
		if attempts%s.sampleEvery == 0 && attempts > 0 {
			s.sample(attempts, start)
		}

		n, err := s.nonces.Next()
		if err != nil {
			return Result{Attempts: attempts}, err
		}
		h := Hash(s.address, n, target.BlockHash)
		bin := difficulty.Binary(h)
		if difficulty.Meets(bin, target.Condition) {
			return Result{Nonce: n, Hash: h, Binary: bin, Attempts: attempts + 1}, nil
		}
	}
	return Result{Attempts: budget}, ErrExhausted
}

// sample skips the observation when no measurable time has passed
func (s *Searcher) sample(attempts int, start time.Time) {
	if s.onSample == nil {
		return
	}
	elapsed := s.now().Sub(start)
	if elapsed <= 0 {
		return
	}
	s.onSample(Sample{
		Attempts: attempts,
		Elapsed:  elapsed,
		Rate:     float64(attempts) / elapsed.Seconds(),
	})
}
