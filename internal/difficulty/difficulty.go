// Package difficulty derives the mining target from the node's view of the chain
package difficulty

import (
	"context"
	"strings"
)

// Target is the immutable input of one search burst
type Target struct {
	BlockHash      string
	Difficulty     int // effective, possibly pool-scaled
	RealDifficulty int
	Condition      string
}

// RealCondition is the condition built from the full network difficulty
func (t Target) RealCondition() string {
	return Condition(t.BlockHash, t.RealDifficulty)
}

// Pooled reports whether the effective difficulty was scaled below the network's
func (t Target) Pooled() bool {
	return t.Difficulty < t.RealDifficulty
}

// StateSource returns the latest block hash and raw network difficulty
type StateSource interface {
	MiningState(ctx context.Context) (string, int, error)
}

// Oracle derives targets. PoolPercentage < 0 means solo mining.
type Oracle struct {
	src            StateSource
	poolPercentage int
}

// NewSoloOracle mines at the raw network difficulty
func NewSoloOracle(src StateSource) *Oracle {
	return &Oracle{src: src, poolPercentage: -1}
}

// NewPoolOracle scales difficulty by the pool's share percentage
func NewPoolOracle(src StateSource, percentage int) *Oracle {
	if percentage < 0 {
		percentage = 0
	}
	return &Oracle{src: src, poolPercentage: percentage}
}

// Derive queries the node once. Errors are returned as-is for the caller to retry.
func (o *Oracle) Derive(ctx context.Context) (Target, error) {
	hash, real, err := o.src.MiningState(ctx)
	if err != nil {
		return Target{}, err
	}
	diff := real
	if o.poolPercentage >= 0 {
		diff = Effective(o.poolPercentage, real)
	}
	return Target{
		BlockHash:      hash,
		Difficulty:     diff,
		RealDifficulty: real,
		Condition:      Condition(hash, diff),
	}, nil
}

// Effective returns floor(percentage*real/100), never above real
func Effective(percentage, real int) int {
	d := percentage * real / 100
	if d > real {
		d = real
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Binary expands every character of s into its 8-bit binary code
func Binary(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		for bit := 7; bit >= 0; bit-- {
			if c&(1<<uint(bit)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Condition is the leading diff bits of the block hash's binary expansion
func Condition(blockHash string, diff int) string {
	bin := Binary(blockHash)
	if diff < 0 {
		diff = 0
	}
	if diff > len(bin) {
		diff = len(bin)
	}
	return bin[:diff]
}

// Meets reports whether condition occurs anywhere in the binary candidate
func Meets(binaryCandidate, condition string) bool {
	return strings.Contains(binaryCandidate, condition)
}
