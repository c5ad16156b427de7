package block

import (
	"context"
	"time"

	"github.com/carlosrabelo/powminer/internal/protocol"
)

// MempoolSource snapshots pending transactions
type MempoolSource interface {
	Mempool(ctx context.Context) ([]protocol.MempoolEntry, error)
}

// Assembly is a signed, verified candidate block
type Assembly struct {
	Block  Block
	Reward Transaction
	// RemovalSignatures lists the included mempool signatures for later pruning
	RemovalSignatures []string
}

// Assembler builds candidate blocks for solved nonces
type Assembler struct {
	mempool MempoolSource
	signer  *Signer
	now     func() time.Time
}

// NewAssembler creates an assembler
func NewAssembler(mempool MempoolSource, signer *Signer) *Assembler {
	return &Assembler{mempool: mempool, signer: signer, now: time.Now}
}

// Assemble snapshots the mempool, appends a reward for address carrying nonce, signs it
// and verifies the signature. A failed verification discards the block with ErrInvalidSignature.
func (a *Assembler) Assemble(ctx context.Context, nonce, address string) (Assembly, error) {
	entries, err := a.mempool.Mempool(ctx)
	if err != nil {
		return Assembly{}, err
	}

	txs := make([]Transaction, 0, len(entries)+1)
	removal := make([]string, 0, len(entries))
	for _, e := range entries {
		txs = append(txs, FromMempool(e))
		removal = append(removal, e.Signature)
	}

	reward := NewReward(a.now(), address, nonce)
	if err := a.signer.Sign(&reward); err != nil {
		return Assembly{}, err
	}
	if err := a.signer.Verify(reward); err != nil {
		return Assembly{}, err
	}
	txs = append(txs, reward)

	return Assembly{
		Block:             NewBlock(txs),
		Reward:            reward,
		RemovalSignatures: removal,
	}, nil
}
