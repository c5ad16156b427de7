package connection

import (
	"context"

	"github.com/carlosrabelo/powminer/internal/protocol"
)

// DefaultPoolPort is the pool's listening port
const DefaultPoolPort = 8525

// PoolClient talks to a mining pool
type PoolClient struct {
	dialer   Dialer
	endpoint Endpoint
}

// NewPoolClient creates a pool client
func NewPoolClient(d Dialer, e Endpoint) *PoolClient {
	return &PoolClient{dialer: d, endpoint: e}
}

// Endpoint returns the pool address
func (p *PoolClient) Endpoint() Endpoint {
	return p.endpoint
}

// Negotiate asks the pool for its share qualification percentage
func (p *PoolClient) Negotiate(ctx context.Context) (int, error) {
	conn, err := open(ctx, p.dialer, p.endpoint)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	reply, err := conn.Request(protocol.CmdPoolDiff)
	if err != nil {
		return 0, err
	}
	return protocol.ParsePercentage(reply)
}

// SubmitShare sends a share tagged with the miner's own address for crediting
func (p *PoolClient) SubmitShare(ctx context.Context, minerAddress string, block any) error {
	conn, err := open(ctx, p.dialer, p.endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(protocol.CmdBlock); err != nil {
		return err
	}
	if err := conn.Send(minerAddress); err != nil {
		return err
	}
	return conn.Send(block)
}
