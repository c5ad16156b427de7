package connection

import (
	"context"

	"github.com/carlosrabelo/powminer/internal/protocol"
)

// NodeClient queries the configured ledger node
type NodeClient struct {
	dialer   Dialer
	endpoint Endpoint
}

// NewNodeClient creates a node client
func NewNodeClient(d Dialer, e Endpoint) *NodeClient {
	return &NodeClient{dialer: d, endpoint: e}
}

// Endpoint returns the node address
func (n *NodeClient) Endpoint() Endpoint {
	return n.endpoint
}

// Ping checks that the node accepts connections
func (n *NodeClient) Ping(ctx context.Context) error {
	conn, err := open(ctx, n.dialer, n.endpoint)
	if err != nil {
		return err
	}
	return conn.Close()
}

// MiningState fetches the latest block hash and raw network difficulty over one connection
func (n *NodeClient) MiningState(ctx context.Context) (string, int, error) {
	conn, err := open(ctx, n.dialer, n.endpoint)
	if err != nil {
		return "", 0, err
	}
	defer conn.Close()

	reply, err := conn.Request(protocol.CmdBlockLast)
	if err != nil {
		return "", 0, err
	}
	hash, err := protocol.ParseBlockLast(reply)
	if err != nil {
		return "", 0, err
	}

	reply, err = conn.Request(protocol.CmdDiffGet)
	if err != nil {
		return "", 0, err
	}
	diff, err := protocol.ParseDiffGet(reply)
	if err != nil {
		return "", 0, err
	}
	return hash, diff, nil
}

// Mempool snapshots the node's pending transactions
func (n *NodeClient) Mempool(ctx context.Context) ([]protocol.MempoolEntry, error) {
	conn, err := open(ctx, n.dialer, n.endpoint)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	reply, err := conn.Request(protocol.CmdMempool)
	if err != nil {
		return nil, err
	}
	return protocol.ParseMempool(reply)
}

// SubmitBlock sends a solved block to this node
func (n *NodeClient) SubmitBlock(ctx context.Context, block any) error {
	return SubmitBlock(ctx, n.dialer, n.endpoint, block)
}
