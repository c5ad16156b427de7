// Package connection manages the short-lived request/response exchanges with the ledger node,
// the mining pool and peer nodes
package connection

import (
	"context"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/carlosrabelo/powminer/internal/protocol"
	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

// Dialer opens outbound TCP connections, directly or through a SOCKS proxy
type Dialer interface {
	DialTimeout(ctx context.Context, address string, timeout time.Duration) (net.Conn, error)
}

// Endpoint is a remote host with its connect timeout
type Endpoint struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Address returns host:port
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// open dials e and wraps the socket in a framed protocol connection
func open(ctx context.Context, d Dialer, e Endpoint) (*protocol.Conn, error) {
	c, err := d.DialTimeout(ctx, e.Address(), e.Timeout)
	if err != nil {
		return nil, apperrors.Transport("dial "+e.Address(), err)
	}
	return protocol.NewConn(c, protocol.DefaultIOTimeout), nil
}

// SubmitBlock delivers a block to a node or peer: "block" then the payload
func SubmitBlock(ctx context.Context, d Dialer, e Endpoint, block any) error {
	conn, err := open(ctx, d, e)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(protocol.CmdBlock); err != nil {
		return err
	}
	return conn.Send(block)
}

// Backoff calculates backoff delay with jitter
func Backoff(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	mul := 1 << (rand.Intn(4)) // 1,2,4,8
	d := time.Duration(int(min) * mul)
	if d > max {
		d = max
	}
	return d + time.Duration(rand.Intn(250))*time.Millisecond
}
