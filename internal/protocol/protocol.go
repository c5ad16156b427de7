// Package protocol implements the node and pool wire format: length-prefixed JSON frames
// and typed decoding of every reply the miner consumes
package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

// Commands understood by nodes and pools
const (
	CmdBlockLast = "blocklast"
	CmdDiffGet   = "diffget"
	CmdMempool   = "mpget"
	CmdBlock     = "block"
	CmdPoolDiff  = "diffp"
)

const (
	// HeaderLen is the width of the zero-padded decimal length prefix
	HeaderLen = 10
	// DefaultIOTimeout bounds every frame read or write
	DefaultIOTimeout = 10 * time.Second
	// MaxFrameSize rejects absurd length prefixes before allocating
	MaxFrameSize = 64 << 20
)

// Conn frames JSON values over a net.Conn
type Conn struct {
	c       net.Conn
	timeout time.Duration
}

// NewConn wraps c; a non-positive timeout selects DefaultIOTimeout
func NewConn(c net.Conn, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = DefaultIOTimeout
	}
	return &Conn{c: c, timeout: timeout}
}

// Close closes the underlying connection
func (c *Conn) Close() error {
	return c.c.Close()
}

// Send writes v as one frame
func (c *Conn) Send(v any) error {
	if err := c.c.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return apperrors.Transport("set write deadline", err)
	}
	if err := WriteFrame(c.c, v); err != nil {
		if apperrors.HasCode(err, apperrors.CodeProtocol) {
			return err
		}
		return apperrors.Transport("send frame", err)
	}
	return nil
}

// Receive reads one frame and returns its decoded JSON value
func (c *Conn) Receive() (any, error) {
	if err := c.c.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, apperrors.Transport("set read deadline", err)
	}
	v, err := ReadFrame(c.c)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeProtocol) {
			return nil, err
		}
		return nil, apperrors.Transport("receive frame", err)
	}
	return v, nil
}

// Request sends cmd and returns the reply
func (c *Conn) Request(cmd string) (any, error) {
	if err := c.Send(cmd); err != nil {
		return nil, err
	}
	return c.Receive()
}

// WriteFrame encodes v as JSON behind a 10-digit length header
func WriteFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeProtocol, "encode frame", err)
	}
	frame := make([]byte, 0, HeaderLen+len(body))
	frame = fmt.Appendf(frame, "%0*d", HeaderLen, len(body))
	frame = append(frame, body...)
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed JSON frame
func ReadFrame(r io.Reader) (any, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size, err := strconv.Atoi(string(header[:]))
	if err != nil || size < 0 {
		return nil, apperrors.Protocol("invalid frame header %q", string(header[:]))
	}
	if size > MaxFrameSize {
		return nil, apperrors.Protocol("frame of %d bytes exceeds limit", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeProtocol, "decode frame", err)
	}
	return v, nil
}
