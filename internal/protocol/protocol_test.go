package protocol

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

func TestWriteFrameHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, CmdBlockLast); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	want := "0000000011\"blocklast\""
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestReadFrameNested(t *testing.T) {
	var buf bytes.Buffer
	block := [][][]string{{{"1.00", "a", "b", "0.00000000", "sig", "pk", "0", "nonce"}}}
	if err := WriteFrame(&buf, block); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	v, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	outer, ok := v.([]any)
	if !ok || len(outer) != 1 {
		t.Fatalf("expected one-element outer list, got %#v", v)
	}
	inner := outer[0].([]any)
	tx := inner[0].([]any)
	if tx[7] != "nonce" {
		t.Errorf("expected nonce field, got %v", tx[7])
	}
}

func TestReadFrameErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		protocol bool
	}{
		{"bad header", "abcdefghij{}", true},
		{"oversized", "9999999999", true},
		{"bad json", "0000000003{{{", true},
		{"truncated body", "0000000010\"ab", false},
		{"truncated header", "00000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperrors.HasCode(err, apperrors.CodeProtocol); got != tt.protocol {
				t.Errorf("protocol error = %v, want %v (%v)", got, tt.protocol, err)
			}
		})
	}
}

func TestConnRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		sc := NewConn(server, time.Second)
		cmd, err := sc.Receive()
		if err != nil || cmd != CmdPoolDiff {
			return
		}
		_ = sc.Send("50")
	}()

	c := NewConn(client, time.Second)
	reply, err := c.Request(CmdPoolDiff)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	p, err := ParsePercentage(reply)
	if err != nil || p != 50 {
		t.Errorf("expected 50, got %d (%v)", p, err)
	}
}

func TestConnReceiveTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := NewConn(client, 20*time.Millisecond)
	_, err := c.Receive()
	if !apperrors.HasCode(err, apperrors.CodeTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}
