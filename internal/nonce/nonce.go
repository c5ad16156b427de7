// Package nonce produces single-use mining nonces from secure randomness
package nonce

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
)

const (
	// Len is the nonce length in hex characters
	Len = 32
	// seedBytes is the amount of randomness hashed into each nonce
	seedBytes = 16
)

// Generator owns one random stream; it is not shared between workers
type Generator struct {
	src  io.Reader
	seed [seedBytes]byte
}

// NewGenerator reads from crypto/rand
func NewGenerator() *Generator {
	return &Generator{src: rand.Reader}
}

// NewGeneratorFrom reads from src
func NewGeneratorFrom(src io.Reader) *Generator {
	return &Generator{src: src}
}

// Next hashes 16 fresh random bytes and keeps the first 32 hex characters
func (g *Generator) Next() (string, error) {
	if _, err := io.ReadFull(g.src, g.seed[:]); err != nil {
		return "", fmt.Errorf("reading randomness: %w", err)
	}
	sum := sha256.Sum256(g.seed[:])
	return hex.EncodeToString(sum[:])[:Len], nil
}

// Valid reports whether s has the shape of a nonce
func Valid(s string) bool {
	if len(s) != Len {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
