package pow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carlosrabelo/powminer/internal/difficulty"
	"github.com/carlosrabelo/powminer/internal/nonce"
	apperrors "github.com/carlosrabelo/powminer/pkg/errors"
)

const testAddress = "0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5"

// fixedNonces replays a fixed list, cycling when exhausted
type fixedNonces struct {
	list []string
	i    int
}

func (f *fixedNonces) Next() (string, error) {
	n := f.list[f.i%len(f.list)]
	f.i++
	return n, nil
}

type failingNonces struct{}

func (failingNonces) Next() (string, error) { return "", errors.New("entropy unavailable") }

// stepClock advances by step on every call
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

// impossible never occurs in a 448-bit expansion
var impossible = difficulty.Target{BlockHash: "ab", Condition: strings.Repeat("1", 500)}

func TestSearchNonceShape(t *testing.T) {
	s := NewSearcher(nonce.NewGenerator(), testAddress)
	for i := 0; i < 20; i++ {
		res, err := s.Search(context.Background(), difficulty.Target{BlockHash: "ab"}, 1)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if !nonce.Valid(res.Nonce) {
			t.Fatalf("invalid nonce %q", res.Nonce)
		}
		if res.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", res.Attempts)
		}
	}
}

func TestSearchMatchesConditionAtOffset(t *testing.T) {
	const n = "00112233445566778899aabbccddeeff"
	const blockHash = "c0ffee"
	bin := difficulty.Binary(Hash(testAddress, n, blockHash))

	var condition string
	for off := 1; off < len(bin)-16; off++ {
		c := bin[off : off+16]
		if !strings.HasPrefix(bin, c) {
			condition = c
			break
		}
	}
	if condition == "" {
		t.Fatal("test setup: no non-prefix window found")
	}

	target := difficulty.Target{BlockHash: blockHash, Condition: condition}
	s := NewSearcher(&fixedNonces{list: []string{n}}, testAddress)
	res, err := s.Search(context.Background(), target, 1)
	if err != nil {
		t.Fatalf("expected match anywhere in the expansion, got %v", err)
	}
	if res.Nonce != n || res.Binary != bin {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSearchExhausted(t *testing.T) {
	s := NewSearcher(nonce.NewGenerator(), testAddress)
	res, err := s.Search(context.Background(), impossible, 25)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if !apperrors.HasCode(err, apperrors.CodeStaleTarget) {
		t.Error("exhaustion should carry the stale target code")
	}
	if res.Attempts != 25 {
		t.Errorf("expected 25 attempts, got %d", res.Attempts)
	}
}

func TestSearchSamplesRate(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	s := NewSearcher(nonce.NewGenerator(), testAddress)
	s.now = clock.now

	var samples []Sample
	s.OnSample(10, func(sm Sample) { samples = append(samples, sm) })

	_, _ = s.Search(context.Background(), impossible, 35)
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0].Attempts != 10 || samples[0].Rate <= 0 {
		t.Errorf("unexpected first sample %+v", samples[0])
	}
}

func TestSearchZeroElapsedDoesNotAbort(t *testing.T) {
	frozen := time.Unix(100, 0)
	s := NewSearcher(nonce.NewGenerator(), testAddress)
	s.now = func() time.Time { return frozen }

	called := false
	s.OnSample(5, func(Sample) { called = true })

	res, err := s.Search(context.Background(), impossible, 20)
	if !errors.Is(err, ErrExhausted) || res.Attempts != 20 {
		t.Fatalf("search should run to budget, got %v after %d", err, res.Attempts)
	}
	if called {
		t.Error("zero elapsed time should skip the sample")
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSearcher(nonce.NewGenerator(), testAddress)
	if _, err := s.Search(ctx, impossible, 100); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSearchNonceFailure(t *testing.T) {
	s := NewSearcher(failingNonces{}, testAddress)
	if _, err := s.Search(context.Background(), impossible, 10); err == nil {
		t.Error("expected nonce source error")
	}
}

func TestMeetsRealPoolShareOnly(t *testing.T) {
	// raw difficulty 10, pool percentage 50
	target := difficulty.Target{
		BlockHash:      "ab",
		Difficulty:     difficulty.Effective(50, 10),
		RealDifficulty: 10,
	}
	target.Condition = difficulty.Condition(target.BlockHash, target.Difficulty)
	if target.Difficulty != 5 {
		t.Fatalf("expected effective difficulty 5, got %d", target.Difficulty)
	}

	res := Result{Binary: target.Condition + strings.Repeat("1", 60)}
	if !difficulty.Meets(res.Binary, target.Condition) {
		t.Error("share should satisfy the pool condition")
	}
	if res.MeetsReal(target) {
		t.Error("share must not satisfy the real 10-bit condition")
	}

	full := Result{Binary: target.RealCondition() + "1111"}
	if !full.MeetsReal(target) {
		t.Error("hash containing the real condition should meet real difficulty")
	}
}

func TestHashIsSHA224Hex(t *testing.T) {
	h := Hash("a", "b", "c")
	// sha224("abc")
	if h != "23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7" {
		t.Errorf("unexpected hash %s", h)
	}
}
