package difficulty

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeState struct {
	hash string
	diff int
	err  error
}

func (f fakeState) MiningState(ctx context.Context) (string, int, error) {
	return f.hash, f.diff, f.err
}

func TestEffectiveNeverExceedsReal(t *testing.T) {
	for d := 0; d <= 200; d += 7 {
		for p := 0; p <= 100; p++ {
			got := Effective(p, d)
			if got > d {
				t.Fatalf("Effective(%d, %d) = %d exceeds real", p, d, got)
			}
			if want := p * d / 100; got != want {
				t.Fatalf("Effective(%d, %d) = %d, want %d", p, d, got, want)
			}
		}
	}
	if Effective(150, 10) != 10 {
		t.Error("percentage above 100 must be capped at real difficulty")
	}
	if Effective(50, 10) != 5 {
		t.Error("50% of 10 should be 5")
	}
}

func TestBinary(t *testing.T) {
	if got := Binary("a0"); got != "0110000100110000" {
		t.Errorf("unexpected expansion %s", got)
	}
	if len(Binary(strings.Repeat("f", 56))) != 448 {
		t.Error("each character should expand to 8 bits")
	}
}

func TestConditionIsPrefixOfHash(t *testing.T) {
	hash := "9f2c"
	bin := Binary(hash)
	for d := 0; d <= 40; d++ {
		c := Condition(hash, d)
		if !strings.HasPrefix(bin, c) {
			t.Fatalf("condition %q is not a prefix of %q", c, bin)
		}
		want := d
		if want > len(bin) {
			want = len(bin)
		}
		if len(c) != want {
			t.Fatalf("len(Condition(%d)) = %d, want %d", d, len(c), want)
		}
	}
}

func TestMeetsMatchesAtOffset(t *testing.T) {
	condition := "10110"
	candidate := "0000000" + condition + "000"
	if strings.HasPrefix(candidate, condition) {
		t.Fatal("test setup: condition must not be a prefix")
	}
	if !Meets(candidate, condition) {
		t.Error("condition at a non-zero offset must match")
	}
	if Meets("0000000000", condition) {
		t.Error("absent condition must not match")
	}
}

func TestDeriveSolo(t *testing.T) {
	o := NewSoloOracle(fakeState{hash: "ab", diff: 10})
	tgt, err := o.Derive(context.Background())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if tgt.Difficulty != 10 || tgt.RealDifficulty != 10 || tgt.Pooled() {
		t.Errorf("unexpected solo target %+v", tgt)
	}
	if tgt.Condition != Binary("ab")[:10] {
		t.Errorf("unexpected condition %s", tgt.Condition)
	}
}

func TestDerivePooled(t *testing.T) {
	o := NewPoolOracle(fakeState{hash: "ab", diff: 10}, 50)
	tgt, err := o.Derive(context.Background())
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if tgt.Difficulty != 5 || tgt.RealDifficulty != 10 {
		t.Errorf("unexpected pooled target %+v", tgt)
	}
	if len(tgt.Condition) != 5 || len(tgt.RealCondition()) != 10 {
		t.Errorf("unexpected condition lengths %d/%d", len(tgt.Condition), len(tgt.RealCondition()))
	}
}

func TestDerivePropagatesError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewSoloOracle(fakeState{err: boom}).Derive(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}
