package faultinject

import (
	"testing"
	"time"
)

func TestInjector_NilMatchesNothing(t *testing.T) {
	inj, err := New("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if inj != nil {
		t.Fatal("empty expression must yield a nil injector")
	}
	if inj.Match("any", 1) {
		t.Error("nil injector must never match")
	}
}

func TestInjector_MatchesExpression(t *testing.T) {
	inj, err := New(`sku == "sku-faulty-123" && quantity > 10`, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !inj.Match("sku-faulty-123", 100) {
		t.Error("expected match")
	}
	if inj.Match("sku-faulty-123", 5) {
		t.Error("quantity below threshold must not match")
	}
	if inj.Match("sku-healthy", 100) {
		t.Error("other skus must not match")
	}
}

func TestInjector_RejectsNonBooleanExpression(t *testing.T) {
	if _, err := New(`sku`, 0); err == nil {
		t.Error("non-boolean expression must be rejected")
	}
}

func TestInjector_AppliesDelayOnMatch(t *testing.T) {
	inj, err := New(`sku == "slow"`, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if !inj.Match("slow", 0) {
		t.Fatal("expected match")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected injected delay, elapsed %v", elapsed)
	}
}
