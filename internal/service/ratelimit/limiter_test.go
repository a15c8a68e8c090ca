package ratelimit

import (
	"testing"
	"time"
)

func TestAllowExhaustsBurst(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0) {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	if l.Allow("k", 3, 0) {
		t.Fatalf("request beyond burst should be rejected")
	}
}

func TestAllowKeysIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatalf("first request for a should pass")
	}
	if l.Allow("a", 1, 0) {
		t.Fatalf("second request for a should be rejected")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatalf("first request for b should pass")
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	l := New()
	l.maxIdle = time.Nanosecond
	l.Allow("stale", 1, 0)
	time.Sleep(time.Millisecond)
	l.Prune()

	l.mu.Lock()
	n := len(l.m)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected pruned map, have %d buckets", n)
	}
}
