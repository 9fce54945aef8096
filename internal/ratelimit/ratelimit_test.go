package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := New(10) // burst of 1

	if !l.Allow() {
		t.Fatal("first event should be allowed")
	}
	if l.Allow() {
		t.Fatal("second immediate event should be limited")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait should fail before the next token is due")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("event %d limited on unlimited limiter", i)
		}
	}
}
