package politeness

import (
	"context"
	"testing"
	"time"
)

func TestDelayer_ZeroNeverBlocks(t *testing.T) {
	d := NewDelayer(0, 0)
	start := time.Now()
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Error("zero delayer should return immediately")
	}
}

func TestDelayer_WaitsAtLeastMin(t *testing.T) {
	d := NewDelayer(20*time.Millisecond, 40*time.Millisecond)
	start := time.Now()
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("waited %v, expected at least 20ms", elapsed)
	}
}

func TestDelayer_ContextCancel(t *testing.T) {
	d := NewDelayer(5*time.Second, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancel did not interrupt the wait")
	}
}

func TestDelayer_NegativeMinClamped(t *testing.T) {
	d := NewDelayer(-time.Second, -time.Second)
	if err := d.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
