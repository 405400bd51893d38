package cache

import (
	"context"
	"testing"
	"time"
)

func TestSweeper_RemovesExpiredEntries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "old:1", []byte("x"), CategoryVisualization, -time.Second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "fresh:1", []byte("y"), CategoryVisualization, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	swept := make(chan int, 1)
	sweeper := NewSweeper(store, 50*time.Millisecond)
	sweeper.OnSweep = func(removed int, err error) {
		if err != nil {
			t.Errorf("sweep error: %v", err)
		}
		select {
		case swept <- removed:
		default:
		}
	}

	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sweeper.Stop()

	select {
	case removed := <-swept:
		if removed != 1 {
			t.Errorf("first sweep removed %d, want 1", removed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}

	if _, ok, _ := store.Get(ctx, "fresh:1"); !ok {
		t.Error("sweeper should not remove unexpired entries")
	}
}

func TestSweeper_StartErrors(t *testing.T) {
	sweeper := NewSweeper(nil, time.Minute)
	if err := sweeper.Start(); err != ErrNilStore {
		t.Errorf("Start with nil store: err = %v, want ErrNilStore", err)
	}

	sweeper = NewSweeper(NewMemoryStore(), time.Minute)
	if err := sweeper.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sweeper.Stop()

	if err := sweeper.Start(); err == nil {
		t.Error("second Start should error")
	}
}
