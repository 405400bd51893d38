package health

import (
	"context"
	"testing"
	"time"

	"github.com/abzanganeh/mlsite/cache"
)

func TestStorageChecker(t *testing.T) {
	store, err := cache.OpenSQLiteStore(t.TempDir() + "/health.db")
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	checker := NewStorageChecker(store.DB())
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("status = %v (%s), want healthy", result.Status, result.Message)
	}
	if _, ok := result.Details["open_connections"]; !ok {
		t.Error("details should include connection stats")
	}
}

func TestStorageChecker_ClosedDB(t *testing.T) {
	store, err := cache.OpenSQLiteStore(t.TempDir() + "/health.db")
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	db := store.DB()
	_ = store.Close()

	checker := NewStorageChecker(db)
	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy against a closed handle", result.Status)
	}
	if result.Error == nil {
		t.Error("result should carry the ping error")
	}
}

func TestStorageChecker_NilDB(t *testing.T) {
	result := NewStorageChecker(nil).Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy with no handle", result.Status)
	}
}

func TestCacheChecker(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	if err := store.Put(ctx, "visualization:a", []byte("x"), cache.CategoryVisualization, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	checker := NewCacheChecker(CacheCheckerConfig{}, store)
	result := checker.Check(ctx)
	if result.Status != StatusHealthy {
		t.Errorf("status = %v (%s), want healthy", result.Status, result.Message)
	}
	if result.Details["active"] != 1 {
		t.Errorf("details = %v", result.Details)
	}
}

func TestCacheChecker_DegradedOnBacklog(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	for _, key := range []string{"visualization:a", "visualization:b"} {
		if err := store.Put(ctx, key, []byte("x"), cache.CategoryVisualization, -time.Minute); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	checker := NewCacheChecker(CacheCheckerConfig{DegradedBacklog: 2}, store)
	result := checker.Check(ctx)
	if result.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded with %v", result.Status, result.Details)
	}
}

func TestCacheChecker_NilStore(t *testing.T) {
	result := NewCacheChecker(CacheCheckerConfig{}, nil).Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy with no store", result.Status)
	}
}
