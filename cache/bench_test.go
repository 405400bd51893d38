package cache

import (
	"context"
	"testing"
	"time"
)

func BenchmarkKeyer_FlatMap(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"k": 3, "method": "kmeans", "max_iter": 300}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := keyer.Key("visualization:clustering", input); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkKeyer_Nested(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{
		"options": map[string]any{"linkage": "ward", "k": 4, "metric": "euclidean"},
		"points":  []any{[]any{1.0, 2.0}, []any{3.0, 4.0}, []any{5.0, 6.0}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := keyer.Key("visualization:dendrogram", input); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMemoryStore_Get(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Put(ctx, "bench-key", []byte("payload"), CategoryVisualization, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = store.Get(ctx, "bench-key")
	}
}

func BenchmarkMemoryStore_Put(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()
	payload := []byte("payload")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Put(ctx, "bench-key", payload, CategoryVisualization, time.Hour)
	}
}
