package vector

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkSearch(b *testing.B, idx Index) {
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		vec := make([]float32, 384)
		vec[0] = float32(i) / 1000
		vec[i%384] += 1
		_ = idx.Insert(ctx, emb(fmt.Sprintf("e%d", i), fmt.Sprintf("d%d", i%20), vec...))
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10, 0.1)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	benchmarkSearch(b, NewMemoryIndex(nil))
}

func BenchmarkChromemIndexSearch(b *testing.B) {
	benchmarkSearch(b, NewChromemIndex(nil))
}
