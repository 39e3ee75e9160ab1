package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{1, 2}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %f, want %f", got, tt.want)
			}
			if math.IsNaN(got) {
				t.Error("similarity must never be NaN")
			}
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{0.3, -0.2, 0.9}, {0.1, 0.4, -0.5}},
		{{1, 2, 3, 4}, {4, 3, 2, 1}},
		{{-7, 0.5}, {0.25, 8}},
	}
	for _, p := range pairs {
		if ab, ba := CosineSimilarity(p[0], p[1]), CosineSimilarity(p[1], p[0]); ab != ba {
			t.Errorf("not symmetric: %f vs %f", ab, ba)
		}
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %f, want 5", got)
	}
}
