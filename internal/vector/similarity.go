package vector

import (
	"fmt"
	"math"

	"github.com/hyperjump/kioku/internal/models"
)

// CosineSimilarity returns dot(a,b) / (|a|*|b|) in [-1, 1]. Vectors of different length, empty
// vectors and zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, msg)
}
