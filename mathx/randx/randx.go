// Package randx provides the random helpers shared by the solvers.
// Every function takes the *rand.Rand explicitly so that runs are reproducible from a seed.
//
// Package randx はソルバー共通の乱数ユーティリティを提供します。
// 全ての関数は *rand.Rand を明示的に受け取るため、シードから再現可能です。
package randx

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrEmptySlice     = errors.New("randx: slice must not be empty")
	ErrBadWeight      = errors.New("randx: weight must be finite and non-negative")
	ErrZeroWeights    = errors.New("randx: sum of weights must be positive")
	ErrBadProbability = errors.New("randx: probability must be in [0, 1]")
	ErrNilRand        = errors.New("randx: rng must not be nil")
)

const pcgStream = 0x9e3779b97f4a7c15

// NewPCG returns a PCG-backed generator for seed.
func NewPCG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^pcgStream))
}

// NewPCGs derives n independent generators from seed, one per worker.
func NewPCGs(seed uint64, n int) []*rand.Rand {
	rngs := make([]*rand.Rand, n)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(seed, uint64(i+1)*pcgStream))
	}
	return rngs
}

func Choice[T any](xs []T, rng *rand.Rand) (T, error) {
	if len(xs) == 0 {
		var zero T
		return zero, ErrEmptySlice
	}
	return xs[rng.IntN(len(xs))], nil
}

// IntByWeights draws an index with probability proportional to ws[i].
//
// IntByWeightsは、ws[i]に比例する確率でインデックスを返します。
func IntByWeights(ws []float64, rng *rand.Rand) (int, error) {
	if len(ws) == 0 {
		return 0, ErrEmptySlice
	}
	var sum float64
	for i, w := range ws {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, fmt.Errorf("%w: idx=%d weight=%v", ErrBadWeight, i, w)
		}
		sum += w
	}
	if sum == 0 {
		return 0, ErrZeroWeights
	}
	c := distuv.NewCategorical(ws, rng)
	return int(c.Rand()), nil
}

// Bool returns true with probability p.
func Bool(p float64, rng *rand.Rand) (bool, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return false, fmt.Errorf("%w: p=%v", ErrBadProbability, p)
	}
	b := distuv.Bernoulli{P: p, Src: rng}
	return b.Rand() == 1, nil
}
