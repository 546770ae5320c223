package vector

import (
	"gonum.org/v1/gonum/blas/blas32"
)

func NewZeros(n int) blas32.Vector {
	return blas32.Vector{
		N:    n,
		Inc:  1,
		Data: make([]float32, n),
	}
}

// Mass returns the sum of absolute values. For a weight vector this is its total mass.
//
// Massは絶対値の総和を返します。重みベクトルであれば、その総質量です。
func Mass(vec blas32.Vector) float32 {
	if vec.N == 0 {
		return 0
	}
	return blas32.Asum(vec)
}

// ToFloat64 widens the vector. Normalisation is done in float64 afterwards so that the
// resulting probabilities sum to one within float64 precision.
func ToFloat64(vec blas32.Vector) []float64 {
	ys := make([]float64, vec.N)
	for i := 0; i < vec.N; i++ {
		ys[i] = float64(vec.Data[i*vec.Inc])
	}
	return ys
}
