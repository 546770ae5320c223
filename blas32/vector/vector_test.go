package vector_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw965/tttmdp/blas32/vector"
	"gonum.org/v1/gonum/blas/blas32"
)

func TestNewZeros(t *testing.T) {
	got := vector.NewZeros(4)
	require.Equal(t, 4, got.N)
	require.Equal(t, 1, got.Inc)
	require.Equal(t, []float32{0, 0, 0, 0}, got.Data)
}

func TestMass(t *testing.T) {
	tests := []struct {
		name string
		xs   []float32
		want float32
	}{
		{name: "正常_一様", xs: []float32{0.25, 0.25, 0.25, 0.25}, want: 1},
		{name: "正常_ゼロを含む", xs: []float32{0, 2, 0}, want: 2},
		{name: "準正常_空", xs: nil, want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vec := blas32.Vector{N: len(tc.xs), Inc: 1, Data: tc.xs}
			require.InDelta(t, tc.want, vector.Mass(vec), 1e-6)
		})
	}
}

func TestToFloat64(t *testing.T) {
	vec := blas32.Vector{N: 2, Inc: 2, Data: []float32{1, -1, 0.5, -1}}
	require.Equal(t, []float64{1, 0.5}, vector.ToFloat64(vec))
}
