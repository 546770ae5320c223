package randx_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw965/tttmdp/mathx/randx"
)

func TestNewPCGReproducible(t *testing.T) {
	r1 := randx.NewPCG(42)
	r2 := randx.NewPCG(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, r1.Uint64(), r2.Uint64())
	}
}

func TestNewPCGsIndependent(t *testing.T) {
	rngs := randx.NewPCGs(7, 3)
	require.Len(t, rngs, 3)
	require.NotEqual(t, rngs[0].Uint64(), rngs[1].Uint64())
}

func TestIntByWeights(t *testing.T) {
	tests := []struct {
		name    string
		ws      []float64
		want    int
		wantErr error
	}{
		{
			name: "正常_一点集中",
			ws:   []float64{0, 0, 3, 0},
			want: 2,
		},
		{
			name:    "異常_空",
			ws:      nil,
			wantErr: randx.ErrEmptySlice,
		},
		{
			name:    "異常_負の重み",
			ws:      []float64{1, -1},
			wantErr: randx.ErrBadWeight,
		},
		{
			name:    "異常_合計0",
			ws:      []float64{0, 0},
			wantErr: randx.ErrZeroWeights,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := randx.IntByWeights(tc.ws, randx.NewPCG(1))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIntByWeightsFrequency(t *testing.T) {
	rng := randx.NewPCG(3)
	counts := make([]int, 2)
	n := 20000
	for i := 0; i < n; i++ {
		idx, err := randx.IntByWeights([]float64{1, 3}, rng)
		require.NoError(t, err)
		counts[idx]++
	}
	require.InDelta(t, 0.75, float64(counts[1])/float64(n), 0.02)
}

func TestBool(t *testing.T) {
	rng := randx.NewPCG(5)
	for i := 0; i < 100; i++ {
		b, err := randx.Bool(0, rng)
		require.NoError(t, err)
		require.False(t, b)

		b, err = randx.Bool(1, rng)
		require.NoError(t, err)
		require.True(t, b)
	}

	_, err := randx.Bool(1.5, rng)
	require.ErrorIs(t, err, randx.ErrBadProbability)
}

func TestChoice(t *testing.T) {
	_, err := randx.Choice([]int{}, randx.NewPCG(1))
	require.ErrorIs(t, err, randx.ErrEmptySlice)

	got, err := randx.Choice([]string{"only"}, randx.NewPCG(1))
	require.NoError(t, err)
	require.Equal(t, "only", got)
}
