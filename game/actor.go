// Package game holds the move-selection abstractions shared by the opponents and the agents.
// A Policy here is a weight per legal move (not the solver's state-to-move artifact).
//
// Package game は対戦相手とエージェントで共有する行動選択の抽象を提供します。
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/tttmdp/blas32/vector"
	"github.com/sw965/tttmdp/mathx/randx"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrEmptyLegalMoves        = errors.New("legalMoves must not be empty")
	ErrPolicySizeMismatch     = errors.New("policy size must match the number of legal moves")
	ErrPolicyMissingLegalMove = errors.New("policy must contain every legal move")
	ErrPolicyBadValue         = errors.New("policy weight must be finite and non-negative")
	ErrPolicyZeroSum          = errors.New("policy weights sum to zero")
	ErrNilActorFunc           = errors.New("actor func must not be nil")
)

// Policy maps each legal move to a non-negative weight. Weights need not sum to one.
//
// Policyは各合法手を非負の重みに対応付けます。重みの合計が1である必要はありません。
type Policy[M comparable] map[M]float32

func (p Policy[M]) ValidateForLegalMoves(legalMoves []M) error {
	if len(legalMoves) == 0 {
		return ErrEmptyLegalMoves
	}

	if len(p) != len(legalMoves) {
		return fmt.Errorf("%w: policy=%d legalMoves=%d", ErrPolicySizeMismatch, len(p), len(legalMoves))
	}

	var sum float32
	for i, m := range legalMoves {
		v, ok := p[m]
		if !ok {
			return fmt.Errorf("%w: idx=%d move=%v", ErrPolicyMissingLegalMove, i, m)
		}

		if v < 0 || math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("%w: idx=%d move=%v value=%v", ErrPolicyBadValue, i, m, v)
		}
		sum += v
	}

	if sum == 0 {
		return ErrPolicyZeroSum
	}
	return nil
}

// Probabilities normalises the weights into probabilities aligned with legalMoves.
//
// Probabilitiesは重みを正規化し、legalMovesの順に並んだ確率を返します。
func (p Policy[M]) Probabilities(legalMoves []M) ([]float64, error) {
	if err := p.ValidateForLegalMoves(legalMoves); err != nil {
		return nil, err
	}

	ws := vector.NewZeros(len(legalMoves))
	for i, m := range legalMoves {
		ws.Data[i] = p[m]
	}
	blas32.Scal(1/vector.Mass(ws), ws)

	// float32の丸め誤差をfloat64で正規化し直す
	probs := vector.ToFloat64(ws)
	floats.Scale(1.0/floats.Sum(probs), probs)
	return probs, nil
}

type PolicyFunc[S any, M comparable] func(S, []M) (Policy[M], error)

func UniformPolicyFunc[S any, M comparable](state S, legalMoves []M) (Policy[M], error) {
	n := len(legalMoves)
	if n == 0 {
		return nil, ErrEmptyLegalMoves
	}

	p := 1.0 / float32(n)
	policy := Policy[M]{}
	for _, m := range legalMoves {
		policy[m] = p
	}
	return policy, nil
}

// SelectFunc picks one move. legalMoves fixes the iteration order so that selection is
// reproducible for a given rng.
type SelectFunc[M comparable] func(Policy[M], []M, *rand.Rand) (M, error)

// MaxSelectFunc returns the first legal move holding the maximum weight.
//
// MaxSelectFuncは、最大の重みを持つ合法手のうち最初のものを返します。
func MaxSelectFunc[M comparable](policy Policy[M], legalMoves []M, _ *rand.Rand) (M, error) {
	if len(legalMoves) == 0 {
		var zero M
		return zero, ErrEmptyLegalMoves
	}

	best := legalMoves[0]
	max := policy[best]
	for _, m := range legalMoves[1:] {
		if v := policy[m]; v > max {
			max = v
			best = m
		}
	}
	return best, nil
}

func WeightedRandomSelectFunc[M comparable](policy Policy[M], legalMoves []M, rng *rand.Rand) (M, error) {
	var zero M
	probs, err := policy.Probabilities(legalMoves)
	if err != nil {
		return zero, err
	}

	idx, err := randx.IntByWeights(probs, rng)
	if err != nil {
		return zero, err
	}
	return legalMoves[idx], nil
}

// Actor pairs a move distribution with a way of picking from it. When an Actor is the
// opponent of an MDP, PolicyFunc alone defines its behaviour: the model and the environment
// both draw replies from it, and SelectFunc applies only when the Actor plays through Select.
//
// Actorは手の分布とその選び方の組です。MDPの対戦相手としてはPolicyFuncのみが使われます。
type Actor[S any, M comparable] struct {
	Name       string
	PolicyFunc PolicyFunc[S, M]
	SelectFunc SelectFunc[M]
}

func NewRandomActor[S any, M comparable](name string) Actor[S, M] {
	return Actor[S, M]{
		Name:       name,
		PolicyFunc: UniformPolicyFunc[S, M],
		SelectFunc: WeightedRandomSelectFunc[M],
	}
}

func (a Actor[S, M]) Validate() error {
	if a.PolicyFunc == nil {
		return fmt.Errorf("%w: PolicyFunc", ErrNilActorFunc)
	}
	if a.SelectFunc == nil {
		return fmt.Errorf("%w: SelectFunc", ErrNilActorFunc)
	}
	return nil
}

// Select evaluates the policy for state and picks a move with the actor's SelectFunc.
func (a Actor[S, M]) Select(state S, legalMoves []M, rng *rand.Rand) (M, error) {
	var zero M
	policy, err := a.PolicyFunc(state, legalMoves)
	if err != nil {
		return zero, err
	}

	if err := policy.ValidateForLegalMoves(legalMoves); err != nil {
		return zero, err
	}
	return a.SelectFunc(policy, legalMoves, rng)
}
