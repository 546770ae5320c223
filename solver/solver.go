// Package solver holds what the planning and learning solvers share: the Policy they produce,
// the Agent interface they implement, and the one-step lookahead used to compare moves.
//
// Package solver は各ソルバーに共通する方策、エージェントのインターフェース、一手先読みを提供します。
package solver

import (
	"errors"
	"fmt"
	"math/rand/v2"

	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/mdp"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrNotTrained        = errors.New("agent is not trained")
	ErrNotConverged      = errors.New("solver did not converge")
	ErrContractViolation = errors.New("solver contract violation")

	// ErrInvalidConfig is the same sentinel the mdp package uses, so one errors.Is covers both.
	ErrInvalidConfig = mdp.ErrInvalidConfig
)

// Agent is implemented by every solver.
type Agent interface {
	// Train runs the solver to completion and returns the extracted policy.
	Train() (Policy, error)
	// Act returns the trained move for state.
	Act(ttt.State) (ttt.Move, error)
}

// Lookahead returns the expected one-step return Σ p·(r + gamma·value(next)).
//
// Lookaheadは一手先の期待収益を返します。
func Lookahead(transitions []mdp.Transition, gamma float64, value func(ttt.State) float64) float64 {
	probs := make([]float64, len(transitions))
	targets := make([]float64, len(transitions))
	for i, tr := range transitions {
		probs[i] = tr.Prob
		targets[i] = tr.Outcome.Reward + gamma*value(tr.Outcome.Next)
	}
	return floats.Dot(probs, targets)
}

// Argmax returns the first index holding the maximum, or -1 for an empty slice.
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}

// EpsilonGreedy explores uniformly over the legal moves with probability epsilon and otherwise
// exploits the first move with the highest Q value.
func EpsilonGreedy(q *mdp.QTable, state ttt.State, epsilon float64, rng *rand.Rand) (ttt.Move, error) {
	explore, err := randx.Bool(epsilon, rng)
	if err != nil {
		return ttt.Move{}, err
	}

	if explore {
		return randx.Choice(ttt.LegalMoves(state), rng)
	}

	move, ok := q.Argmax(state)
	if !ok {
		return ttt.Move{}, fmt.Errorf("%w: state=%v", mdp.ErrUntabulated, state)
	}
	return move, nil
}

func ValidateGamma(gamma float64) error {
	if !(gamma > 0 && gamma < 1) {
		return fmt.Errorf("%w: gamma must be in (0, 1): %v", ErrInvalidConfig, gamma)
	}
	return nil
}
