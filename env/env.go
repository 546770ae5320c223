// Package env plays tic-tac-toe episodes against a fixed opponent, one agent move at a time.
package env

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/tttmdp/game"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/mdp"
)

var ErrIllegalMove = errors.New("illegal move")

// Environment samples opponent replies from the opponent's policy with the injected rng.
// It is not safe for concurrent use.
//
// Environmentは対戦相手の応手をサンプリングしながら1エピソードを進めます。
type Environment struct {
	config mdp.Config
	rng    *rand.Rand
	state  ttt.State
	steps  int
}

// New creates an environment and resets it.
func New(config mdp.Config, rng *rand.Rand) (*Environment, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, randx.ErrNilRand
	}

	e := &Environment{config: config, rng: rng}
	if _, err := e.Reset(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset starts a new episode. When the agent plays second the opponent's opening move is
// sampled before Reset returns.
func (e *Environment) Reset() (ttt.State, error) {
	state := ttt.NewInitState()
	if state.Turn() != e.config.Agent {
		next, err := e.reply(state)
		if err != nil {
			return ttt.State{}, err
		}
		state = next
	}
	e.state = state
	e.steps = 0
	return state, nil
}

func (e *Environment) Agent() ttt.Mark {
	return e.config.Agent
}

func (e *Environment) IsTerminal() bool {
	return ttt.IsTerminal(e.state)
}

func (e *Environment) CurrentState() ttt.State {
	return e.state
}

// Steps is the number of agent moves taken in the current episode.
func (e *Environment) Steps() int {
	return e.steps
}

// Step plays move for the agent, lets the opponent reply unless the game ended, and returns
// the resulting outcome. On error the environment is left unchanged.
//
// Stepはエージェントの手を指し、対局が続く場合は対戦相手に応手させます。
func (e *Environment) Step(move ttt.Move) (mdp.Outcome, error) {
	source := e.state
	if ttt.IsTerminal(source) {
		return mdp.Outcome{}, fmt.Errorf("%w: episode is over: %w", ErrIllegalMove, ttt.ErrGameOver)
	}

	mid, err := ttt.Apply(source, move)
	if err != nil {
		return mdp.Outcome{}, fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}

	next := mid
	if !ttt.IsTerminal(mid) {
		next, err = e.reply(mid)
		if err != nil {
			return mdp.Outcome{}, err
		}
	}

	e.state = next
	e.steps++

	outcome := mdp.Outcome{
		Source: source,
		Move:   move,
		Reward: e.config.Rewards.For(ttt.OutcomeFor(next, e.config.Agent)),
		Next:   next,
	}
	return outcome, nil
}

// reply draws from the opponent's PolicyFunc, the same distribution mdp.Model uses, and
// ignores its SelectFunc.
func (e *Environment) reply(state ttt.State) (ttt.State, error) {
	opponent := e.config.Opponent
	legalMoves := ttt.LegalMoves(state)
	policy, err := opponent.PolicyFunc(state, legalMoves)
	if err != nil {
		return ttt.State{}, fmt.Errorf("opponent %s at %v: %w", opponent.Name, state, err)
	}

	move, err := game.WeightedRandomSelectFunc(policy, legalMoves, e.rng)
	if err != nil {
		return ttt.State{}, fmt.Errorf("opponent %s at %v: %w", opponent.Name, state, err)
	}

	next, err := ttt.Apply(state, move)
	if err != nil {
		return ttt.State{}, fmt.Errorf("opponent %s at %v: %w", opponent.Name, state, err)
	}
	return next, nil
}
