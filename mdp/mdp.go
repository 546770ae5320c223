// Package mdp models tic-tac-toe as a Markov decision process seen from one player. The other
// player is folded into the dynamics as a fixed stochastic opponent.
//
// Package mdp は三目並べを一方のプレイヤーから見たマルコフ決定過程として表現します。
package mdp

import (
	"errors"
	"fmt"
	"math"
	"slices"

	ttt "github.com/sw965/tttmdp/game/tictactoe"
)

var (
	ErrInvalidTransitionRequest = errors.New("invalid transition request")
	ErrInvalidConfig            = errors.New("invalid mdp config")
)

// Rewards are paid on the transition that reaches a terminal state (Win, Loss, Draw) or on
// every other transition (Living).
type Rewards struct {
	Win    float64
	Loss   float64
	Living float64
	Draw   float64
}

func DefaultRewards() Rewards {
	return Rewards{Win: 10, Loss: -10, Living: 0, Draw: 0}
}

func (r Rewards) Validate() error {
	for _, v := range []float64{r.Win, r.Loss, r.Living, r.Draw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: rewards must be finite: %+v", ErrInvalidConfig, r)
		}
	}
	return nil
}

// For returns the reward paid on entering a state with the given result.
func (r Rewards) For(result ttt.Result) float64 {
	switch result {
	case ttt.Win:
		return r.Win
	case ttt.Loss:
		return r.Loss
	case ttt.Draw:
		return r.Draw
	default:
		return r.Living
	}
}

// Outcome is one sampled or enumerated step: the agent played Move in Source, received Reward
// and the opponent (if the game went on) replied, leaving Next.
type Outcome struct {
	Source ttt.State
	Move   ttt.Move
	Reward float64
	Next   ttt.State
}

type Transition struct {
	Prob    float64
	Outcome Outcome
}

type Config struct {
	Agent    ttt.Mark
	Rewards  Rewards
	Opponent ttt.Actor
}

func DefaultConfig() Config {
	return Config{
		Agent:    ttt.Cross,
		Rewards:  DefaultRewards(),
		Opponent: ttt.NewRandomOpponent(),
	}
}

func (c Config) Validate() error {
	if !c.Agent.IsPlayer() {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ttt.ErrNotPlayerMark)
	}
	if err := c.Rewards.Validate(); err != nil {
		return err
	}
	if err := c.Opponent.Validate(); err != nil {
		return fmt.Errorf("%w: opponent: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Model holds the enumerated state space and generates transitions from it.
// It is never mutated after NewModel returns.
type Model struct {
	config      Config
	states      []ttt.State
	nonTerminal []ttt.State
}

func NewModel(config Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	states, err := ttt.EnumerateStates(config.Agent)
	if err != nil {
		return nil, err
	}

	nonTerminal := make([]ttt.State, 0, len(states))
	for _, s := range states {
		if !ttt.IsTerminal(s) {
			nonTerminal = append(nonTerminal, s)
		}
	}

	return &Model{
		config:      config,
		states:      states,
		nonTerminal: nonTerminal,
	}, nil
}

func (m *Model) Config() Config {
	return m.config
}

func (m *Model) Agent() ttt.Mark {
	return m.config.Agent
}

// States returns every enumerated state, successors before predecessors.
func (m *Model) States() []ttt.State {
	return slices.Clone(m.states)
}

// NonTerminalStates returns the states in which the agent has a decision to make, in the same
// order as States.
func (m *Model) NonTerminalStates() []ttt.State {
	return slices.Clone(m.nonTerminal)
}

// Reward maps the state reached by a transition to its immediate reward.
func (m *Model) Reward(next ttt.State) float64 {
	return m.config.Rewards.For(ttt.OutcomeFor(next, m.config.Agent))
}

// GenerateTransitions returns the distribution over next decision points (or terminal states)
// when the agent plays move in state. Opponent replies with zero probability are omitted and
// the remaining probabilities sum to one.
//
// GenerateTransitionsは、stateでmoveを指した時の遷移先の確率分布を返します。
func (m *Model) GenerateTransitions(state ttt.State, move ttt.Move) ([]Transition, error) {
	if ttt.IsTerminal(state) {
		return nil, fmt.Errorf("%w: %w: state=%v", ErrInvalidTransitionRequest, ttt.ErrGameOver, state)
	}

	if turn := state.Turn(); turn != m.config.Agent {
		return nil, fmt.Errorf("%w: state=%v is %v's turn, agent is %v", ErrInvalidTransitionRequest, state, turn, m.config.Agent)
	}

	mid, err := ttt.Apply(state, move)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransitionRequest, err)
	}

	if ttt.IsTerminal(mid) {
		return []Transition{{
			Prob:    1.0,
			Outcome: Outcome{Source: state, Move: move, Reward: m.Reward(mid), Next: mid},
		}}, nil
	}

	replies := ttt.LegalMoves(mid)
	policy, err := m.config.Opponent.PolicyFunc(mid, replies)
	if err != nil {
		return nil, fmt.Errorf("opponent %s at %v: %w", m.config.Opponent.Name, mid, err)
	}

	probs, err := policy.Probabilities(replies)
	if err != nil {
		return nil, fmt.Errorf("opponent %s at %v: %w", m.config.Opponent.Name, mid, err)
	}

	transitions := make([]Transition, 0, len(replies))
	for i, reply := range replies {
		if probs[i] == 0 {
			continue
		}
		next, err := ttt.Apply(mid, reply)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, Transition{
			Prob:    probs[i],
			Outcome: Outcome{Source: state, Move: move, Reward: m.Reward(next), Next: next},
		})
	}
	return transitions, nil
}
