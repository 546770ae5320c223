// Package vi solves the tic-tac-toe MDP by value iteration.
package vi

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mdp"
	"github.com/sw965/tttmdp/solver"
	"gonum.org/v1/gonum/floats"
)

type Config struct {
	Gamma    float64
	Rewards  mdp.Rewards
	Agent    ttt.Mark
	Opponent ttt.Actor

	// Sweeps is the number of Bellman optimality sweeps Iterate performs.
	Sweeps int
}

func DefaultConfig() Config {
	return Config{
		Gamma:    0.9,
		Rewards:  mdp.DefaultRewards(),
		Agent:    ttt.Cross,
		Opponent: ttt.NewRandomOpponent(),
		Sweeps:   10,
	}
}

func (c Config) model() mdp.Config {
	return mdp.Config{Agent: c.Agent, Rewards: c.Rewards, Opponent: c.Opponent}
}

func (c Config) Validate() error {
	if err := solver.ValidateGamma(c.Gamma); err != nil {
		return err
	}
	if c.Sweeps <= 0 {
		return fmt.Errorf("%w: sweeps must be positive: %d", solver.ErrInvalidConfig, c.Sweeps)
	}
	return c.model().Validate()
}

// Solver holds V. Values are updated in place, so a sweep reads the values already written
// for deeper states in the same sweep.
//
// Solverは状態価値Vを保持し、その場で更新します。
type Solver struct {
	config    Config
	expansion *solver.Expansion
	values    *mdp.ValueTable
	policy    solver.Policy
}

func New(config Config) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	model, err := mdp.NewModel(config.model())
	if err != nil {
		return nil, err
	}
	expansion, err := solver.Expand(model)
	if err != nil {
		return nil, err
	}

	return &Solver{
		config:    config,
		expansion: expansion,
		values:    mdp.NewValueTable(),
	}, nil
}

func (s *Solver) Model() *mdp.Model {
	return s.expansion.Model()
}

func (s *Solver) Value(state ttt.State) float64 {
	return s.values.Get(state)
}

// Sweep applies one Bellman optimality backup to every decision state and returns the largest
// change.
func (s *Solver) Sweep() float64 {
	maxDelta := 0.0
	for _, state := range s.Model().NonTerminalStates() {
		v := floats.Max(s.expansion.ActionValues(state, s.config.Gamma, s.values.Get))
		maxDelta = math.Max(maxDelta, math.Abs(v-s.values.Get(state)))
		s.values.Set(state, v)
	}
	return maxDelta
}

// Iterate performs exactly Sweeps sweeps.
func (s *Solver) Iterate() {
	for sweep := 1; sweep <= s.config.Sweeps; sweep++ {
		maxDelta := s.Sweep()
		log.Debug().
			Int("sweep", sweep).
			Float64("maxDelta", maxDelta).
			Msg("value iteration sweep")
	}
}

// ExtractPolicy picks, for every decision state, the first move in legal-move order with the
// highest one-step lookahead. It does not modify V.
func (s *Solver) ExtractPolicy() solver.Policy {
	states := s.Model().NonTerminalStates()
	policy := make(solver.Policy, len(states))
	for _, state := range states {
		if m, _, ok := s.expansion.Greedy(state, s.config.Gamma, s.values.Get); ok {
			policy[state] = m
		}
	}
	return policy
}

func (s *Solver) Train() (solver.Policy, error) {
	s.Iterate()
	s.policy = s.ExtractPolicy()
	log.Info().
		Int("sweeps", s.config.Sweeps).
		Int("states", len(s.policy)).
		Msg("value iteration finished")
	return s.policy, nil
}

func (s *Solver) Act(state ttt.State) (ttt.Move, error) {
	if s.policy == nil {
		return ttt.Move{}, solver.ErrNotTrained
	}
	return s.policy.Act(state)
}

var _ solver.Agent = (*Solver)(nil)
