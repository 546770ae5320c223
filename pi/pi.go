// Package pi solves the tic-tac-toe MDP by policy iteration.
//
// Package pi は方策反復法で三目並べのMDPを解きます。
package pi

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/mdp"
	"github.com/sw965/tttmdp/solver"
)

// ImprovementTolerance is the margin by which another move must beat the current one before
// ImprovePolicy switches to it.
const ImprovementTolerance = 1e-9

type Config struct {
	Gamma    float64
	Rewards  mdp.Rewards
	Agent    ttt.Mark
	Opponent ttt.Actor

	// Delta is the convergence threshold of policy evaluation.
	Delta float64

	MaxInnerIterations  int
	MaxEvaluationSweeps int
	MaxPolicyIterations int
}

func DefaultConfig() Config {
	return Config{
		Gamma:               0.9,
		Rewards:             mdp.DefaultRewards(),
		Agent:               ttt.Cross,
		Opponent:            ttt.NewRandomOpponent(),
		Delta:               0.1,
		MaxInnerIterations:  1000,
		MaxEvaluationSweeps: 1000,
		MaxPolicyIterations: 100,
	}
}

func (c Config) model() mdp.Config {
	return mdp.Config{Agent: c.Agent, Rewards: c.Rewards, Opponent: c.Opponent}
}

func (c Config) Validate() error {
	if err := solver.ValidateGamma(c.Gamma); err != nil {
		return err
	}
	if !(c.Delta > 0) || math.IsInf(c.Delta, 0) {
		return fmt.Errorf("%w: delta must be positive: %v", solver.ErrInvalidConfig, c.Delta)
	}
	if c.MaxInnerIterations <= 0 || c.MaxEvaluationSweeps <= 0 || c.MaxPolicyIterations <= 0 {
		return fmt.Errorf("%w: iteration ceilings must be positive: inner=%d sweeps=%d policy=%d",
			solver.ErrInvalidConfig, c.MaxInnerIterations, c.MaxEvaluationSweeps, c.MaxPolicyIterations)
	}
	return c.model().Validate()
}

// Solver keeps the value of the current policy for every state. Terminal states stay at 0.
type Solver struct {
	config    Config
	expansion *solver.Expansion
	rng       *rand.Rand

	values  *mdp.ValueTable
	current solver.Policy
	policy  solver.Policy
}

func New(config Config, rng *rand.Rand) (*Solver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, randx.ErrNilRand
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
		rng:       rng,
		values:    mdp.NewValueTable(),
	}, nil
}

func (s *Solver) Model() *mdp.Model {
	return s.expansion.Model()
}

// Value returns the value of state under the current policy.
func (s *Solver) Value(state ttt.State) float64 {
	return s.values.Get(state)
}

// CurrentPolicy returns a copy of the policy being improved.
func (s *Solver) CurrentPolicy() solver.Policy {
	return maps.Clone(s.current)
}

// InitPolicy assigns a uniformly random legal move to every decision state and resets all
// values to zero.
func (s *Solver) InitPolicy() error {
	states := s.Model().NonTerminalStates()
	current := make(solver.Policy, len(states))
	for _, state := range states {
		m, err := randx.Choice(s.expansion.Moves(state), s.rng)
		if err != nil {
			return err
		}
		current[state] = m
	}
	s.current = current
	s.values = mdp.NewValueTable()
	return nil
}

func (s *Solver) backup(state ttt.State) float64 {
	i := s.expansion.IndexOf(state, s.current[state])
	return s.expansion.Q(state, i, s.config.Gamma, s.values.Get)
}

// EvaluatePolicy repeats sweeps over the decision states. Within a sweep each state is backed
// up until its own change drops below delta; the sweeps stop once no state moved by delta or
// more. ErrNotConverged is returned when MaxEvaluationSweeps is exhausted.
//
// EvaluatePolicyは現在の方策の価値を反復的に評価します。
func (s *Solver) EvaluatePolicy(delta float64) error {
	if s.current == nil {
		return solver.ErrNotTrained
	}

	states := s.Model().NonTerminalStates()
	for sweep := 1; sweep <= s.config.MaxEvaluationSweeps; sweep++ {
		maxDelta := 0.0
		capped := 0
		for _, state := range states {
			old := s.values.Get(state)
			converged := false
			for i := 0; i < s.config.MaxInnerIterations; i++ {
				v := s.backup(state)
				d := math.Abs(v - s.values.Get(state))
				s.values.Set(state, v)
				if d < delta {
					converged = true
					break
				}
			}
			if !converged {
				capped++
			}
			maxDelta = math.Max(maxDelta, math.Abs(s.values.Get(state)-old))
		}

		log.Debug().
			Int("sweep", sweep).
			Float64("maxDelta", maxDelta).
			Int("capped", capped).
			Msg("policy evaluation sweep")

		if capped > 0 {
			log.Warn().Int("sweep", sweep).Int("states", capped).Msg("inner evaluation loop hit its ceiling")
		}
		if maxDelta < delta {
			return nil
		}
	}

	log.Warn().Int("sweeps", s.config.MaxEvaluationSweeps).Msg("policy evaluation hit its ceiling")
	return fmt.Errorf("%w: policy evaluation after %d sweeps", solver.ErrNotConverged, s.config.MaxEvaluationSweeps)
}

// ImprovePolicy makes the current policy greedy with respect to the current values. The
// assigned move is kept unless another move is better by more than ImprovementTolerance.
// It reports whether any state changed its move.
func (s *Solver) ImprovePolicy() bool {
	if s.current == nil {
		return false
	}

	changed := 0
	for _, state := range s.Model().NonTerminalStates() {
		values := s.expansion.ActionValues(state, s.config.Gamma, s.values.Get)
		best := s.expansion.IndexOf(state, s.current[state])
		bestValue := values[best]
		for i, v := range values {
			if v > bestValue+ImprovementTolerance {
				best = i
				bestValue = v
			}
		}
		if m := s.expansion.Moves(state)[best]; m != s.current[state] {
			s.current[state] = m
			changed++
		}
	}
	log.Debug().Int("changed", changed).Msg("policy improvement")
	return changed > 0
}

// Train starts from a random policy and alternates evaluation and improvement until the
// policy is stable.
func (s *Solver) Train() (solver.Policy, error) {
	if err := s.InitPolicy(); err != nil {
		return nil, err
	}

	for iteration := 1; iteration <= s.config.MaxPolicyIterations; iteration++ {
		if err := s.EvaluatePolicy(s.config.Delta); err != nil {
			return nil, err
		}
		if !s.ImprovePolicy() {
			s.policy = s.CurrentPolicy()
			log.Info().
				Int("iterations", iteration).
				Int("states", len(s.policy)).
				Float64("initialValue", s.initialValue()).
				Msg("policy iteration converged")
			return s.policy, nil
		}
	}

	log.Warn().Int("iterations", s.config.MaxPolicyIterations).Msg("policy iteration hit its ceiling")
	return nil, fmt.Errorf("%w: policy still changing after %d iterations", solver.ErrNotConverged, s.config.MaxPolicyIterations)
}

func (s *Solver) initialValue() float64 {
	roots, err := ttt.InitialStates(s.config.Agent)
	if err != nil || len(roots) == 0 {
		return 0
	}
	return s.values.Get(roots[0])
}

func (s *Solver) Act(state ttt.State) (ttt.Move, error) {
	if s.policy == nil {
		return ttt.Move{}, solver.ErrNotTrained
	}
	return s.policy.Act(state)
}

var _ solver.Agent = (*Solver)(nil)
