// Package ql learns tic-tac-toe action values by tabular Q-learning against a fixed opponent.
//
// Package ql は固定の対戦相手とのQ学習で行動価値を学習します。
package ql

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/sw965/tttmdp/env"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/mdp"
	"github.com/sw965/tttmdp/solver"
)

const logEvery = 10000

// UpdateQ is the temporal-difference rule (1-lr)·q + lr·(reward + discountRate·nextMaxQ).
func UpdateQ(q, nextMaxQ, reward, lr, discountRate float64) float64 {
	qRatio := 1.0 - lr
	newQ := (reward + discountRate*nextMaxQ)
	return (qRatio * q) + (lr * newQ)
}

type Config struct {
	Alpha   float64
	Gamma   float64
	Epsilon float64

	// EpsilonDecay multiplies epsilon after every episode; 0 disables decay.
	EpsilonDecay float64
	EpsilonMin   float64

	Episodes int

	Rewards  mdp.Rewards
	Agent    ttt.Mark
	Opponent ttt.Actor
}

func DefaultConfig() Config {
	return Config{
		Alpha:        0.1,
		Gamma:        0.9,
		Epsilon:      0.1,
		EpsilonDecay: 0,
		EpsilonMin:   0,
		Episodes:     69900,
		Rewards:      mdp.DefaultRewards(),
		Agent:        ttt.Cross,
		Opponent:     ttt.NewRandomOpponent(),
	}
}

func (c Config) model() mdp.Config {
	return mdp.Config{Agent: c.Agent, Rewards: c.Rewards, Opponent: c.Opponent}
}

func (c Config) Validate() error {
	if err := solver.ValidateGamma(c.Gamma); err != nil {
		return err
	}
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return fmt.Errorf("%w: alpha must be in (0, 1]: %v", solver.ErrInvalidConfig, c.Alpha)
	}
	if !(c.Epsilon >= 0 && c.Epsilon <= 1) {
		return fmt.Errorf("%w: epsilon must be in [0, 1]: %v", solver.ErrInvalidConfig, c.Epsilon)
	}
	if !(c.EpsilonDecay >= 0 && c.EpsilonDecay <= 1) {
		return fmt.Errorf("%w: epsilon decay must be in [0, 1]: %v", solver.ErrInvalidConfig, c.EpsilonDecay)
	}
	if !(c.EpsilonMin >= 0 && c.EpsilonMin <= c.Epsilon) {
		return fmt.Errorf("%w: epsilon min must be in [0, epsilon]: %v", solver.ErrInvalidConfig, c.EpsilonMin)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive: %d", solver.ErrInvalidConfig, c.Episodes)
	}
	return c.model().Validate()
}

// Stats counts the results of the training episodes.
type Stats struct {
	Episodes int
	Steps    int
	Wins     int
	Losses   int
	Draws    int
}

type Solver struct {
	config  Config
	model   *mdp.Model
	env     *env.Environment
	rng     *rand.Rand
	q       *mdp.QTable
	epsilon float64
	stats   Stats
	policy  solver.Policy
}

// New creates zero-valued Q entries for every legal state-action pair of the agent. The
// environment and the exploration draws share rng.
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
	e, err := env.New(config.model(), rng)
	if err != nil {
		return nil, err
	}

	return &Solver{
		config:  config,
		model:   model,
		env:     e,
		rng:     rng,
		q:       mdp.NewQTable(model.States()),
		epsilon: config.Epsilon,
	}, nil
}

func (s *Solver) Model() *mdp.Model {
	return s.model
}

func (s *Solver) Q(state ttt.State, move ttt.Move) (float64, bool) {
	return s.q.Get(state, move)
}

// MaxQ is the largest Q value of state, 0 for terminal states.
func (s *Solver) MaxQ(state ttt.State) float64 {
	return s.q.Max(state)
}

// Epsilon is the exploration rate the next episode will use.
func (s *Solver) Epsilon() float64 {
	return s.epsilon
}

func (s *Solver) Stats() Stats {
	return s.stats
}

// learn plays move in the environment and applies the TD update to the visited pair.
func (s *Solver) learn(move ttt.Move) (mdp.Outcome, error) {
	outcome, err := s.env.Step(move)
	if errors.Is(err, env.ErrIllegalMove) {
		log.Error().
			Err(err).
			Str("state", s.env.CurrentState().String()).
			Stringer("move", move).
			Msg("learner offered an illegal move")
		return mdp.Outcome{}, fmt.Errorf("%w: %w", solver.ErrContractViolation, err)
	}
	if err != nil {
		return mdp.Outcome{}, err
	}

	q, ok := s.q.Get(outcome.Source, outcome.Move)
	if !ok {
		return mdp.Outcome{}, fmt.Errorf("%w: %w: state=%v move=%v", solver.ErrContractViolation, mdp.ErrUntabulated, outcome.Source, outcome.Move)
	}
	updated := UpdateQ(q, s.q.Max(outcome.Next), outcome.Reward, s.config.Alpha, s.config.Gamma)
	if err := s.q.Set(outcome.Source, outcome.Move, updated); err != nil {
		return mdp.Outcome{}, err
	}
	return outcome, nil
}

// Episode plays one training episode with the current epsilon and returns its result.
func (s *Solver) Episode() (ttt.Result, error) {
	state, err := s.env.Reset()
	if err != nil {
		return ttt.None, err
	}

	for !s.env.IsTerminal() {
		move, err := solver.EpsilonGreedy(s.q, state, s.epsilon, s.rng)
		if err != nil {
			return ttt.None, err
		}
		outcome, err := s.learn(move)
		if err != nil {
			return ttt.None, err
		}
		state = outcome.Next
	}

	result := ttt.OutcomeFor(state, s.config.Agent)
	s.stats.Episodes++
	s.stats.Steps += s.env.Steps()
	switch result {
	case ttt.Win:
		s.stats.Wins++
	case ttt.Loss:
		s.stats.Losses++
	case ttt.Draw:
		s.stats.Draws++
	}

	if s.config.EpsilonDecay > 0 {
		s.epsilon = math.Max(s.config.EpsilonMin, s.epsilon*s.config.EpsilonDecay)
	}
	return result, nil
}

// Train runs Episodes episodes, continuing from the current Q values, and extracts the
// greedy policy.
func (s *Solver) Train() (solver.Policy, error) {
	for episode := 1; episode <= s.config.Episodes; episode++ {
		if _, err := s.Episode(); err != nil {
			return nil, fmt.Errorf("episode %d: %w", episode, err)
		}
		if episode%logEvery == 0 {
			log.Debug().
				Int("episode", episode).
				Float64("epsilon", s.epsilon).
				Int("wins", s.stats.Wins).
				Int("losses", s.stats.Losses).
				Int("draws", s.stats.Draws).
				Msg("q-learning progress")
		}
	}

	s.policy = s.ExtractPolicy()
	log.Info().
		Int("episodes", s.stats.Episodes).
		Int("states", len(s.policy)).
		Int("wins", s.stats.Wins).
		Int("losses", s.stats.Losses).
		Int("draws", s.stats.Draws).
		Msg("q-learning finished")
	return s.policy, nil
}

// ExtractPolicy picks the first move with the highest Q value in every tabulated state.
func (s *Solver) ExtractPolicy() solver.Policy {
	states := s.q.States()
	policy := make(solver.Policy, len(states))
	for _, state := range states {
		if m, ok := s.q.Argmax(state); ok {
			policy[state] = m
		}
	}
	return policy
}

func (s *Solver) Act(state ttt.State) (ttt.Move, error) {
	if s.policy == nil {
		return ttt.Move{}, solver.ErrNotTrained
	}
	return s.policy.Act(state)
}

var _ solver.Agent = (*Solver)(nil)
