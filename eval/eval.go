// Package eval plays trained policies against opponents and inspects them for blunders.
//
// Package eval は学習済みの方策を対戦相手と対局させ、評価します。
package eval

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/sw965/tttmdp/env"
	"github.com/sw965/tttmdp/game"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/mdp"
	"github.com/sw965/tttmdp/solver"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

type Config struct {
	Agent   ttt.Mark
	Rewards mdp.Rewards
	Games   int
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Agent:   ttt.Cross,
		Rewards: mdp.DefaultRewards(),
		Games:   1000,
		Workers: 4,
	}
}

func (c Config) Validate() error {
	if !c.Agent.IsPlayer() {
		return fmt.Errorf("%w: %w", mdp.ErrInvalidConfig, ttt.ErrNotPlayerMark)
	}
	if c.Games <= 0 || c.Workers <= 0 {
		return fmt.Errorf("%w: games and workers must be positive: games=%d workers=%d", mdp.ErrInvalidConfig, c.Games, c.Workers)
	}
	return c.Rewards.Validate()
}

// Result summarises a batch of games from the agent's point of view. MeanReturn and StdReturn
// are over the undiscounted sum of rewards of each game; StdReturn is NaN for a single game.
type Result struct {
	Games      int
	Wins       int
	Losses     int
	Draws      int
	MeanReturn float64
	StdReturn  float64
}

func (r Result) WinRate() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Games)
}

func (r Result) LossRate() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.Losses) / float64(r.Games)
}

// PolicyActor plays the policy's move and fails on states the policy has no entry for.
func PolicyActor(policy solver.Policy) ttt.Actor {
	return ttt.Actor{
		Name: "policy",
		PolicyFunc: func(state ttt.State, legalMoves []ttt.Move) (game.Policy[ttt.Move], error) {
			move, err := policy.Act(state)
			if err != nil {
				return nil, err
			}
			p := game.Policy[ttt.Move]{}
			for _, m := range legalMoves {
				p[m] = 0
			}
			p[move] = 1
			return p, nil
		},
		SelectFunc: game.MaxSelectFunc[ttt.Move],
	}
}

// Playout plays one episode of e to the end with actor and returns the undiscounted return.
func Playout(e *env.Environment, actor ttt.Actor, rng *rand.Rand) (float64, ttt.Result, error) {
	state, err := e.Reset()
	if err != nil {
		return 0, ttt.None, err
	}

	ret := 0.0
	for !e.IsTerminal() {
		move, err := actor.Select(state, ttt.LegalMoves(state), rng)
		if err != nil {
			return 0, ttt.None, err
		}
		outcome, err := e.Step(move)
		if err != nil {
			return 0, ttt.None, err
		}
		ret += outcome.Reward
		state = outcome.Next
	}
	return ret, ttt.OutcomeFor(state, e.Agent()), nil
}

// Playouts plays config.Games games of agent against opponent. Game i is played by worker
// i % Workers with that worker's generator derived from seed, so a result depends only on the
// seed and the worker count.
//
// Playoutsは複数のゲームを並列にプレイし、結果を集計します。
func Playouts(ctx context.Context, config Config, agent, opponent ttt.Actor, seed uint64) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}
	if err := agent.Validate(); err != nil {
		return Result{}, err
	}

	mdpConfig := mdp.Config{Agent: config.Agent, Rewards: config.Rewards, Opponent: opponent}
	if err := mdpConfig.Validate(); err != nil {
		return Result{}, err
	}

	workers := min(config.Workers, config.Games)
	rngs := randx.NewPCGs(seed, workers)
	returns := make([]float64, config.Games)
	results := make([]ttt.Result, config.Games)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		rng := rngs[w]
		g.Go(func() error {
			e, err := env.New(mdpConfig, rng)
			if err != nil {
				return err
			}
			for i := w; i < config.Games; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				ret, result, err := Playout(e, agent, rng)
				if err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				returns[i] = ret
				results[i] = result
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	r := Result{Games: config.Games}
	for _, result := range results {
		switch result {
		case ttt.Win:
			r.Wins++
		case ttt.Loss:
			r.Losses++
		case ttt.Draw:
			r.Draws++
		}
	}
	r.MeanReturn, r.StdReturn = stat.MeanStdDev(returns, nil)

	log.Info().
		Str("agent", agent.Name).
		Str("opponent", opponent.Name).
		Int("games", r.Games).
		Int("wins", r.Wins).
		Int("losses", r.Losses).
		Int("draws", r.Draws).
		Float64("meanReturn", r.MeanReturn).
		Msg("playouts finished")
	return r, nil
}
