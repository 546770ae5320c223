package vi_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw965/tttmdp/eval"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mathx/randx"
	"github.com/sw965/tttmdp/pi"
	"github.com/sw965/tttmdp/solver"
	"github.com/sw965/tttmdp/vi"
	"gonum.org/v1/gonum/floats/scalar"
)

func mustState(t *testing.T, rows ...string) ttt.State {
	t.Helper()
	s, err := ttt.ParseState(rows...)
	require.NoError(t, err)
	return s
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, vi.DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*vi.Config)
	}{
		{name: "異常_gammaが0", modify: func(c *vi.Config) { c.Gamma = 0 }},
		{name: "異常_スイープ数0", modify: func(c *vi.Config) { c.Sweeps = 0 }},
		{name: "異常_対戦相手なし", modify: func(c *vi.Config) { c.Opponent = ttt.Actor{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := vi.DefaultConfig()
			tc.modify(&config)
			_, err := vi.New(config)
			require.ErrorIs(t, err, solver.ErrInvalidConfig)
		})
	}
}

func TestActBeforeTrain(t *testing.T) {
	s, err := vi.New(vi.DefaultConfig())
	require.NoError(t, err)
	_, err = s.Act(ttt.NewInitState())
	require.ErrorIs(t, err, solver.ErrNotTrained)
}

func TestTrain(t *testing.T) {
	s, err := vi.New(vi.DefaultConfig())
	require.NoError(t, err)
	policy, err := s.Train()
	require.NoError(t, err)
	require.NoError(t, policy.Validate())
	require.Len(t, policy, len(s.Model().NonTerminalStates()))

	t.Run("正常_終局状態は価値0で方策なし", func(t *testing.T) {
		for _, state := range s.Model().States() {
			if ttt.IsTerminal(state) {
				require.Equal(t, 0.0, s.Value(state))
				require.NotContains(t, policy, state)
			}
		}

		full := mustState(t, "XOX", "XOO", "OXX")
		require.True(t, ttt.IsTerminal(full))
		require.Equal(t, 0.0, s.Value(full))
		_, err := s.Act(full)
		require.ErrorIs(t, err, solver.ErrNoPolicyEntry)
	})

	t.Run("正常_抽出は冪等", func(t *testing.T) {
		require.True(t, policy.Equal(s.ExtractPolicy()))
		require.True(t, s.ExtractPolicy().Equal(s.ExtractPolicy()))
	})

	t.Run("正常_悪手を指さない", func(t *testing.T) {
		require.Empty(t, eval.Blunders(policy, s.Model().NonTerminalStates()))
	})

	t.Run("正常_2手以内の必敗を避ける", func(t *testing.T) {
		states := s.Model().NonTerminalStates()
		require.Len(t, eval.AvoidableForcedWins(states), 1392)
		require.Empty(t, eval.ForcedLosses(policy, states))
	})

	t.Run("正常_即勝ちを選ぶ", func(t *testing.T) {
		move, err := s.Act(mustState(t, "XX.", "OO.", "..."))
		require.NoError(t, err)
		require.Equal(t, ttt.Move{Mark: ttt.Cross, Row: 0, Col: 2}, move)
	})

	t.Run("正常_収束済み", func(t *testing.T) {
		require.Less(t, s.Sweep(), 1e-9)
	})
}

func TestTwoEmptyCells(t *testing.T) {
	config := vi.DefaultConfig()
	config.Agent = ttt.Nought
	s, err := vi.New(config)
	require.NoError(t, err)
	policy, err := s.Train()
	require.NoError(t, err)

	tests := []struct {
		name  string
		state ttt.State
		want  ttt.Move
	}{
		{
			name:  "正常_縦が揃う",
			state: mustState(t, "XOX", "OOX", "X.."),
			want:  ttt.Move{Mark: ttt.Nought, Row: 2, Col: 1},
		},
		{
			name:  "正常_斜めが揃う",
			state: mustState(t, "OXO", "XOX", "X.."),
			want:  ttt.Move{Mark: ttt.Nought, Row: 2, Col: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			move, err := policy.Act(tc.state)
			require.NoError(t, err)
			require.Equal(t, tc.want, move)

			mid, err := ttt.Apply(tc.state, move)
			require.NoError(t, err)
			require.Equal(t, ttt.Win, ttt.OutcomeFor(mid, ttt.Nought))
		})
	}
}

// 同じ割引率なら、方策反復法と価値反復法は同じ最適価値に到達する
func TestAgreesWithPolicyIteration(t *testing.T) {
	opponents := []ttt.Actor{
		ttt.NewTacticalOpponent(),
		ttt.NewFirstCellOpponent(),
		ttt.NewRandomOpponent(),
	}
	for _, opponent := range opponents {
		t.Run(opponent.Name, func(t *testing.T) {
			viConfig := vi.DefaultConfig()
			viConfig.Opponent = opponent
			v, err := vi.New(viConfig)
			require.NoError(t, err)
			viPolicy, err := v.Train()
			require.NoError(t, err)

			piConfig := pi.DefaultConfig()
			piConfig.Opponent = opponent
			p, err := pi.New(piConfig, randx.NewPCG(11))
			require.NoError(t, err)
			piPolicy, err := p.Train()
			require.NoError(t, err)

			require.Equal(t, len(viPolicy), len(piPolicy))
			for _, state := range v.Model().States() {
				require.True(t, scalar.EqualWithinAbs(v.Value(state), p.Value(state), 1e-6),
					"state=%v vi=%v pi=%v", state, v.Value(state), p.Value(state))
			}
		})
	}
}

func TestTacticalOpponentNoBlunders(t *testing.T) {
	config := vi.DefaultConfig()
	config.Opponent = ttt.NewTacticalOpponent()
	s, err := vi.New(config)
	require.NoError(t, err)
	policy, err := s.Train()
	require.NoError(t, err)
	require.Empty(t, eval.Blunders(policy, s.Model().NonTerminalStates()))
}
