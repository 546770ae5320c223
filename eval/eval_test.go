package eval_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sw965/tttmdp/eval"
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mdp"
	"github.com/sw965/tttmdp/solver"
	"github.com/sw965/tttmdp/vi"
)

func mustState(t *testing.T, rows ...string) ttt.State {
	t.Helper()
	s, err := ttt.ParseState(rows...)
	require.NoError(t, err)
	return s
}

func trainVI(t *testing.T) solver.Policy {
	t.Helper()
	s, err := vi.New(vi.DefaultConfig())
	require.NoError(t, err)
	policy, err := s.Train()
	require.NoError(t, err)
	return policy
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, eval.DefaultConfig().Validate())

	tests := []struct {
		name   string
		config eval.Config
	}{
		{name: "異常_ゲーム数0", config: eval.Config{Agent: ttt.Cross, Games: 0, Workers: 1}},
		{name: "異常_ワーカー数0", config: eval.Config{Agent: ttt.Cross, Games: 1, Workers: 0}},
		{name: "異常_記号が空", config: eval.Config{Agent: ttt.EmptyMark, Games: 1, Workers: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.config.Validate(), mdp.ErrInvalidConfig)
		})
	}
}

func TestPlayoutsRandom(t *testing.T) {
	config := eval.Config{Agent: ttt.Cross, Rewards: mdp.DefaultRewards(), Games: 300, Workers: 3}
	r, err := eval.Playouts(context.Background(), config, ttt.NewRandomOpponent(), ttt.NewRandomOpponent(), 1)
	require.NoError(t, err)
	require.Equal(t, 300, r.Games)
	require.Equal(t, r.Games, r.Wins+r.Losses+r.Draws)
	// 先手同士のランダム対局は先手が有利
	require.Greater(t, r.Wins, r.Losses)
	require.InDelta(t, 10*(r.WinRate()-r.LossRate()), r.MeanReturn, 1e-9)
}

func TestPlayoutsReproducible(t *testing.T) {
	config := eval.Config{Agent: ttt.Nought, Rewards: mdp.DefaultRewards(), Games: 100, Workers: 4}
	run := func() eval.Result {
		r, err := eval.Playouts(context.Background(), config, ttt.NewRandomOpponent(), ttt.NewRandomOpponent(), 42)
		require.NoError(t, err)
		return r
	}
	require.Equal(t, run(), run())
}

func TestPlayoutsPolicy(t *testing.T) {
	policy := trainVI(t)
	config := eval.Config{Agent: ttt.Cross, Rewards: mdp.DefaultRewards(), Games: 500, Workers: 4}
	r, err := eval.Playouts(context.Background(), config, eval.PolicyActor(policy), ttt.NewRandomOpponent(), 5)
	require.NoError(t, err)
	require.Greater(t, r.WinRate(), 0.9)
	require.Less(t, r.LossRate(), 0.02)
}

func TestPlayoutsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eval.Playouts(ctx, eval.DefaultConfig(), ttt.NewRandomOpponent(), ttt.NewRandomOpponent(), 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPolicyActorMissingEntry(t *testing.T) {
	config := eval.Config{Agent: ttt.Cross, Rewards: mdp.DefaultRewards(), Games: 1, Workers: 1}
	_, err := eval.Playouts(context.Background(), config, eval.PolicyActor(solver.Policy{}), ttt.NewRandomOpponent(), 1)
	require.ErrorIs(t, err, solver.ErrNoPolicyEntry)
}

func TestIsBlunder(t *testing.T) {
	s := mustState(t, "X.X", "OO.", "...")
	tests := []struct {
		name string
		move ttt.Move
		want bool
	}{
		{name: "正常_勝ち", move: ttt.Move{Mark: ttt.Cross, Row: 0, Col: 1}, want: false},
		{name: "正常_防ぐ", move: ttt.Move{Mark: ttt.Cross, Row: 1, Col: 2}, want: false},
		{name: "正常_見逃す", move: ttt.Move{Mark: ttt.Cross, Row: 2, Col: 2}, want: true},
		{name: "異常_非合法", move: ttt.Move{Mark: ttt.Cross, Row: 0, Col: 0}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, eval.IsBlunder(s, tc.move))
		})
	}
}

func TestBlunders(t *testing.T) {
	s := mustState(t, "X.X", "OO.", "...")
	quiet := mustState(t, "X..", "...", "...")
	require.Equal(t, []ttt.State{s}, eval.Avoidable([]ttt.State{s, quiet}))

	bad := solver.Policy{s: {Mark: ttt.Cross, Row: 2, Col: 2}}
	require.Equal(t, []ttt.State{s}, eval.Blunders(bad, []ttt.State{s, quiet}))

	good := solver.Policy{s: {Mark: ttt.Cross, Row: 0, Col: 1}}
	require.Empty(t, eval.Blunders(good, []ttt.State{s}))
}

func TestAllowsForcedWin(t *testing.T) {
	tests := []struct {
		name  string
		state ttt.State
		move  ttt.Move
		want  bool
	}{
		{
			name:  "正常_即座に負ける",
			state: mustState(t, "X.X", "OO.", "..."),
			move:  ttt.Move{Mark: ttt.Cross, Row: 2, Col: 2},
			want:  true,
		},
		// 左下に置くと、相手は中央で縦と横の両取りを作れる
		{
			name:  "正常_両取りを許す",
			state: mustState(t, "XOX", "O..", "..."),
			move:  ttt.Move{Mark: ttt.Cross, Row: 2, Col: 0},
			want:  true,
		},
		{
			name:  "正常_中央で防ぐ",
			state: mustState(t, "XOX", "O..", "..."),
			move:  ttt.Move{Mark: ttt.Cross, Row: 1, Col: 1},
			want:  false,
		},
		{
			name:  "正常_勝ち",
			state: mustState(t, "X.X", "OO.", "..."),
			move:  ttt.Move{Mark: ttt.Cross, Row: 0, Col: 1},
			want:  false,
		},
		{
			name:  "異常_非合法",
			state: mustState(t, "XOX", "O..", "..."),
			move:  ttt.Move{Mark: ttt.Cross, Row: 0, Col: 0},
			want:  false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, eval.AllowsForcedWin(tc.state, tc.move))
		})
	}
}

func TestForcedLosses(t *testing.T) {
	s := mustState(t, "XOX", "O..", "...")
	// 即座の負けはないので、IsBlunderでは見逃される
	require.Empty(t, eval.Avoidable([]ttt.State{s}))
	require.Equal(t, []ttt.State{s}, eval.AvoidableForcedWins([]ttt.State{s}))

	bad := solver.Policy{s: {Mark: ttt.Cross, Row: 2, Col: 0}}
	require.Equal(t, []ttt.State{s}, eval.ForcedLosses(bad, []ttt.State{s}))

	good := solver.Policy{s: {Mark: ttt.Cross, Row: 1, Col: 1}}
	require.Empty(t, eval.ForcedLosses(good, []ttt.State{s}))
}

func TestReachable(t *testing.T) {
	policy := trainVI(t)
	states, err := eval.Reachable(policy, ttt.Cross)
	require.NoError(t, err)
	require.Contains(t, states, ttt.NewInitState())
	require.Less(t, len(states), len(policy))
	for _, s := range states {
		require.False(t, ttt.IsTerminal(s))
		require.Contains(t, policy, s)
	}

	_, err = eval.Reachable(solver.Policy{}, ttt.Cross)
	require.ErrorIs(t, err, solver.ErrNoPolicyEntry)
}
