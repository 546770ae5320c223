package tictactoe

import (
	"github.com/sw965/tttmdp/game"
)

// Actor is a move selector bound to tic-tac-toe states.
type Actor = game.Actor[State, Move]

// NewRandomOpponent replies uniformly at random among the legal moves.
func NewRandomOpponent() Actor {
	return game.NewRandomActor[State, Move]("random")
}

// NewFirstCellOpponent always takes the first empty cell in row-major order.
func NewFirstCellOpponent() Actor {
	return Actor{
		Name:       "first-cell",
		PolicyFunc: FirstCellPolicyFunc,
		SelectFunc: game.MaxSelectFunc[Move],
	}
}

// NewTacticalOpponent completes its own line when it can, otherwise blocks the other side's
// line, otherwise takes the first empty cell. It is deterministic.
//
// NewTacticalOpponentは、勝てる手があれば勝ち、なければ相手のリーチを防ぎ、
// それもなければ最初の空きマスに置く決定的な対戦相手を作成します。
func NewTacticalOpponent() Actor {
	return Actor{
		Name:       "tactical",
		PolicyFunc: TacticalPolicyFunc,
		SelectFunc: game.MaxSelectFunc[Move],
	}
}

// NewTacticalRandomOpponent follows the same priorities as NewTacticalOpponent but picks
// uniformly among the moves of the highest priority class.
func NewTacticalRandomOpponent() Actor {
	return Actor{
		Name:       "tactical-random",
		PolicyFunc: TacticalUniformPolicyFunc,
		SelectFunc: game.WeightedRandomSelectFunc[Move],
	}
}

func FirstCellPolicyFunc(_ State, legalMoves []Move) (game.Policy[Move], error) {
	if len(legalMoves) == 0 {
		return nil, game.ErrEmptyLegalMoves
	}
	policy := game.Policy[Move]{}
	for _, m := range legalMoves {
		policy[m] = 0
	}
	policy[legalMoves[0]] = 1
	return policy, nil
}

func TacticalPolicyFunc(state State, legalMoves []Move) (game.Policy[Move], error) {
	candidates, err := tacticalCandidates(state, legalMoves)
	if err != nil {
		return nil, err
	}
	policy := game.Policy[Move]{}
	for _, m := range legalMoves {
		policy[m] = 0
	}
	policy[candidates[0]] = 1
	return policy, nil
}

func TacticalUniformPolicyFunc(state State, legalMoves []Move) (game.Policy[Move], error) {
	candidates, err := tacticalCandidates(state, legalMoves)
	if err != nil {
		return nil, err
	}
	policy := game.Policy[Move]{}
	for _, m := range legalMoves {
		policy[m] = 0
	}
	p := 1.0 / float32(len(candidates))
	for _, m := range candidates {
		policy[m] = p
	}
	return policy, nil
}

// WinningMoves returns the legal moves that complete a line for the side to move.
func WinningMoves(state State) []Move {
	var wins []Move
	for _, m := range LegalMoves(state) {
		if completesLine(state.Board, m.Mark, m.Row, m.Col) {
			wins = append(wins, m)
		}
	}
	return wins
}

func tacticalCandidates(state State, legalMoves []Move) ([]Move, error) {
	if len(legalMoves) == 0 {
		return nil, game.ErrEmptyLegalMoves
	}

	var wins, blocks []Move
	for _, m := range legalMoves {
		switch {
		case completesLine(state.Board, m.Mark, m.Row, m.Col):
			wins = append(wins, m)
		case completesLine(state.Board, m.Mark.Opposite(), m.Row, m.Col):
			blocks = append(blocks, m)
		}
	}

	if len(wins) != 0 {
		return wins, nil
	}
	if len(blocks) != 0 {
		return blocks, nil
	}
	return legalMoves, nil
}
