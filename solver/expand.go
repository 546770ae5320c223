package solver

import (
	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/mdp"
)

// Expansion holds the transitions of every legal move of every decision state of a model,
// generated once so that sweeps do not ask the opponent again.
//
// Expansionは各状態の全ての合法手の遷移を保持します。
type Expansion struct {
	model       *mdp.Model
	moves       map[ttt.State][]ttt.Move
	transitions map[ttt.State][][]mdp.Transition
}

func Expand(model *mdp.Model) (*Expansion, error) {
	states := model.NonTerminalStates()
	e := &Expansion{
		model:       model,
		moves:       make(map[ttt.State][]ttt.Move, len(states)),
		transitions: make(map[ttt.State][][]mdp.Transition, len(states)),
	}
	for _, s := range states {
		moves := ttt.LegalMoves(s)
		rows := make([][]mdp.Transition, len(moves))
		for i, m := range moves {
			ts, err := model.GenerateTransitions(s, m)
			if err != nil {
				return nil, err
			}
			rows[i] = ts
		}
		e.moves[s] = moves
		e.transitions[s] = rows
	}
	return e, nil
}

func (e *Expansion) Model() *mdp.Model {
	return e.model
}

// Moves returns the legal moves of s in legal-move order. It is nil for terminal states.
func (e *Expansion) Moves(s ttt.State) []ttt.Move {
	return e.moves[s]
}

// Transitions returns the transitions of the i-th legal move of s.
func (e *Expansion) Transitions(s ttt.State, i int) []mdp.Transition {
	return e.transitions[s][i]
}

// Q is the one-step lookahead of the i-th legal move of s.
func (e *Expansion) Q(s ttt.State, i int, gamma float64, value func(ttt.State) float64) float64 {
	return Lookahead(e.transitions[s][i], gamma, value)
}

// ActionValues evaluates every legal move of s, in legal-move order.
func (e *Expansion) ActionValues(s ttt.State, gamma float64, value func(ttt.State) float64) []float64 {
	rows := e.transitions[s]
	values := make([]float64, len(rows))
	for i, ts := range rows {
		values[i] = Lookahead(ts, gamma, value)
	}
	return values
}

// Greedy returns the first legal move of s with the highest lookahead, and false for states
// without moves.
func (e *Expansion) Greedy(s ttt.State, gamma float64, value func(ttt.State) float64) (ttt.Move, float64, bool) {
	values := e.ActionValues(s, gamma, value)
	i := Argmax(values)
	if i < 0 {
		return ttt.Move{}, 0, false
	}
	return e.moves[s][i], values[i], true
}

// IndexOf returns the position of m among the legal moves of s, or -1.
func (e *Expansion) IndexOf(s ttt.State, m ttt.Move) int {
	for i, legal := range e.moves[s] {
		if legal == m {
			return i
		}
	}
	return -1
}
