package mdp

import (
	"errors"
	"fmt"
	"slices"

	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"gonum.org/v1/gonum/floats"
)

var ErrUntabulated = errors.New("state-action pair is not tabulated")

// ValueTable is a dense state-value table indexed by State.Key. Every entry starts at zero.
//
// ValueTableは状態価値のテーブルです。
type ValueTable struct {
	values [ttt.NumKeys]float64
}

func NewValueTable() *ValueTable {
	return &ValueTable{}
}

func (t *ValueTable) Get(s ttt.State) float64 {
	return t.values[s.Key()]
}

func (t *ValueTable) Set(s ttt.State, v float64) {
	t.values[s.Key()] = v
}

type ActionValue struct {
	Move  ttt.Move
	Value float64
}

// QTable holds one row per non-terminal state, aligned with LegalMoves of that state.
// Only legal state-action pairs exist.
//
// QTableは行動価値のテーブルです。合法な状態と行動の組のみを保持します。
type QTable struct {
	rows map[ttt.State][]ActionValue
}

// NewQTable creates zero-valued rows for every non-terminal state in states.
func NewQTable(states []ttt.State) *QTable {
	rows := make(map[ttt.State][]ActionValue, len(states))
	for _, s := range states {
		moves := ttt.LegalMoves(s)
		if len(moves) == 0 {
			continue
		}
		row := make([]ActionValue, len(moves))
		for i, m := range moves {
			row[i] = ActionValue{Move: m}
		}
		rows[s] = row
	}
	return &QTable{rows: rows}
}

// Get reports the value of (s, m) and whether the pair is tabulated.
func (q *QTable) Get(s ttt.State, m ttt.Move) (float64, bool) {
	row := q.rows[s]
	i := slices.IndexFunc(row, func(av ActionValue) bool { return av.Move == m })
	if i < 0 {
		return 0, false
	}
	return row[i].Value, true
}

func (q *QTable) Set(s ttt.State, m ttt.Move, v float64) error {
	row := q.rows[s]
	i := slices.IndexFunc(row, func(av ActionValue) bool { return av.Move == m })
	if i < 0 {
		return fmt.Errorf("%w: state=%v move=%v", ErrUntabulated, s, m)
	}
	row[i].Value = v
	return nil
}

func (q *QTable) values(s ttt.State) []float64 {
	row := q.rows[s]
	vs := make([]float64, len(row))
	for i, av := range row {
		vs[i] = av.Value
	}
	return vs
}

// Max returns the largest value in the row for s, and 0 when s has no row (terminal states).
func (q *QTable) Max(s ttt.State) float64 {
	if len(q.rows[s]) == 0 {
		return 0
	}
	return floats.Max(q.values(s))
}

// Argmax returns the first move in legal-move order holding the row maximum.
func (q *QTable) Argmax(s ttt.State) (ttt.Move, bool) {
	row := q.rows[s]
	if len(row) == 0 {
		return ttt.Move{}, false
	}
	return row[floats.MaxIdx(q.values(s))].Move, true
}

// States returns the states that have a row, sorted by key.
func (q *QTable) States() []ttt.State {
	states := make([]ttt.State, 0, len(q.rows))
	for s := range q.rows {
		states = append(states, s)
	}
	slices.SortFunc(states, func(a, b ttt.State) int { return a.Key() - b.Key() })
	return states
}
