package tictactoe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidAction is wrapped by every error Apply returns.
	ErrInvalidAction = errors.New("invalid action")

	ErrGameOver     = fmt.Errorf("%w: game is already over", ErrInvalidAction)
	ErrOutOfBounds  = fmt.Errorf("%w: cell out of bounds", ErrInvalidAction)
	ErrNotYourTurn  = fmt.Errorf("%w: mark does not match the side to move", ErrInvalidAction)
	ErrCellOccupied = fmt.Errorf("%w: cell is occupied", ErrInvalidAction)

	ErrNotPlayerMark = errors.New("mark must be Cross or Nought")
	ErrBadKey        = errors.New("state key out of range")
	ErrBadBoard      = errors.New("board text is malformed")
)

type Mark int

const (
	EmptyMark Mark = iota
	Cross
	Nought
)

// FirstMark always opens the game.
const FirstMark = Cross

func (m Mark) Opposite() Mark {
	if m == Nought {
		return Cross
	} else if m == Cross {
		return Nought
	}
	return m
}

func (m Mark) IsPlayer() bool {
	return m == Cross || m == Nought
}

func (m Mark) String() string {
	switch m {
	case Cross:
		return "X"
	case Nought:
		return "O"
	default:
		return "."
	}
}

const (
	Rows  = 3
	Cols  = 3
	Cells = Rows * Cols

	// NumKeys is 3^Cells, the size of the key space.
	NumKeys = 19683
)

// Board represents the 3x3 Tic-Tac-Toe grid.
//
// Boardは3x3の三目並べの盤面を表します。
type Board [Rows][Cols]Mark

// IsFull checks if all cells on the board are occupied.
//
// IsFullは、盤面の全てのセルが埋まっているかを確認します。
func (b Board) IsFull() bool {
	for _, row := range b {
		for _, mark := range row {
			if mark == EmptyMark {
				return false
			}
		}
	}
	return true
}

func (b Board) Count(m Mark) int {
	n := 0
	for _, row := range b {
		for _, mark := range row {
			if mark == m {
				n++
			}
		}
	}
	return n
}

// Move represents a player's action, specifying the mark and the position.
//
// Moveはプレイヤーの行動を表し、記号と配置する場所（行・列）を指定します。
type Move struct {
	Mark Mark
	Row  int
	Col  int
}

func (m Move) String() string {
	return fmt.Sprintf("%v@(%d,%d)", m.Mark, m.Row, m.Col)
}

// State is a board position. The side to move is derived from the number of filled cells,
// so two states are equal exactly when their boards are equal.
//
// Stateは盤面を表します。手番は埋まったセルの数から導出される為、
// 盤面が等しければ状態も等しくなります。
type State struct {
	Board Board
}

// NewInitState creates a new initial game state.
//
// NewInitStateは、ゲームの初期状態を作成します。
func NewInitState() State {
	return State{}
}

func (s State) Filled() int {
	return Cells - s.Board.Count(EmptyMark)
}

// Turn returns the mark whose turn it is by parity of filled cells.
// It is meaningful only for non-terminal states.
func (s State) Turn() Mark {
	if s.Filled()%2 == 0 {
		return FirstMark
	}
	return FirstMark.Opposite()
}

// Key encodes the board as a base-3 number; cell r*3+c is digit r*3+c.
//
// Keyは盤面を3進数に符号化します。
func (s State) Key() int {
	key := 0
	pow := 1
	for i := 0; i < Cells; i++ {
		key += int(s.Board[i/Cols][i%Cols]) * pow
		pow *= 3
	}
	return key
}

func StateFromKey(key int) (State, error) {
	if key < 0 || key >= NumKeys {
		return State{}, fmt.Errorf("%w: %d", ErrBadKey, key)
	}
	var s State
	for i := 0; i < Cells; i++ {
		s.Board[i/Cols][i%Cols] = Mark(key % 3)
		key /= 3
	}
	return s, nil
}

// String renders the board on one line, rows separated by '/'.
func (s State) String() string {
	var sb strings.Builder
	for i, row := range s.Board {
		if i > 0 {
			sb.WriteByte('/')
		}
		for _, m := range row {
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}

// ParseState reads three rows of 'X', 'O' and '.' (or ' ').
func ParseState(rows ...string) (State, error) {
	var s State
	if len(rows) != Rows {
		return s, fmt.Errorf("%w: want %d rows, got %d", ErrBadBoard, Rows, len(rows))
	}
	for i, row := range rows {
		if len(row) != Cols {
			return s, fmt.Errorf("%w: row %d has %d cells", ErrBadBoard, i, len(row))
		}
		for j, c := range row {
			switch c {
			case 'X', 'x':
				s.Board[i][j] = Cross
			case 'O', 'o':
				s.Board[i][j] = Nought
			case '.', ' ':
				s.Board[i][j] = EmptyMark
			default:
				return s, fmt.Errorf("%w: unexpected %q at (%d,%d)", ErrBadBoard, c, i, j)
			}
		}
	}
	return s, nil
}

// 勝敗が決まるライン(縦、横、斜め）
var lines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// Winner returns the mark that completed a line, or EmptyMark.
func Winner(s State) Mark {
	for _, line := range lines {
		m1 := s.Board[line[0][0]][line[0][1]]
		m2 := s.Board[line[1][0]][line[1][1]]
		m3 := s.Board[line[2][0]][line[2][1]]
		if m1 != EmptyMark && m1 == m2 && m2 == m3 {
			return m1
		}
	}
	return EmptyMark
}

func IsTerminal(s State) bool {
	return Winner(s) != EmptyMark || s.Board.IsFull()
}

type Result int

const (
	None Result = iota
	Win
	Loss
	Draw
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	default:
		return "none"
	}
}

// OutcomeFor classifies s from agent's point of view. A completed line takes precedence
// over a full board.
//
// OutcomeForは、agentから見たsの結果を返します。盤面が埋まっていても勝利判定が優先されます。
func OutcomeFor(s State, agent Mark) Result {
	switch w := Winner(s); {
	case w == agent:
		return Win
	case w != EmptyMark:
		return Loss
	case s.Board.IsFull():
		return Draw
	}
	return None
}

// LegalMoves returns all available moves in row-major order. It is empty for terminal states.
//
// LegalMovesは、現在の状態から可能な全ての合法手を行優先の順で返します。
func LegalMoves(s State) []Move {
	if IsTerminal(s) {
		return nil
	}
	turn := s.Turn()
	moves := make([]Move, 0, Cells)
	for i, row := range s.Board {
		for j, mark := range row {
			if mark == EmptyMark {
				moves = append(moves, Move{Mark: turn, Row: i, Col: j})
			}
		}
	}
	return moves
}

// Apply places move on a copy of s.
//
// Applyは、sのコピーに行動を適用し、次の状態を返します。
func Apply(s State, move Move) (State, error) {
	if IsTerminal(s) {
		return State{}, ErrGameOver
	}

	if move.Row < 0 || move.Row >= Rows || move.Col < 0 || move.Col >= Cols {
		return State{}, fmt.Errorf("%w: %v", ErrOutOfBounds, move)
	}

	if turn := s.Turn(); move.Mark != turn {
		return State{}, fmt.Errorf("%w: move=%v turn=%v", ErrNotYourTurn, move, turn)
	}

	if s.Board[move.Row][move.Col] != EmptyMark {
		return State{}, fmt.Errorf("%w: %v", ErrCellOccupied, move)
	}

	next := s
	next.Board[move.Row][move.Col] = move.Mark
	return next, nil
}

// IsLegal reports whether move can be applied to s.
func IsLegal(s State, move Move) bool {
	_, err := Apply(s, move)
	return err == nil
}

// completesLine reports whether mark placed at (row, col) would complete a line.
func completesLine(b Board, mark Mark, row, col int) bool {
	if b[row][col] != EmptyMark {
		return false
	}
	b[row][col] = mark
	return Winner(State{Board: b}) == mark
}
