package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	ttt "github.com/sw965/tttmdp/game/tictactoe"
)

var (
	ErrNoPolicyEntry  = errors.New("no policy entry for state")
	ErrBadPolicyEntry = errors.New("policy entry is not a legal move for its state")
)

// Policy maps each non-terminal decision state to the move to play there.
//
// Policyは終局していない各状態で指す手を保持します。
type Policy map[ttt.State]ttt.Move

func (p Policy) Act(state ttt.State) (ttt.Move, error) {
	if ttt.IsTerminal(state) {
		return ttt.Move{}, fmt.Errorf("%w: %v is terminal", ErrNoPolicyEntry, state)
	}
	m, ok := p[state]
	if !ok {
		return ttt.Move{}, fmt.Errorf("%w: %v", ErrNoPolicyEntry, state)
	}
	return m, nil
}

func (p Policy) Equal(other Policy) bool {
	return maps.Equal(p, other)
}

// Validate checks that every entry is a legal move in a non-terminal state.
func (p Policy) Validate() error {
	for s, m := range p {
		if !ttt.IsLegal(s, m) {
			return fmt.Errorf("%w: state=%v move=%v", ErrBadPolicyEntry, s, m)
		}
	}
	return nil
}

// States returns the states with an entry, sorted by key.
func (p Policy) States() []ttt.State {
	states := slices.Collect(maps.Keys(p))
	slices.SortFunc(states, func(a, b ttt.State) int { return a.Key() - b.Key() })
	return states
}

type policyEntry struct {
	State string `json:"state"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
}

// MarshalJSON writes the entries sorted by state key. Terminal states never have entries.
func (p Policy) MarshalJSON() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entries := make([]policyEntry, 0, len(p))
	for _, s := range p.States() {
		m := p[s]
		entries = append(entries, policyEntry{State: s.String(), Row: m.Row, Col: m.Col})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON reads what MarshalJSON writes. The mark of each move is the side to move, and
// a state may appear only once.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var entries []policyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	policy := make(Policy, len(entries))
	for _, e := range entries {
		s, err := ttt.ParseState(strings.Split(e.State, "/")...)
		if err != nil {
			return err
		}
		m := ttt.Move{Mark: s.Turn(), Row: e.Row, Col: e.Col}
		if !ttt.IsLegal(s, m) {
			return fmt.Errorf("%w: state=%v move=%v", ErrBadPolicyEntry, s, m)
		}
		if _, ok := policy[s]; ok {
			return fmt.Errorf("%w: duplicate state=%v", ErrBadPolicyEntry, s)
		}
		policy[s] = m
	}
	*p = policy
	return nil
}
