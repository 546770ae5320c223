package tictactoe

import (
	"cmp"
	"fmt"
	"slices"
)

// EnumerateStates returns every reachable state in which it is agent's turn, together with
// every reachable terminal state. Each board appears once regardless of the move order that
// produced it. States are ordered deepest first, then by key, which puts every successor
// before the state it follows from.
//
// EnumerateStatesは、agentの手番である状態と終局状態を重複なく全て列挙します。
func EnumerateStates(agent Mark) ([]State, error) {
	if !agent.IsPlayer() {
		return nil, fmt.Errorf("%w: %v", ErrNotPlayerMark, agent)
	}

	seen := map[State]struct{}{}
	states := make([]State, 0, 4096)
	add := func(s State) bool {
		if _, ok := seen[s]; ok {
			return false
		}
		seen[s] = struct{}{}
		states = append(states, s)
		return true
	}

	var visit func(State) error
	visit = func(s State) error {
		for _, move := range LegalMoves(s) {
			mid, err := Apply(s, move)
			if err != nil {
				return err
			}
			if IsTerminal(mid) {
				add(mid)
				continue
			}
			for _, reply := range LegalMoves(mid) {
				next, err := Apply(mid, reply)
				if err != nil {
					return err
				}
				if add(next) && !IsTerminal(next) {
					if err := visit(next); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	roots, err := InitialStates(agent)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if add(root) {
			if err := visit(root); err != nil {
				return nil, err
			}
		}
	}

	slices.SortFunc(states, func(a, b State) int {
		if c := cmp.Compare(b.Filled(), a.Filled()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return states, nil
}

// InitialStates returns the positions in which agent makes its first decision:
// the empty board when agent opens, otherwise every position after the opening move.
func InitialStates(agent Mark) ([]State, error) {
	if !agent.IsPlayer() {
		return nil, fmt.Errorf("%w: %v", ErrNotPlayerMark, agent)
	}

	start := NewInitState()
	if agent == FirstMark {
		return []State{start}, nil
	}

	moves := LegalMoves(start)
	roots := make([]State, 0, len(moves))
	for _, move := range moves {
		next, err := Apply(start, move)
		if err != nil {
			return nil, err
		}
		roots = append(roots, next)
	}
	return roots, nil
}
