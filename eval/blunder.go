package eval

import (
	"slices"

	ttt "github.com/sw965/tttmdp/game/tictactoe"
	"github.com/sw965/tttmdp/solver"
)

// IsBlunder reports whether playing move in state leaves the opponent an immediate win.
func IsBlunder(state ttt.State, move ttt.Move) bool {
	mid, err := ttt.Apply(state, move)
	if err != nil || ttt.IsTerminal(mid) {
		return false
	}
	return len(ttt.WinningMoves(mid)) != 0
}

// AllowsForcedWin reports whether playing move in state lets the opponent force a win within
// its next two plies: it wins at once, or it has a reply after which the agent cannot win
// immediately and every agent move leaves it an immediate win.
//
// AllowsForcedWinは、相手が次の2手以内に勝ちを強制できる手かどうかを判定します。
func AllowsForcedWin(state ttt.State, move ttt.Move) bool {
	mid, err := ttt.Apply(state, move)
	if err != nil || ttt.IsTerminal(mid) {
		return false
	}
	if len(ttt.WinningMoves(mid)) != 0 {
		return true
	}

	for _, reply := range ttt.LegalMoves(mid) {
		next, err := ttt.Apply(mid, reply)
		if err != nil || ttt.IsTerminal(next) || len(ttt.WinningMoves(next)) != 0 {
			continue
		}
		lost := true
		for _, m := range ttt.LegalMoves(next) {
			if !IsBlunder(next, m) {
				lost = false
				break
			}
		}
		if lost {
			return true
		}
	}
	return false
}

func avoidable(states []ttt.State, bad func(ttt.State, ttt.Move) bool) []ttt.State {
	var out []ttt.State
	for _, s := range states {
		found, safe := false, false
		for _, m := range ttt.LegalMoves(s) {
			if bad(s, m) {
				found = true
			} else {
				safe = true
			}
		}
		if found && safe {
			out = append(out, s)
		}
	}
	return out
}

func picked(policy solver.Policy, states []ttt.State, bad func(ttt.State, ttt.Move) bool) []ttt.State {
	var out []ttt.State
	for _, s := range avoidable(states, bad) {
		m, ok := policy[s]
		if ok && bad(s, m) {
			out = append(out, s)
		}
	}
	return out
}

// Avoidable returns the states among states that have both a blunder and a safe move.
//
// Avoidableは、悪手と安全な手の両方が存在する状態を返します。
func Avoidable(states []ttt.State) []ttt.State {
	return avoidable(states, IsBlunder)
}

// Blunders returns the avoidable states among states in which policy plays a blunder.
// States without a policy entry are skipped.
func Blunders(policy solver.Policy, states []ttt.State) []ttt.State {
	return picked(policy, states, IsBlunder)
}

// AvoidableForcedWins returns the states among states that have both a move allowing a forced
// win and a move that does not.
func AvoidableForcedWins(states []ttt.State) []ttt.State {
	return avoidable(states, AllowsForcedWin)
}

// ForcedLosses is Blunders with AllowsForcedWin in place of IsBlunder.
func ForcedLosses(policy solver.Policy, states []ttt.State) []ttt.State {
	return picked(policy, states, AllowsForcedWin)
}

// Reachable returns the decision states reached when agent follows policy from its initial
// states and the opponent may play any legal reply, sorted by key.
func Reachable(policy solver.Policy, agent ttt.Mark) ([]ttt.State, error) {
	roots, err := ttt.InitialStates(agent)
	if err != nil {
		return nil, err
	}

	seen := map[ttt.State]struct{}{}
	stack := slices.Clone(roots)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[s]; ok || ttt.IsTerminal(s) {
			continue
		}
		seen[s] = struct{}{}

		move, err := policy.Act(s)
		if err != nil {
			return nil, err
		}
		mid, err := ttt.Apply(s, move)
		if err != nil {
			return nil, err
		}
		for _, reply := range ttt.LegalMoves(mid) {
			next, err := ttt.Apply(mid, reply)
			if err != nil {
				return nil, err
			}
			stack = append(stack, next)
		}
	}

	states := make([]ttt.State, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	slices.SortFunc(states, func(a, b ttt.State) int { return a.Key() - b.Key() })
	return states, nil
}
