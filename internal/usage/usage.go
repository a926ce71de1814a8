// Package usage aggregates resource usage across delegated tasks and keeps
// the session ledger of everything spent.
package usage

import (
	"fmt"
	"strings"

	"github.com/wagiedev/subagent-go/internal/message"
	"github.com/wagiedev/subagent-go/internal/task"
)

// Sum returns the component-wise total of the states' usage.
func Sum(states []task.State) message.Usage {
	var total message.Usage

	for i := range states {
		total.Add(states[i].Usage)
	}

	return total
}

// Format renders u compactly, e.g. "3 turns ↑1.2k ↓300 R5k W1k $0.0123".
// Zero components are omitted.
func Format(u message.Usage) string {
	parts := make([]string, 0, 6)

	if u.Turns > 0 {
		unit := "turns"
		if u.Turns == 1 {
			unit = "turn"
		}

		parts = append(parts, fmt.Sprintf("%d %s", u.Turns, unit))
	}

	if u.Input > 0 {
		parts = append(parts, "↑"+formatTokens(u.Input))
	}

	if u.Output > 0 {
		parts = append(parts, "↓"+formatTokens(u.Output))
	}

	if u.CacheRead > 0 {
		parts = append(parts, "R"+formatTokens(u.CacheRead))
	}

	if u.CacheWrite > 0 {
		parts = append(parts, "W"+formatTokens(u.CacheWrite))
	}

	if u.Cost > 0 {
		parts = append(parts, fmt.Sprintf("$%.4f", u.Cost))
	}

	return strings.Join(parts, " ")
}

func formatTokens(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 10_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1000)) + "k"
	case n < 1_000_000:
		return fmt.Sprintf("%dk", (n+500)/1000)
	default:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}
