package task

import (
	"fmt"

	"github.com/otis-tran/demo-service/internal/domain"
)

// Condition is an external precondition delivered by the host.
type Condition string

// Known conditions
const (
	// ConditionNetworkConnected holds while network connectivity is present.
	ConditionNetworkConnected Condition = "network_connected"
)

// ParseCondition validates a condition name.
func ParseCondition(name string) (Condition, error) {
	switch c := Condition(name); c {
	case ConditionNetworkConnected:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown condition %q", domain.ErrValidation, name)
	}
}

// Constraints is the set of conditions that must all hold before a task runs.
// An empty set is always satisfied.
type Constraints []Condition

// RequireNetwork returns constraints gated on network connectivity.
func RequireNetwork() Constraints {
	return Constraints{ConditionNetworkConnected}
}

// SatisfiedBy reports whether every condition is true in state.
func (c Constraints) SatisfiedBy(state map[Condition]bool) bool {
	for _, cond := range c {
		if !state[cond] {
			return false
		}
	}
	return true
}
