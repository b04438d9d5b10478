// Package workflow holds the order status state machine.
package workflow

import "github.com/Additional-Code/tableside/internal/domain"

// transitions maps each status to the statuses it may move to. It is never
// mutated after package initialisation.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:        {domain.StatusConfirmed, domain.StatusCancelled},
	domain.StatusConfirmed:      {domain.StatusPreparing, domain.StatusCancelled},
	domain.StatusPreparing:      {domain.StatusReady},
	domain.StatusReady:          {domain.StatusOutForDelivery, domain.StatusCompleted},
	domain.StatusOutForDelivery: {domain.StatusCompleted},
	domain.StatusCompleted:      {},
	domain.StatusCancelled:      {},
	domain.StatusRefunded:       {},
}

// Initial is the status every order starts in.
const Initial = domain.StatusPending

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to domain.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns a copy of the statuses reachable from the given status.
func Next(from domain.Status) []domain.Status {
	allowed := transitions[from]
	out := make([]domain.Status, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(s domain.Status) bool {
	return len(transitions[s]) == 0
}
