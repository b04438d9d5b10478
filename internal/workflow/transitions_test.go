package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/tableside/internal/domain"
)

func TestCanTransitionAllowedEdges(t *testing.T) {
	allowed := map[domain.Status][]domain.Status{
		domain.StatusPending:        {domain.StatusConfirmed, domain.StatusCancelled},
		domain.StatusConfirmed:      {domain.StatusPreparing, domain.StatusCancelled},
		domain.StatusPreparing:      {domain.StatusReady},
		domain.StatusReady:          {domain.StatusOutForDelivery, domain.StatusCompleted},
		domain.StatusOutForDelivery: {domain.StatusCompleted},
	}

	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	for _, terminal := range []domain.Status{domain.StatusCompleted, domain.StatusCancelled, domain.StatusRefunded} {
		assert.True(t, IsTerminal(terminal))
		assert.Empty(t, Next(terminal))
		for _, to := range domain.Statuses {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestKnownEdges(t *testing.T) {
	assert.True(t, CanTransition(domain.StatusPending, domain.StatusConfirmed))
	assert.False(t, CanTransition(domain.StatusPending, domain.StatusReady))
	assert.False(t, CanTransition(domain.StatusPreparing, domain.StatusCancelled))
	assert.False(t, CanTransition(domain.Status("UNKNOWN"), domain.StatusPending))
	assert.Equal(t, domain.StatusPending, Initial)
}

func TestNextReturnsCopy(t *testing.T) {
	next := Next(domain.StatusPending)
	next[0] = domain.StatusRefunded

	assert.True(t, CanTransition(domain.StatusPending, domain.StatusConfirmed))
	assert.False(t, CanTransition(domain.StatusPending, domain.StatusRefunded))
}
