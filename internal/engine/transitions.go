package engine

import (
	"fmt"

	"maintline/internal/domain"
)

var forwardEdges = map[domain.Status][]domain.Status{
	domain.StatusPending:    {domain.StatusInProgress, domain.StatusCompleted},
	domain.StatusInProgress: {domain.StatusCompleted},
}

// ensureStatusTransition accepts forward edges and same-status requests.
// Backward moves are accepted only when reopening is enabled.
func ensureStatusTransition(from, to domain.Status, allowReopen bool) error {
	if from.Rank() < 0 || to.Rank() < 0 {
		return fmt.Errorf("invalid status transition %s -> %s: %w", from, to, domain.ErrInvalidInput)
	}
	if from == to {
		return nil
	}
	for _, next := range forwardEdges[from] {
		if next == to {
			return nil
		}
	}
	if allowReopen && to.Rank() < from.Rank() {
		return nil
	}
	return fmt.Errorf("invalid status transition %s -> %s: %w", from, to, domain.ErrInvalidInput)
}
