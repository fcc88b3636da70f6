package service

import "github.com/spec-kit/legal-intake/internal/domain"

// Closed may be reopened; it is terminal only for automatic processing.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:    {domain.TicketStatusOpen, domain.TicketStatusClosed},
	domain.TicketStatusOpen:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed: {domain.TicketStatusOpen},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from current.
func AllowedTransitions(current domain.TicketStatus) []domain.TicketStatus {
	return append([]domain.TicketStatus{}, allowedTransitions[current]...)
}
