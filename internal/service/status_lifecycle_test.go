package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/legal-intake/internal/domain"
)

func TestStatusTransitions(t *testing.T) {
	const (
		n = domain.TicketStatusNew
		o = domain.TicketStatusOpen
		c = domain.TicketStatusClosed
	)
	cases := []struct {
		from, to domain.TicketStatus
		ok       bool
	}{
		{n, o, true},
		{n, c, true},
		{o, c, true},
		{c, o, true},
		{o, n, false},
		{c, n, false},
		{n, "Pending", false},
		{"Pending", o, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, isValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.ElementsMatch(t, []domain.TicketStatus{o, c}, AllowedTransitions(n))
	assert.Empty(t, AllowedTransitions("Pending"))
}
