package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []string

	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketReplied, func(context.Context, Event) error {
		got = append(got, "replied")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "7"}))
	assert.Equal(t, []string{"first:7", "second:7"}, got)
}
