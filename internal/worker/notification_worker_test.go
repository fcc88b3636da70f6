package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/legal-intake/internal/config"
	"github.com/spec-kit/legal-intake/internal/events"
	"github.com/spec-kit/legal-intake/internal/service"
)

func TestNotificationWorkerHandlesQueuedEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications := service.NewNotificationService(logger, config.NotificationConfig{})
	worker := NewNotificationWorker(dispatcher, notifications, 4, logger)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketReplied,
		TicketID: "12",
		Payload:  events.TicketRepliedPayload{OwnerID: "u1", LawyerID: "l1"},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("TicketReplied").Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	entry := logs.FilterMessage("TicketReplied").All()[0]
	assert.Equal(t, "u1", entry.ContextMap()["owner_id"])
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	dispatcher := events.NewInMemoryDispatcher(logger)
	NewNotificationWorker(dispatcher, service.NewNotificationService(logger, config.NotificationConfig{}), 1, logger)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "1"}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketID: "2"}))

	assert.Equal(t, 1, logs.FilterMessage("notification queue full; dropping event").Len())
}
