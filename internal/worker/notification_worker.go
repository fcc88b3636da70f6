package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/legal-intake/internal/events"
	"github.com/spec-kit/legal-intake/internal/service"
)

const defaultQueueSize = 256

// NotificationWorker moves notification delivery off the request path.
// Events are queued by the dispatcher and handled by Run; when the queue is
// full the event is dropped and logged.
type NotificationWorker struct {
	notifications *service.NotificationService
	queue         chan events.Event
	logger        *zap.Logger
}

// NewNotificationWorker subscribes the worker to every notification event.
func NewNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{
		notifications: notifications,
		queue:         make(chan events.Event, queueSize),
		logger:        logger,
	}
	for _, eventType := range notifications.EventTypes() {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Run handles queued events until ctx is done, then drains what is left.
func (w *NotificationWorker) Run(ctx context.Context) error {
	for {
		select {
		case event := <-w.queue:
			w.handle(ctx, event)
		case <-ctx.Done():
			w.drain()
			return nil
		}
	}
}

func (w *NotificationWorker) drain() {
	ctx := context.Background()
	for {
		select {
		case event := <-w.queue:
			w.handle(ctx, event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) handle(ctx context.Context, event events.Event) {
	if err := w.notifications.Handle(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
