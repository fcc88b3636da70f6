package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// queueWorker mimics the notification worker: it handles queued events until
// its context ends and then drains the queue.
type queueWorker struct {
	queue   chan string
	mu      sync.Mutex
	handled []string
}

func (w *queueWorker) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-w.queue:
			w.record(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-w.queue:
					w.record(ev)
				default:
					return nil
				}
			}
		}
	}
}

func (w *queueWorker) record(ev string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handled = append(w.handled, ev)
}

func (w *queueWorker) events() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.handled...)
}

func TestServeHandlesEventsPublishedDuringShutdown(t *testing.T) {
	bg := &queueWorker{queue: make(chan string, 4)}
	entered := make(chan struct{})
	release := make(chan struct{})

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/slow", func(c *fiber.Ctx) error {
		close(entered)
		<-release
		bg.queue <- "ticket.created"
		return c.SendStatus(fiber.StatusCreated)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- serve(ctx, app, ln, bg, zap.NewNop()) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/slow", "application/json", nil)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-entered
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.Equal(t, fiber.StatusCreated, <-status)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
	assert.Equal(t, []string{"ticket.created"}, bg.events())
}
