package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/strata-iam/strata/internal/events"
)

// Dispatcher enqueues recorded events for webhook fan-out. It satisfies the
// authorization service's dispatcher contract: the mutation has already
// committed, so enqueue failures are logged rather than surfaced.
type Dispatcher struct {
	client *Client
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(client *Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

// Dispatch enqueues one delivery task for evt.
func (d *Dispatcher) Dispatch(ctx context.Context, evt events.Event) {
	if d == nil || d.client == nil {
		return
	}
	task, err := NewDeliverEventTask(evt)
	if err != nil {
		d.logger.Error("build delivery task", slog.Any("error", err))
		return
	}
	if _, err := d.client.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		d.logger.Error("enqueue event delivery",
			slog.String("event", evt.ID),
			slog.Any("error", err),
		)
	}
}
