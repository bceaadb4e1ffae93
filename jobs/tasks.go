package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/strata-iam/strata/internal/events"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDeliverEvent is the task type for webhook event delivery.
	TaskTypeDeliverEvent = "events:deliver"
	// TaskTypePruneEvents is the task type for timeline retention cleanup.
	TaskTypePruneEvents = "events:prune"
)

// DeliverEventPayload carries one recorded event to the webhook deliverer.
type DeliverEventPayload struct {
	Event events.Event `json:"event"`
}

// PruneEventsPayload bounds the retention sweep.
type PruneEventsPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewDeliverEventTask constructs an Asynq task for one event.
func NewDeliverEventTask(evt events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(DeliverEventPayload{Event: evt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDeliverEvent, data, asynq.MaxRetry(5)), nil
}

// NewPruneEventsTask constructs the retention sweep task.
func NewPruneEventsTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PruneEventsPayload{OlderThan: olderThan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePruneEvents, data), nil
}
