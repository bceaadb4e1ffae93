package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
)

// Deliverer posts recorded events to the configured webhook endpoints. A
// non-2xx response or transport error fails the task so Asynq retries it.
type Deliverer struct {
	client *http.Client
	urls   []string
	logger *slog.Logger
}

// NewDeliverer constructs a Deliverer.
func NewDeliverer(urls []string, timeout time.Duration, logger *slog.Logger) *Deliverer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Deliverer{
		client: &http.Client{Timeout: timeout},
		urls:   urls,
		logger: logger,
	}
}

// HandleDeliverEvent processes TaskTypeDeliverEvent tasks.
func (d *Deliverer) HandleDeliverEvent(ctx context.Context, t *asynq.Task) error {
	var payload DeliverEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	body, err := json.Marshal(payload.Event)
	if err != nil {
		return asynq.SkipRetry
	}

	var failed []string
	for _, url := range d.urls {
		if err := d.post(ctx, url, body); err != nil {
			d.logger.Warn("webhook delivery failed",
				slog.String("url", url),
				slog.String("event", payload.Event.ID),
				slog.Any("error", err),
			)
			failed = append(failed, url)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("deliver event %s: %d of %d endpoints failed", payload.Event.ID, len(failed), len(d.urls))
	}
	return nil
}

func (d *Deliverer) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", res.StatusCode)
	}
	return nil
}
