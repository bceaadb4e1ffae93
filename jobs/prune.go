package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultEventRetention keeps the timeline bounded when no override is set.
const DefaultEventRetention = 90 * 24 * time.Hour

// Pruner deletes timeline rows older than the retention window.
type Pruner struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPruner constructs a Pruner.
func NewPruner(pool *pgxpool.Pool, logger *slog.Logger) *Pruner {
	return &Pruner{pool: pool, logger: logger}
}

// HandlePruneEvents processes TaskTypePruneEvents tasks.
func (p *Pruner) HandlePruneEvents(ctx context.Context, t *asynq.Task) error {
	var payload PruneEventsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.OlderThan
	if retention <= 0 {
		retention = DefaultEventRetention
	}
	cutoff := time.Now().Add(-retention)
	tag, err := p.pool.Exec(ctx, `DELETE FROM strata_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return err
	}
	p.logger.Info("pruned timeline events",
		slog.Int64("deleted", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}
