package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads the recorded event log. Writes happen inside the authz
// repository's mutation transactions; this side only queries.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineColumns = "id, kind, role, account, actor, level, occurred_at"

func timelineWhere(filters TimelineFilters) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From.UTC())
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To.UTC())
	}
	if filters.Actor != "" {
		add("actor = $%d", filters.Actor)
	}
	if filters.Role != "" {
		add("role = $%d", filters.Role)
	}
	if filters.Kind != "" {
		add("kind = $%d", filters.Kind)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// TimelineWindow returns events newest first within the given window.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Event, error) {
	where, args := timelineWhere(filters)
	query := fmt.Sprintf(
		"SELECT %s FROM strata_events%s ORDER BY occurred_at DESC, id DESC OFFSET $%d LIMIT $%d",
		timelineColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, offset, limit)
	return r.query(ctx, query, args)
}

// TimelineAll returns every matching event, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]Event, error) {
	where, args := timelineWhere(filters)
	query := fmt.Sprintf(
		"SELECT %s FROM strata_events%s ORDER BY occurred_at DESC, id DESC",
		timelineColumns, where,
	)
	return r.query(ctx, query, args)
}

func (r *PGRepository) query(ctx context.Context, query string, args []any) ([]Event, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var evt Event
		var level int64
		var at time.Time
		if err := rows.Scan(&evt.ID, &evt.Kind, &evt.Role, &evt.Account, &evt.Actor, &level, &at); err != nil {
			return nil, err
		}
		evt.Level = uint32(level)
		evt.At = at.UTC()
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Repository = (*PGRepository)(nil)
