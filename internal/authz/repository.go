package authz

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strata-iam/strata/internal/events"
	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/platform/db"
)

// Repository persists role state. Each mutation writes its table change and
// the event row recording it inside one serializable transaction.
type Repository interface {
	Load(ctx context.Context) (State, error)
	SaveAssignment(ctx context.Context, account hierarchy.Account, role hierarchy.Role, evt events.Event) error
	ClearAssignment(ctx context.Context, account hierarchy.Account, evt events.Event) error
	SaveLevel(ctx context.Context, role hierarchy.Role, level hierarchy.Level, evt events.Event) error
	SaveOwner(ctx context.Context, prev, next hierarchy.Account, ownerRole hierarchy.Role, evt events.Event) error
	SeedOwner(ctx context.Context, owner hierarchy.Account, ownerRole hierarchy.Role, level hierarchy.Level) error
}

// PGRepository implements Repository using PostgreSQL. Tables carry the
// strata_ prefix so the module's keyspace stays isolated from anything else
// sharing the database.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load reads the whole durable state. An empty owner slot means the module
// has never been bootstrapped.
func (r *PGRepository) Load(ctx context.Context) (State, error) {
	state := State{
		Levels:      make(map[hierarchy.Role]hierarchy.Level),
		Assignments: make(map[hierarchy.Account]hierarchy.Role),
	}

	rows, err := r.pool.Query(ctx, `SELECT role, level FROM strata_role_levels`)
	if err != nil {
		return State{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var level int64
		if err := rows.Scan(&role, &level); err != nil {
			return State{}, err
		}
		state.Levels[hierarchy.Role(role)] = hierarchy.Level(level)
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}

	rows, err = r.pool.Query(ctx, `SELECT account, role FROM strata_assignments`)
	if err != nil {
		return State{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var account, role string
		if err := rows.Scan(&account, &role); err != nil {
			return State{}, err
		}
		state.Assignments[hierarchy.Account(account)] = hierarchy.Role(role)
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}

	var owner string
	err = r.pool.QueryRow(ctx, `SELECT owner FROM strata_owner WHERE singleton`).Scan(&owner)
	if err != nil && err != pgx.ErrNoRows {
		return State{}, err
	}
	state.Owner = hierarchy.Account(owner)
	return state, nil
}

// SaveAssignment upserts account's role and records evt.
func (r *PGRepository) SaveAssignment(ctx context.Context, account hierarchy.Account, role hierarchy.Role, evt events.Event) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO strata_assignments (account, role) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET role = EXCLUDED.role`,
			string(account), string(role),
		)
		if err != nil {
			return err
		}
		return insertEvent(ctx, tx, evt)
	})
}

// ClearAssignment deletes account's assignment and records evt.
func (r *PGRepository) ClearAssignment(ctx context.Context, account hierarchy.Account, evt events.Event) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM strata_assignments WHERE account = $1`, string(account)); err != nil {
			return err
		}
		return insertEvent(ctx, tx, evt)
	})
}

// SaveLevel upserts role's level and records evt.
func (r *PGRepository) SaveLevel(ctx context.Context, role hierarchy.Role, level hierarchy.Level, evt events.Event) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO strata_role_levels (role, level) VALUES ($1, $2)
			 ON CONFLICT (role) DO UPDATE SET level = EXCLUDED.level`,
			string(role), int64(level),
		)
		if err != nil {
			return err
		}
		return insertEvent(ctx, tx, evt)
	})
}

// SaveOwner moves the owner assignment and slot in one transaction so the
// durable image never shows zero or two owners either.
func (r *PGRepository) SaveOwner(ctx context.Context, prev, next hierarchy.Account, ownerRole hierarchy.Role, evt events.Event) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM strata_assignments WHERE account = $1`, string(prev)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO strata_assignments (account, role) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET role = EXCLUDED.role`,
			string(next), string(ownerRole),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE strata_owner SET owner = $1 WHERE singleton`, string(next),
		); err != nil {
			return err
		}
		return insertEvent(ctx, tx, evt)
	})
}

// SeedOwner writes the first-boot owner: level row, assignment and slot.
func (r *PGRepository) SeedOwner(ctx context.Context, owner hierarchy.Account, ownerRole hierarchy.Role, level hierarchy.Level) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO strata_role_levels (role, level) VALUES ($1, $2)
			 ON CONFLICT (role) DO UPDATE SET level = EXCLUDED.level`,
			string(ownerRole), int64(level),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO strata_assignments (account, role) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET role = EXCLUDED.role`,
			string(owner), string(ownerRole),
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO strata_owner (singleton, owner) VALUES (TRUE, $1)
			 ON CONFLICT (singleton) DO UPDATE SET owner = EXCLUDED.owner`,
			string(owner),
		)
		return err
	})
}

func insertEvent(ctx context.Context, tx pgx.Tx, evt events.Event) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO strata_events (id, kind, role, account, actor, level, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		evt.ID, string(evt.Kind), evt.Role, evt.Account, evt.Actor, int64(evt.Level), evt.At,
	)
	return err
}

var _ Repository = (*PGRepository)(nil)
