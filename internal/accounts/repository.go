package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/shared"
)

// Repository defines persistence operations for credentials.
type Repository interface {
	Create(ctx context.Context, cred Credential) error
	Get(ctx context.Context, id string) (*Credential, error)
	Revoke(ctx context.Context, id string) error
	CountActiveForAccount(ctx context.Context, account hierarchy.Account) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const uniqueViolation = "23505"

// Create inserts a credential. A duplicate ID maps to shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, cred Credential) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO strata_credentials (id, account, secret_hash, created_at) VALUES ($1, $2, $3, $4)`,
		cred.ID, string(cred.Account), cred.SecretHash, cred.CreatedAt.UTC(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrDuplicate
	}
	return err
}

// Get fetches a credential by ID.
func (r *PGRepository) Get(ctx context.Context, id string) (*Credential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, account, secret_hash, created_at, revoked_at FROM strata_credentials WHERE id = $1`,
		id,
	)
	var cred Credential
	var account string
	var revokedAt *time.Time
	if err := row.Scan(&cred.ID, &account, &cred.SecretHash, &cred.CreatedAt, &revokedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	cred.Account = hierarchy.Account(account)
	cred.RevokedAt = revokedAt
	return &cred, nil
}

// Revoke marks a credential revoked. Revoking twice is a no-op.
func (r *PGRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE strata_credentials SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already revoked.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// CountActiveForAccount returns the number of unrevoked credentials bound to
// account. Bootstrap uses it to decide whether to mint the initial owner
// credential.
func (r *PGRepository) CountActiveForAccount(ctx context.Context, account hierarchy.Account) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM strata_credentials WHERE account = $1 AND revoked_at IS NULL`,
		string(account),
	).Scan(&n)
	return n, err
}

var _ Repository = (*PGRepository)(nil)
