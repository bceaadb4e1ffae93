package accounts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/shared"
)

const cacheKeyPrefix = "strata:credtok:"

// Service issues and verifies credentials. Verification results are cached
// in Redis so the bcrypt compare runs once per token per TTL, and concurrent
// verifications of the same token are collapsed with singleflight.
type Service struct {
	repo     Repository
	redis    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewService constructs a Service. redisClient may be nil, which disables
// the verification cache.
func NewService(repo Repository, redisClient *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, redis: redisClient, cacheTTL: cacheTTL}
}

// Issue creates a credential for account and returns the one-time-visible
// bearer token. Only the secret's bcrypt hash is stored.
func (s *Service) Issue(ctx context.Context, account hierarchy.Account) (string, Credential, error) {
	return s.issue(ctx, account, uuid.NewString())
}

// IssueWithSecret creates a credential with a caller-provided secret. Used
// once at bootstrap, when the operator supplies the initial owner secret via
// configuration.
func (s *Service) IssueWithSecret(ctx context.Context, account hierarchy.Account, secret string) (string, Credential, error) {
	return s.issue(ctx, account, secret)
}

func (s *Service) issue(ctx context.Context, account hierarchy.Account, secret string) (string, Credential, error) {
	if account == hierarchy.AccountNone {
		return "", Credential{}, hierarchy.ErrInvalidAccount
	}
	if secret == "" {
		return "", Credential{}, fmt.Errorf("accounts: empty secret")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", Credential{}, err
	}
	cred := Credential{
		ID:         uuid.NewString(),
		Account:    account,
		SecretHash: string(hash),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, cred); err != nil {
		return "", Credential{}, err
	}
	return cred.ID + "." + secret, cred, nil
}

// Verify resolves a bearer token to its account. Any failure (malformed
// token, unknown credential, revoked credential, secret mismatch) comes
// back as shared.ErrUnauthenticated so the response does not leak which
// check failed.
func (s *Service) Verify(ctx context.Context, token string) (hierarchy.Account, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return hierarchy.AccountNone, shared.ErrUnauthenticated
	}

	key := cacheKey(token)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil && cached != "" {
			return hierarchy.Account(cached), nil
		}
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		cred, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, shared.ErrUnauthenticated
		}
		if cred.Revoked() {
			return nil, shared.ErrUnauthenticated
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
			return nil, shared.ErrUnauthenticated
		}
		if s.redis != nil {
			// Revocations take effect within the cache TTL at the latest.
			_ = s.redis.Set(ctx, key, string(cred.Account), s.cacheTTL).Err()
		}
		return cred.Account, nil
	})
	if err != nil {
		return hierarchy.AccountNone, err
	}
	return result.(hierarchy.Account), nil
}

// Revoke disables a credential.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.repo.Revoke(ctx, id)
}

// HasActiveCredential reports whether account holds any unrevoked
// credential.
func (s *Service) HasActiveCredential(ctx context.Context, account hierarchy.Account) (bool, error) {
	n, err := s.repo.CountActiveForAccount(ctx, account)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
