package accounts

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/shared"
)

type stubOwners struct {
	owner hierarchy.Account
}

func (s stubOwners) IsOwner(account hierarchy.Account) bool {
	return account != hierarchy.AccountNone && account == s.owner
}

func (s stubOwners) OwnerRole() hierarchy.Role { return "owner" }

func newHandlerRouter(t *testing.T) (http.Handler, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	svc := newTestService(t, repo)
	h := NewHandler(slog.Default(), svc, stubOwners{owner: "acct-owner"})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			caller := hierarchy.Account(req.Header.Get("X-Test-Caller"))
			next.ServeHTTP(w, req.WithContext(shared.ContextWithCaller(req.Context(), caller)))
		})
	})
	r.Route("/v1/credentials", h.MountRoutes)
	return r, repo
}

func TestIssueRequiresOwner(t *testing.T) {
	router, repo := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(`{"account":"acct-user"}`))
	req.Header.Set("X-Test-Caller", "acct-user")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, repo.creds)
}

func TestIssueReturnsToken(t *testing.T) {
	router, repo := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(`{"account":"acct-user"}`))
	req.Header.Set("X-Test-Caller", "acct-owner")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "acct-user", body["account"])
	token, _ := body["token"].(string)
	id, _ := body["id"].(string)
	assert.True(t, strings.HasPrefix(token, id+"."))
	assert.Len(t, repo.creds, 1)
}

func TestRevokeRequiresOwner(t *testing.T) {
	router, _ := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/credentials/some-id", nil)
	req.Header.Set("X-Test-Caller", "acct-user")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestIssueRejectsEmptyAccount(t *testing.T) {
	router, _ := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/credentials", strings.NewReader(`{"account":""}`))
	req.Header.Set("X-Test-Caller", "acct-owner")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}
