package accounts

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/strata-iam/strata/internal/platform/httpx"
	"github.com/strata-iam/strata/internal/shared"
)

// Middleware resolves the Bearer credential token into the caller account
// and stores it in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid credential token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		account, err := m.Service.Verify(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("credential rejected", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), account)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
