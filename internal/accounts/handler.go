package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/platform/httpx"
	"github.com/strata-iam/strata/internal/shared"
)

// OwnerChecker gates credential management to the current owner.
type OwnerChecker interface {
	IsOwner(account hierarchy.Account) bool
	OwnerRole() hierarchy.Role
}

// Handler manages credential endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	owners   OwnerChecker
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, owners OwnerChecker) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		owners:   owners,
		validate: validator.New(),
	}
}

// MountRoutes registers credential routes. Callers are already
// authenticated by the credential middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.issue)
	r.Delete("/{id}", h.revoke)
}

type issueRequest struct {
	Account string `json:"account" validate:"required,min=1,max=200"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	caller := shared.CallerFromContext(r.Context())
	if !h.owners.IsOwner(caller) {
		httpx.RespondError(w, &hierarchy.UnauthorizedError{Account: caller, Role: h.owners.OwnerRole()})
		return
	}

	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	token, cred, err := h.service.Issue(r.Context(), hierarchy.Account(req.Account))
	if err != nil {
		h.logger.Error("issue credential", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":      cred.ID,
		"account": string(cred.Account),
		"token":   token,
	})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	caller := shared.CallerFromContext(r.Context())
	if !h.owners.IsOwner(caller) {
		httpx.RespondError(w, &hierarchy.UnauthorizedError{Account: caller, Role: h.owners.OwnerRole()})
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Revoke(r.Context(), id); err != nil {
		h.logger.Error("revoke credential", slog.Any("error", err), slog.String("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked": id})
}
