package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/platform/httpx"
	"github.com/strata-iam/strata/internal/shared"
)

// Handler exposes the authorization operations over HTTP. The caller
// identity comes from the credential middleware; the subject of each
// operation comes from the request.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/roles/{role}", h.roleLevel)
	r.Put("/roles/{role}/level", h.setLevel)
	r.Post("/roles/{role}/grant", h.grant)
	r.Post("/roles/{role}/revoke", h.revoke)
	r.Post("/roles/{role}/renounce", h.renounce)
	r.Get("/accounts/{account}", h.accountRole)
	r.Get("/owner", h.owner)
	r.Post("/owner/transfer", h.transfer)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !h.decode(w, r, &req) {
		return
	}
	allowed := h.service.Check(hierarchy.Role(req.Role), hierarchy.Account(req.Account))
	httpx.JSON(w, http.StatusOK, map[string]any{"allowed": allowed})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.CallerFromContext(r.Context())
	role := hierarchy.Role(chi.URLParam(r, "role"))
	changed, err := h.service.Grant(r.Context(), caller, role, hierarchy.Account(req.Account))
	if err != nil {
		h.respondError(w, "grant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"changed": changed})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.CallerFromContext(r.Context())
	role := hierarchy.Role(chi.URLParam(r, "role"))
	changed, err := h.service.Revoke(r.Context(), caller, role, hierarchy.Account(req.Account))
	if err != nil {
		h.respondError(w, "revoke", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"changed": changed})
}

func (h *Handler) renounce(w http.ResponseWriter, r *http.Request) {
	var req renounceRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.CallerFromContext(r.Context())
	role := hierarchy.Role(chi.URLParam(r, "role"))
	changed, err := h.service.Renounce(r.Context(), caller, role, hierarchy.Account(req.ConfirmAccount))
	if err != nil {
		h.respondError(w, "renounce", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"changed": changed})
}

func (h *Handler) setLevel(w http.ResponseWriter, r *http.Request) {
	var req setLevelRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.CallerFromContext(r.Context())
	role := hierarchy.Role(chi.URLParam(r, "role"))
	if err := h.service.SetLevel(r.Context(), caller, role, hierarchy.Level(req.Level)); err != nil {
		h.respondError(w, "set level", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": string(role), "level": req.Level})
}

func (h *Handler) roleLevel(w http.ResponseWriter, r *http.Request) {
	role := hierarchy.Role(chi.URLParam(r, "role"))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":  string(role),
		"level": uint32(h.service.RoleLevel(role)),
	})
}

func (h *Handler) accountRole(w http.ResponseWriter, r *http.Request) {
	account := hierarchy.Account(chi.URLParam(r, "account"))
	role := h.service.AccountRole(account)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account": string(account),
		"role":    string(role),
		"level":   uint32(h.service.RoleLevel(role)),
	})
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"owner": string(h.service.Owner())})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}
	caller := shared.CallerFromContext(r.Context())
	if err := h.service.Transfer(r.Context(), caller, hierarchy.Account(req.NewOwner)); err != nil {
		h.respondError(w, "transfer ownership", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"owner": req.NewOwner})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if !hierarchy.IsUnauthorized(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
