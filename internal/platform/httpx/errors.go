package httpx

import (
	"errors"
	"net/http"

	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/ownership"
	"github.com/strata-iam/strata/internal/shared"
)

// RespondError maps the authorization error taxonomy to RFC7807 responses.
// Every denial carries the account and role that failed, so callers can act
// on the failure rather than guess at a generic 403.
func RespondError(w http.ResponseWriter, err error) {
	var ue *hierarchy.UnauthorizedError
	switch {
	case errors.As(err, &ue):
		Problem(w, http.StatusForbidden, "Unauthorized", ue.Error())
	case errors.Is(err, hierarchy.ErrBadConfirmation):
		Problem(w, http.StatusForbidden, "Bad Confirmation", err.Error())
	case errors.Is(err, hierarchy.ErrInvalidAccount),
		errors.Is(err, hierarchy.ErrInvalidRole),
		errors.Is(err, ownership.ErrTransferToZeroAccount),
		errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, hierarchy.ErrOwnerLevelImmutable),
		errors.Is(err, hierarchy.ErrLevelExceedsOwner),
		errors.Is(err, ownership.ErrOwnerRoleNotGrantable),
		errors.Is(err, ownership.ErrOwnerRoleNotRevocable),
		errors.Is(err, ownership.ErrTransferToSelf),
		errors.Is(err, ownership.ErrTransferInProgress):
		Problem(w, http.StatusConflict, "Ownership Invariant", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
