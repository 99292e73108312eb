package shared

import (
	"errors"
	"net/http"

	"github.com/packtrack/packtrack/internal/ledger"
	"github.com/packtrack/packtrack/internal/platform/httpx"
)

// RespondWorkflowError maps the document workflow error taxonomy onto HTTP.
// All three workflows reject the same way, so the mapping lives here once.
// Shortage lists ride along as structured extra data for form rendering.
func RespondWorkflowError(w http.ResponseWriter, err error) {
	var insufficient *ledger.InsufficientStockError
	var dup *ledger.DuplicateLineError
	var noBOM *ledger.BOMNotFoundError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWith(w, http.StatusUnprocessableEntity, "Insufficient Stock", insufficient.Error(),
			map[string]any{"shortages": insufficient.Shortages})
	case errors.As(err, &dup):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Duplicate Line", dup.Error())
	case errors.As(err, &noBOM):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Bill of Materials", noBOM.Error())
	case errors.Is(err, ErrDuplicateDocument):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", ledger.ErrPersistence.Error())
	}
}
