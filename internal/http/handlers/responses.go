package handlers

import (
	"errors"
	"net/http"

	"github.com/hongminglow/portfolio-be/internal/http/respond"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/validate"
)

const internalErrorMsg = "internal server error"

// writeError maps domain errors onto the response envelope. Parameter and
// decoding errors become 400, storage.ErrNotFound becomes 404 with
// notFoundMsg, and anything else is logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error, notFoundMsg string) {
	var perr *validate.ParamError
	switch {
	case errors.As(err, &perr):
		respond.Error(w, http.StatusBadRequest, perr.Error())
	case errors.Is(err, respond.ErrBadJSON):
		respond.Error(w, http.StatusBadRequest, respond.ErrBadJSON.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, notFoundMsg)
	default:
		log.Error(r.Context(), "request failed",
			"request_id", middleware.RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		respond.Error(w, http.StatusInternalServerError, internalErrorMsg)
	}
}

// caller returns the authenticated user id or answers 401.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok || id.UserID == "" {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id.UserID, true
}
