package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/linesmerrill/activities-api/config"
	"github.com/linesmerrill/activities-api/membership"
	"github.com/linesmerrill/activities-api/models"
)

// statusFor maps a membership error kind to its http status
func statusFor(err error) int {
	switch {
	case errors.Is(err, membership.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, membership.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, membership.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, membership.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with {"error", "code"}. Unexpected errors are logged and
// their text is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := models.ErrorMessageResponse{Error: err.Error(), Code: "INTERNAL"}

	var merr *membership.Error
	switch {
	case errors.As(err, &merr):
		body.Code = merr.Code
	case status == http.StatusGatewayTimeout:
		body = models.ErrorMessageResponse{Error: "request timeout", Code: "TIMEOUT"}
	default:
		zap.S().Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

// decodeBody reads a json request body into v, a malformed body is a validation error
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return &membership.Error{Kind: membership.ErrValidation, Code: membership.CodeValidation, Message: "request body is required"}
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &membership.Error{Kind: membership.ErrValidation, Code: membership.CodeValidation, Message: "malformed request body: " + err.Error()}
	}
	return nil
}
