package web

// errors.go turns service errors into HTTP responses.
//
// Every error body is {"error": message, "code": support code}. Codes come
// from core.MapError. Batch failures add the rejected rows as "details" and
// validation failures list their "reasons".
//
// Client errors are logged at debug level. Anything else is logged with the
// underlying cause and answered with a fixed "Internal server error" message
// naming the operation, so store details never reach the client.

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/logging"
)

// Client-facing messages for request errors detected in the handlers.
const (
	msgFileRequired   = "File is required"
	msgInvalidFile    = "Invalid file type"
	msgFileTooLarge   = "file too large"
	msgInvalidID      = "Invalid or missing transaction ID"
	msgInvalidIDs     = "Invalid or missing transaction IDs"
	msgInvalidQuery   = "Invalid query parameters"
	msgInvalidBody    = "Invalid request body"
	msgLimitTooLarge  = "Limit should not exceed %d"
	msgInternalPrefix = "Internal server error: Failed to "
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Reasons []string        `json:"reasons,omitempty"`
	Details []core.RowError `json:"details,omitempty"`
}

// respondError logs err and writes the matching status and body. op names
// the failed operation in the generic 500 message ("add transaction").
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, resp := s.errorResponse(err, op)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		if core.IsUserFacing(err) {
			logger = logger.With("hint", core.FormatUserError(err))
		}
		logger.Error("request error",
			"op", op,
			"status", status,
			"error", err,
			"code", resp.Code,
		)
	} else {
		logger.Debug("request rejected",
			"op", op,
			"status", status,
			"error", err,
			"code", resp.Code,
		)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, resp)
}

// errorResponse maps err to a status and body.
func (s *Server) errorResponse(err error, op string) (int, ErrorResponse) {
	code := core.MapError(err).Code

	var (
		batchErr *core.BatchError
		valErr   *core.ValidationError
		sizeErr  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &batchErr):
		return http.StatusBadRequest, ErrorResponse{Error: batchErr.Message, Code: code, Details: batchErr.Details}
	case errors.As(err, &valErr):
		return http.StatusBadRequest, ErrorResponse{Error: valErr.Error(), Code: code, Reasons: valErr.Reasons}
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge, newErrorResponse(msgFileTooLarge)
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusBadRequest, ErrorResponse{Error: "Duplicate transaction found", Code: code}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Transaction not found", Code: code}
	case errors.Is(err, core.ErrAlreadyDeleted):
		return http.StatusConflict, ErrorResponse{Error: "Transaction already deleted", Code: code}
	case errors.Is(err, core.ErrInvalidPagination):
		return http.StatusBadRequest, ErrorResponse{Error: msgInvalidQuery, Code: code}
	case errors.Is(err, core.ErrPageSizeTooLarge):
		return http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf(msgLimitTooLarge, s.service.MaxPageSize()), Code: code}
	case errors.Is(err, core.ErrInvalidUploadID):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid upload ID", Code: code}
	case errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Upload not found", Code: code}
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrTooManyUploads.Error(), Code: code}
	case errors.Is(err, core.ErrRateUnavailable):
		return http.StatusBadGateway, ErrorResponse{Error: "Failed to fetch exchange rate", Code: code}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "Request timed out", Code: code}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: msgInternalPrefix + op, Code: code}
	}
}

// newErrorResponse builds a body for a handler-level message, looking up
// its code in the same table.
func newErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Error: msg, Code: core.MapError(errors.New(msg)).Code}
}

// writeError writes a handler-level client error.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	logging.FromContext(r.Context()).Debug("request rejected", "status", status, "error", msg)
	writeJSON(w, status, newErrorResponse(msg))
}
