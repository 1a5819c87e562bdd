package core

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the service and store layers.
var (
	ErrNotFound          = errors.New("transaction not found")
	ErrAlreadyDeleted    = errors.New("transaction already deleted")
	ErrDuplicate         = errors.New("duplicate transaction found")
	ErrInvalidPagination = errors.New("invalid query parameters")
	ErrPageSizeTooLarge  = errors.New("page size exceeds maximum")
	ErrRateUnavailable   = errors.New("failed to fetch exchange rate")
	ErrInvalidUploadID   = errors.New("invalid upload id")
	ErrUploadNotFound    = errors.New("upload not found")
)

// Row rejection reasons. Callers can tell which duplicate check fired.
const (
	ReasonDuplicateInBatch = "Duplicate transaction"
	ReasonDuplicateInStore = "Duplicate in database"
)

// Batch-level failure messages.
const (
	MsgEmptyContent     = "CSV content is empty"
	MsgNoValidRecords   = "No valid transactions found"
	MsgParseErrorPrefix = "CSV parsing error: "
	MsgValidationErrors = "Validation errors found"
)

// ValidationError reports every schema violation of a single record.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Reasons, ", ")
}

// BatchError reports an upload that produced nothing to persist.
// Details carries the per-row rejections collected before the failure.
type BatchError struct {
	Message string
	Details []RowError
}

func (e *BatchError) Error() string {
	return e.Message
}
