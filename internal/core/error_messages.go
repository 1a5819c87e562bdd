package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support looks it up here.
//
// # Transaction Errors (TXN001-TXN099)
//
//	TXN001 - Not found: no transaction has this ID
//	TXN002 - Already deleted: the transaction was deleted earlier
//	TXN003 - Duplicate: a live transaction has the same date and description
//	TXN004 - Bad ID: the transaction ID is missing or not a positive integer
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date: dates must be DD-MM-YYYY and a real calendar day
//	VAL002 - Invalid amount: amounts must be decimal numbers, optionally with an exponent
//	VAL003 - Missing field: date, description, amount and currency are required
//	VAL004 - Empty field: description and currency cannot be blank
//	VAL005 - Rejected rows: a strict upload contained invalid or duplicate rows
//	VAL006 - Nothing to import: no row of the file was usable
//	VAL007 - Malformed request body
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Malformed CSV (quoting or structure)
//	FILE004 - No file in the request
//	FILE005 - Empty file
//	FILE006 - Not a CSV file
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - Too many concurrent uploads
//	UPL003 - Upload not found (nothing to roll back)
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	UPL006 - Malformed upload ID
//
// # Pagination Errors (PAGE001-PAGE099)
//
//	PAGE001 - page/limit are not positive integers
//	PAGE002 - limit above the configured maximum
//
// # Rate Errors (RATE001-RATE099)
//
//	RATE001 - Request rate limited
//	RATE002 - Exchange rate service unavailable
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Unique violation
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// ERR000 is the fallback; check the logs for the underlying error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Transactions
	{
		pattern: "transaction not found",
		msg:     UserMessage{Message: "Transaction not found", Action: "Check the transaction ID", Code: "TXN001"},
	},
	{
		pattern: "transaction already deleted",
		msg:     UserMessage{Message: "Transaction already deleted", Action: "Refresh the list of transactions", Code: "TXN002"},
	},
	{
		pattern: "duplicate transaction found",
		msg:     UserMessage{Message: "Duplicate transaction found", Action: "Change the date or description", Code: "TXN003"},
	},

	{
		pattern: "invalid or missing transaction id",
		msg:     UserMessage{Message: "Invalid or missing transaction ID", Action: "Use the numeric ID of the transaction", Code: "TXN004"},
	},

	// Validation
	{
		pattern: "invalid date",
		msg:     UserMessage{Message: "Invalid date", Action: "Use DD-MM-YYYY, e.g. 25-12-2023", Code: "VAL001"},
	},
	{
		pattern: "must be a number",
		msg:     UserMessage{Message: "Amount must be a number", Action: "Remove currency symbols and thousands separators", Code: "VAL002"},
	},
	{
		pattern: "is required",
		msg:     UserMessage{Message: "Required field is missing", Action: "Provide date, description, amount and currency", Code: "VAL003"},
	},
	{
		pattern: "cannot be empty",
		msg:     UserMessage{Message: "Required field is empty", Action: "Fill in description and currency", Code: "VAL004"},
	},
	{
		pattern: "validation errors found",
		msg:     UserMessage{Message: "The file contains rejected rows", Action: "Fix the listed rows or upload without strict mode", Code: "VAL005"},
	},
	{
		pattern: "no valid transactions found",
		msg:     UserMessage{Message: "No valid transactions found", Action: "Review the rejected rows and upload again", Code: "VAL006"},
	},

	{
		pattern: "invalid request body",
		msg:     UserMessage{Message: "Invalid request body", Action: "Send a JSON object", Code: "VAL007"},
	},

	// Files
	{
		pattern: "file too large",
		msg:     UserMessage{Message: "File exceeds maximum size limit", Action: "Split the file into smaller chunks", Code: "FILE001"},
	},
	{
		pattern: "csv parsing error",
		msg:     UserMessage{Message: "File is not a valid CSV", Action: "Check quoting and make sure the file is comma-separated", Code: "FILE002"},
	},
	{
		pattern: "file is required",
		msg:     UserMessage{Message: "No file was provided", Action: "Attach a CSV file in the \"file\" field", Code: "FILE004"},
	},
	{
		pattern: "csv content is empty",
		msg:     UserMessage{Message: "The uploaded file is empty", Action: "Upload a CSV file with a header and data rows", Code: "FILE005"},
	},
	{
		pattern: "invalid file type",
		msg:     UserMessage{Message: "Invalid file type", Action: "Upload a .csv file", Code: "FILE006"},
	},

	// Uploads
	{
		pattern: "too many concurrent uploads",
		msg:     UserMessage{Message: "System is busy processing other uploads", Action: "Please wait a moment and try again", Code: "UPL002"},
	},
	{
		pattern: "upload not found",
		msg:     UserMessage{Message: "Upload not found", Action: "The upload has no live transactions to roll back", Code: "UPL003"},
	},
	{
		pattern: "invalid upload id",
		msg:     UserMessage{Message: "Invalid upload ID", Action: "Use the uploadId returned by the upload", Code: "UPL006"},
	},
	{
		pattern: "context canceled",
		msg:     UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "UPL004"},
	},
	{
		pattern: "context deadline exceeded",
		msg:     UserMessage{Message: "Request timed out", Action: "Try a smaller file or try again later", Code: "UPL005"},
	},

	// Pagination
	{
		pattern: "invalid query parameters",
		msg:     UserMessage{Message: "Invalid query parameters", Action: "page and limit must be positive integers", Code: "PAGE001"},
	},
	{
		pattern: "limit should not exceed",
		msg:     UserMessage{Message: "Page size too large", Action: "Request fewer transactions per page", Code: "PAGE002"},
	},
	{
		pattern: "page size exceeds maximum",
		msg:     UserMessage{Message: "Page size too large", Action: "Request fewer transactions per page", Code: "PAGE002"},
	},

	// Rates
	{
		pattern: "rate limit",
		msg:     UserMessage{Message: "Too many requests", Action: "Please wait a moment before trying again", Code: "RATE001"},
	},
	{
		pattern: "failed to fetch exchange rate",
		msg:     UserMessage{Message: "Failed to fetch exchange rate", Action: "Try again later or check the currency code", Code: "RATE002"},
	},

	// Database
	{
		pattern: "duplicate key",
		msg:     UserMessage{Message: "A record with this key already exists", Action: "Refresh and try again", Code: "DB001"},
	},
	{
		pattern: "violates unique",
		msg:     UserMessage{Message: "A record with this key already exists", Action: "Refresh and try again", Code: "DB001"},
	},
	{
		pattern: "connection refused",
		msg:     UserMessage{Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB004"},
	},
	{
		pattern: "connection reset",
		msg:     UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB005"},
	},
	{
		pattern: "timeout",
		msg:     UserMessage{Message: "Operation timed out", Action: "Please try again later", Code: "DB006"},
	},
	{
		pattern: "deadlock",
		msg:     UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a "Message (Code: XXX). Action" string.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
