package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "not found", err: ErrNotFound, wantCode: "TXN001"},
		{name: "wrapped not found", err: fmt.Errorf("edit 5: %w", ErrNotFound), wantCode: "TXN001"},
		{name: "already deleted", err: ErrAlreadyDeleted, wantCode: "TXN002"},
		{name: "duplicate", err: ErrDuplicate, wantCode: "TXN003"},
		{name: "bad id", err: errors.New("Invalid or missing transaction IDs"), wantCode: "TXN004"},
		{name: "invalid date", err: &ValidationError{Reasons: []string{ReasonDateInvalid}}, wantCode: "VAL001"},
		{name: "amount", err: &ValidationError{Reasons: []string{ReasonAmountNotNumber}}, wantCode: "VAL002"},
		{name: "missing field", err: &ValidationError{Reasons: []string{ReasonCurrencyRequired}}, wantCode: "VAL003"},
		{name: "blank field", err: &ValidationError{Reasons: []string{ReasonDescriptionEmpty}}, wantCode: "VAL004"},
		{name: "first reason wins by table order", err: &ValidationError{Reasons: []string{ReasonDescriptionRequired, ReasonDateInvalid}}, wantCode: "VAL001"},
		{name: "strict batch", err: &BatchError{Message: MsgValidationErrors}, wantCode: "VAL005"},
		{name: "no valid rows", err: &BatchError{Message: MsgNoValidRecords}, wantCode: "VAL006"},
		{name: "csv parse error", err: &BatchError{Message: MsgParseErrorPrefix + "bare \" in non-quoted field"}, wantCode: "FILE002"},
		{name: "empty content", err: &BatchError{Message: MsgEmptyContent}, wantCode: "FILE005"},
		{name: "file too large", err: errors.New("file too large"), wantCode: "FILE001"},
		{name: "too many uploads", err: ErrTooManyUploads, wantCode: "UPL002"},
		{name: "upload not found", err: ErrUploadNotFound, wantCode: "UPL003"},
		{name: "invalid upload id", err: ErrInvalidUploadID, wantCode: "UPL006"},
		{name: "context canceled", err: context.Canceled, wantCode: "UPL004"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: "UPL005"},
		{name: "pagination", err: ErrInvalidPagination, wantCode: "PAGE001"},
		{name: "page too large", err: ErrPageSizeTooLarge, wantCode: "PAGE002"},
		{name: "limit message", err: errors.New("Limit should not exceed 100"), wantCode: "PAGE002"},
		{name: "rate limit", err: errors.New("rate limit exceeded"), wantCode: "RATE001"},
		{name: "exchange rate", err: ErrRateUnavailable, wantCode: "RATE002"},
		{name: "unique violation", err: errors.New("ERROR: duplicate key value violates unique constraint"), wantCode: "DB001"},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB004"},
		{name: "unknown", err: errors.New("something odd"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v).Message is empty", tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ErrNotFound)
	if !strings.Contains(got, "(Code: TXN001)") || !strings.HasPrefix(got, "Transaction not found") {
		t.Errorf("FormatUserError(ErrNotFound) = %q", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrDuplicate, true},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorPatternsHaveCodes(t *testing.T) {
	for _, ep := range errorPatterns {
		if ep.pattern != strings.ToLower(ep.pattern) {
			t.Errorf("pattern %q must be lower case", ep.pattern)
		}
		if ep.msg.Code == "" || ep.msg.Message == "" || ep.msg.Action == "" {
			t.Errorf("pattern %q has incomplete message %+v", ep.pattern, ep.msg)
		}
	}
}
