package core

// validation.go checks a normalized record against the transaction schema.
//
// Validation is exhaustive: every failing field contributes one reason, and
// reasons always come out in field declaration order (date, description,
// amount, currency) so the same record always yields the same message.

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	dateRegex    = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// maxAmountExponent bounds the decimal exponent of an amount.
const maxAmountExponent = 1000

// Validation reasons.
const (
	ReasonDateRequired        = "Date is required"
	ReasonDateInvalid         = "Invalid date"
	ReasonDescriptionRequired = "Description is required"
	ReasonDescriptionEmpty    = "Description cannot be empty."
	ReasonAmountRequired      = "Amount is required"
	ReasonAmountNotNumber     = "Amount must be a number."
	ReasonCurrencyRequired    = "Currency is required"
	ReasonCurrencyEmpty       = "Currency cannot be empty."
)

// ValidationResult contains the result of validating a record.
type ValidationResult struct {
	Valid  bool     // True if all checks passed
	Errors []string // Reasons in field order; empty if Valid
}

// Err returns the result as a *ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Reasons: r.Errors}
}

// fieldCheck validates one present field value, returning a reason or "".
type fieldCheck struct {
	name     string
	missing  string
	validate func(string) string
}

var recordChecks = []fieldCheck{
	{name: FieldDate, missing: ReasonDateRequired, validate: func(v string) string {
		if _, ok := ParseDate(v); !ok {
			return ReasonDateInvalid
		}
		return ""
	}},
	{name: FieldDescription, missing: ReasonDescriptionRequired, validate: func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ReasonDescriptionEmpty
		}
		return ""
	}},
	{name: FieldAmount, missing: ReasonAmountRequired, validate: func(v string) string {
		if _, ok := ParseAmount(v); !ok {
			return ReasonAmountNotNumber
		}
		return ""
	}},
	{name: FieldCurrency, missing: ReasonCurrencyRequired, validate: func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ReasonCurrencyEmpty
		}
		return ""
	}},
}

// ValidateRecord validates a normalized record and returns all failures.
func ValidateRecord(rec RawRecord) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, check := range recordChecks {
		v, ok := rec[check.name]
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, check.missing)
			continue
		}
		if reason := check.validate(v); reason != "" {
			result.Valid = false
			result.Errors = append(result.Errors, reason)
		}
	}

	return result
}

// ParseDate parses a DD-MM-YYYY date. Day and month must form a real
// calendar date, including February 29 only in leap years.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !dateRegex.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmount parses a signed decimal or integer amount, optionally in
// exponent form ("1.5e3").
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if e := d.Exponent(); e > maxAmountExponent || e < -maxAmountExponent {
		return decimal.Zero, false
	}
	return d, true
}

// RecordToTransaction builds a Transaction from a record that passed
// ValidateRecord.
func RecordToTransaction(rec RawRecord) (Transaction, error) {
	if err := ValidateRecord(rec).Err(); err != nil {
		return Transaction{}, err
	}
	dt, _ := ParseDate(rec[FieldDate])
	amount, _ := ParseAmount(rec[FieldAmount])
	return Transaction{
		Date:        strings.TrimSpace(rec[FieldDate]),
		DateTime:    dt,
		Description: rec[FieldDescription],
		Amount:      amount,
		Currency:    rec[FieldCurrency],
	}, nil
}
