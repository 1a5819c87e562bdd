package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the boundary format for transaction dates (DD-MM-YYYY).
const DateLayout = "02-01-2006"

// Canonical field names for a transaction record, in validation order.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
)

// RequiredFields lists the record fields in declaration order.
var RequiredFields = []string{FieldDate, FieldDescription, FieldAmount, FieldCurrency}

// RawRecord maps field names to their text values, as read from a CSV row
// or a JSON request body.
type RawRecord map[string]string

// Transaction is a persisted financial transaction record.
type Transaction struct {
	ID              int64               `json:"id,omitempty"`
	Date            string              `json:"date"`     // DD-MM-YYYY
	DateTime        time.Time           `json:"dateTime"` // Parsed Date at UTC midnight, used for ordering
	Description     string              `json:"description"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	ConvertedAmount decimal.NullDecimal `json:"convertedAmount"` // Amount in the base currency; null when conversion is off
	UploadID        *uuid.UUID          `json:"uploadId,omitempty"`
	IsDeleted       bool                `json:"isDeleted"`
	CreatedAt       time.Time           `json:"createdAt,omitzero"`
	UpdatedAt       time.Time           `json:"updatedAt,omitzero"`
}

// Key returns the duplicate key of the transaction.
func (t Transaction) Key() DuplicateKey {
	return DuplicateKey{Date: t.Date, Description: t.Description}
}

// ParsedRecord is a row that passed validation during batch parsing.
type ParsedRecord struct {
	Row    int       // 1-based position among data rows
	Fields RawRecord // Normalized fields
}

// RowError describes a rejected row of an uploaded batch.
type RowError struct {
	Row    int       `json:"row"`
	Data   RawRecord `json:"data"`
	Reason string    `json:"reason"`
}

// ParseOutcome is the result of parsing one uploaded batch.
type ParseOutcome struct {
	Records    []ParsedRecord
	RowErrors  []RowError
	FatalError string // Non-empty when the batch is unusable as a whole
}

// Page is one page of non-deleted transactions.
type Page struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   int64         `json:"totalCount"`
	CurrentPage  int           `json:"currentPage"`
	TotalPages   int           `json:"totalPages"`
}

// UploadRequest carries a CSV batch to ingest.
type UploadRequest struct {
	FileName string
	Data     []byte
	Strict   bool // Reject the whole batch when any row is rejected
}

// UploadResult contains the outcome of a successful batch upload.
type UploadResult struct {
	UploadID string        `json:"uploadId"`
	FileName string        `json:"fileName,omitempty"`
	Inserted int64         `json:"inserted"`
	Accepted []Transaction `json:"accepted"`
	Rejected []RowError    `json:"rejected"`
	Duration time.Duration `json:"-"`
}

// RollbackResult contains the result of rolling back an upload.
type RollbackResult struct {
	UploadID    string `json:"uploadId"`
	RowsDeleted int64  `json:"deleted"`
}
