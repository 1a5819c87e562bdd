// Package core provides the business logic for transaction records.
//
// It has no transport dependencies; the HTTP layer, tests and tools all
// drive the same [Service].
//
// # Ingestion
//
// An uploaded CSV batch goes through [ParseBatch], which normalizes every
// row (lower-cased, trimmed keys and values), validates it with
// [ValidateRecord] and drops repeats of a (date, description) pair already
// seen in the same batch. The surviving rows are checked against the store
// in one lookup by [Resolver.ExistingKeys] before being inserted together.
//
// Every rejected row is reported as a [RowError] with its 1-based row
// number and a reason. Duplicates carry [ReasonDuplicateInBatch] or
// [ReasonDuplicateInStore] so callers can tell the two checks apart.
//
// # Single records
//
// Add and edit share the same pipeline as uploads: normalize, validate,
// [Resolver.Exists], convert, persist. Edit excludes the record's own ID
// from the duplicate check. Deletes are soft; deleted records drop out of
// listings and duplicate checks but remain readable by ID.
//
// # Error Handling
//
// Sentinel errors ([ErrNotFound], [ErrAlreadyDeleted], [ErrDuplicate], ...)
// and the typed [ValidationError] and [BatchError] are matched with
// errors.Is and errors.As. [MapError] turns any error into a user message
// with a support code.
package core
