package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/ledger/internal/logging"
)

// Defaults for ServiceConfig zero values.
const (
	DefaultPageSize      = 10
	DefaultMaxPageSize   = 100
	DefaultUploadTimeout = 2 * time.Minute
)

// ServiceConfig holds the tunables of a Service. Zero values fall back to
// the package defaults.
type ServiceConfig struct {
	DefaultPageSize      int
	MaxPageSize          int
	MaxConcurrentUploads int
	MaxUploadWait        time.Duration
	UploadTimeout        time.Duration // Bounds one upload from parse to insert
}

// Service provides the business logic for transaction records.
// It is safe for concurrent use; the only shared state lives in the
// store, the rate source and the upload limiter.
type Service struct {
	store    Store
	resolver *Resolver
	rates    RateSource
	limiter  *UploadLimiter

	defaultPageSize int
	maxPageSize     int
	uploadTimeout   time.Duration
}

// NewService creates a Service. rates may be nil to disable currency
// conversion.
func NewService(store Store, rates RateSource, cfg ServiceConfig) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}

	return &Service{
		store:           store,
		resolver:        NewResolver(store),
		rates:           rates,
		limiter:         NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.MaxUploadWait),
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		uploadTimeout:   cfg.UploadTimeout,
	}
}

// Limiter returns the upload limiter, for status reporting and shutdown.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// DefaultPageSize returns the page size used when the caller gives none.
func (s *Service) DefaultPageSize() int {
	return s.defaultPageSize
}

// MaxPageSize returns the largest page size ListTransactions accepts.
func (s *Service) MaxPageSize() int {
	return s.maxPageSize
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AddTransaction validates and persists a single record.
// Returns *ValidationError for schema failures and ErrDuplicate when a live
// record already has the same date and description.
func (s *Service) AddTransaction(ctx context.Context, raw RawRecord) (Transaction, error) {
	t, err := s.prepare(ctx, raw, 0)
	if err != nil {
		return Transaction{}, err
	}

	created, err := s.store.CreateOne(ctx, t)
	if err != nil {
		return Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	audit(ctx, "transaction.add", "id", created.ID)
	return created, nil
}

// EditTransaction replaces every field of record id. The record itself is
// left out of the duplicate check.
func (s *Service) EditTransaction(ctx context.Context, id int64, raw RawRecord) (Transaction, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if existing.IsDeleted {
		return Transaction{}, ErrAlreadyDeleted
	}

	t, err := s.prepare(ctx, raw, id)
	if err != nil {
		return Transaction{}, err
	}
	t.UploadID = existing.UploadID

	updated, err := s.store.UpdateOne(ctx, id, t)
	if err != nil {
		return Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	audit(ctx, "transaction.edit", "id", id)
	return updated, nil
}

// prepare runs the shared add/edit pipeline: normalize, validate, check
// duplicates and convert the amount.
func (s *Service) prepare(ctx context.Context, raw RawRecord, excludeID int64) (Transaction, error) {
	rec := Normalize(raw)

	t, err := RecordToTransaction(rec)
	if err != nil {
		return Transaction{}, err
	}

	dup, err := s.resolver.Exists(ctx, t.Date, t.Description, excludeID)
	if err != nil {
		return Transaction{}, err
	}
	if dup {
		return Transaction{}, ErrDuplicate
	}

	if err := convertAmount(ctx, s.rates, &t); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// DeleteTransaction soft-deletes record id.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) (Transaction, error) {
	deleted, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	audit(ctx, "transaction.delete", "id", id)
	return deleted, nil
}

// DeleteTransactions soft-deletes every id, or none when any id is missing
// or already deleted.
func (s *Service) DeleteTransactions(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, &ValidationError{Reasons: []string{"ids must be a non-empty list"}}
	}

	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return 0, &ValidationError{Reasons: []string{fmt.Sprintf("invalid transaction id %d", id)}}
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	n, err := s.store.SoftDeleteMany(ctx, unique)
	if err != nil {
		return 0, err
	}

	audit(ctx, "transaction.delete_many", "count", n)
	return n, nil
}

// GetTransaction returns record id, including soft-deleted ones.
func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.store.FindByID(ctx, id)
}

// ListTransactions returns one page of live records, newest date first.
func (s *Service) ListTransactions(ctx context.Context, page, pageSize int) (Page, error) {
	if page < 1 || pageSize < 1 {
		return Page{}, ErrInvalidPagination
	}
	if pageSize > s.maxPageSize {
		return Page{}, fmt.Errorf("%w: %d > %d", ErrPageSizeTooLarge, pageSize, s.maxPageSize)
	}
	if _, ok := PageOffset(page, pageSize); !ok {
		return Page{}, fmt.Errorf("%w: page %d out of range", ErrInvalidPagination, page)
	}

	txns, total, err := s.store.ListPage(ctx, page, pageSize)
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}
	if txns == nil {
		txns = []Transaction{}
	}

	return Page{
		Transactions: txns,
		TotalCount:   total,
		CurrentPage:  page,
		TotalPages:   int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// audit writes a structured audit line carrying the caller's address.
func audit(ctx context.Context, action string, args ...any) {
	logger := logging.WithFields(ctx,
		"action", action,
		"ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)
	logger.Info("audit", args...)
}
