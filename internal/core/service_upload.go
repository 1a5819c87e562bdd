package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ledger/internal/logging"
)

// rateLookupConcurrency bounds parallel exchange-rate lookups per upload.
const rateLookupConcurrency = 8

// UploadTransactions ingests a CSV batch.
//
// Rows rejected by validation or in-batch dedup are reported and skipped;
// rows whose key already exists among live records are rejected with
// ReasonDuplicateInStore. When req.Strict is set any rejection fails the
// whole batch. Survivors are inserted atomically, tagged with a new upload
// ID.
//
// Returns *BatchError when nothing can be inserted and ErrTooManyUploads if
// no upload slot frees up in time.
func (s *Service) UploadTransactions(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return UploadResult{}, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	start := time.Now()
	uploadID := uuid.New()
	logger := logging.WithFields(ctx,
		"upload_id", uploadID.String(),
		"file", req.FileName,
	)

	outcome := ParseBatch(req.Data)
	if outcome.FatalError != "" {
		logger.Info("upload rejected", "reason", outcome.FatalError, "row_errors", len(outcome.RowErrors))
		return UploadResult{}, &BatchError{Message: outcome.FatalError, Details: outcome.RowErrors}
	}

	keys := make([]string, len(outcome.Records))
	for i, rec := range outcome.Records {
		keys[i] = RecordKey(rec.Fields)
	}
	existing, err := s.resolver.ExistingKeys(ctx, keys)
	if err != nil {
		return UploadResult{}, err
	}

	rejected := outcome.RowErrors
	survivors := make([]ParsedRecord, 0, len(outcome.Records))
	for i, rec := range outcome.Records {
		if existing[keys[i]] {
			rejected = append(rejected, RowError{
				Row:    rec.Row,
				Data:   rec.Fields,
				Reason: ReasonDuplicateInStore,
			})
			continue
		}
		survivors = append(survivors, rec)
	}
	slices.SortStableFunc(rejected, func(a, b RowError) int { return cmp.Compare(a.Row, b.Row) })

	if req.Strict && len(rejected) > 0 {
		logger.Info("strict upload rejected", "rejected", len(rejected))
		return UploadResult{}, &BatchError{Message: MsgValidationErrors, Details: rejected}
	}
	if len(survivors) == 0 {
		return UploadResult{}, &BatchError{Message: MsgNoValidRecords, Details: rejected}
	}

	accepted, err := s.buildTransactions(ctx, survivors, uploadID)
	if err != nil {
		return UploadResult{}, err
	}

	inserted, err := s.store.CreateMany(ctx, accepted)
	if err != nil {
		return UploadResult{}, fmt.Errorf("insert batch: %w", err)
	}

	result := UploadResult{
		UploadID: uploadID.String(),
		FileName: req.FileName,
		Inserted: inserted,
		Accepted: accepted,
		Rejected: rejected,
		Duration: time.Since(start),
	}
	if result.Rejected == nil {
		result.Rejected = []RowError{}
	}

	logger.Info("upload completed",
		"inserted", inserted,
		"rejected", len(rejected),
		"duration_ms", result.Duration.Milliseconds(),
	)
	audit(ctx, "upload", "upload_id", result.UploadID, "rows", inserted)
	return result, nil
}

// buildTransactions converts survivors to transactions and resolves their
// converted amounts. Any failed rate lookup fails the batch.
func (s *Service) buildTransactions(ctx context.Context, records []ParsedRecord, uploadID uuid.UUID) ([]Transaction, error) {
	txns := make([]Transaction, len(records))
	for i, rec := range records {
		t, err := RecordToTransaction(rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rec.Row, err)
		}
		id := uploadID
		t.UploadID = &id
		txns[i] = t
	}

	if s.rates == nil {
		return txns, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rateLookupConcurrency)
	for i := range txns {
		g.Go(func() error {
			return convertAmount(gctx, s.rates, &txns[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return txns, nil
}

// RollbackUpload soft-deletes every live record inserted by an upload.
func (s *Service) RollbackUpload(ctx context.Context, uploadID string) (RollbackResult, error) {
	id, err := uuid.Parse(uploadID)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("%w: %q", ErrInvalidUploadID, uploadID)
	}

	n, err := s.store.SoftDeleteByUpload(ctx, id)
	if err != nil {
		return RollbackResult{}, fmt.Errorf("rollback upload %s: %w", id, err)
	}
	if n == 0 {
		return RollbackResult{}, ErrUploadNotFound
	}

	audit(ctx, "upload.rollback", "upload_id", id.String(), "rows", n)
	return RollbackResult{UploadID: id.String(), RowsDeleted: n}, nil
}
