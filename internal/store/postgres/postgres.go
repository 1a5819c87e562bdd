// Package postgres implements the transaction store on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ledger/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// pgUniqueViolation is the SQLSTATE of a unique index violation.
const pgUniqueViolation = "23505"

const selectColumns = `id, date_text, date_time, description, amount, currency,
	converted_amount, upload_id, is_deleted, created_at, updated_at`

var copyColumns = []string{
	"date_text", "date_time", "description", "amount", "currency",
	"converted_amount", "upload_id",
}

// Config holds pool settings.
type Config struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a core.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open connects a pool, verifies it with a ping and returns the store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanTransaction(row pgx.CollectableRow) (core.Transaction, error) {
	var (
		t         core.Transaction
		dateTime  pgtype.Timestamptz
		amount    pgtype.Numeric
		converted pgtype.Numeric
		uploadID  pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&t.ID, &t.Date, &dateTime, &t.Description, &amount, &t.Currency,
		&converted, &uploadID, &t.IsDeleted, &createdAt, &updatedAt,
	)
	if err != nil {
		return core.Transaction{}, err
	}
	t.DateTime = fromPgTimestamptz(dateTime)
	t.Amount = fromPgNumeric(amount)
	t.ConvertedAmount = fromPgNullNumeric(converted)
	t.UploadID = fromPgUUID(uploadID)
	t.CreatedAt = fromPgTimestamptz(createdAt)
	t.UpdatedAt = fromPgTimestamptz(updatedAt)
	return t, nil
}

// queryOne runs a query expected to return a single transaction row.
func (s *Store) queryOne(ctx context.Context, sql string, args ...any) (core.Transaction, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return core.Transaction{}, err
	}
	t, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, err
}

// mapWriteError turns a unique violation on the live key into ErrDuplicate.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", core.ErrDuplicate, pgErr.Detail)
	}
	return err
}

// CreateOne inserts t and returns the stored row.
func (s *Store) CreateOne(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.queryOne(ctx, `
		INSERT INTO transactions (date_text, date_time, description, amount, currency, converted_amount, upload_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+selectColumns,
		t.Date, toPgTimestamptz(t.DateTime), t.Description, toPgNumeric(t.Amount), t.Currency,
		toPgNullNumeric(t.ConvertedAmount), toPgUUID(t.UploadID),
	)
	if err != nil {
		return core.Transaction{}, mapWriteError(err)
	}
	return created, nil
}

// CreateMany copies every transaction in one database transaction.
func (s *Store) CreateMany(ctx context.Context, ts []core.Transaction) (int64, error) {
	if len(ts) == 0 {
		return 0, nil
	}

	var inserted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		src := pgx.CopyFromSlice(len(ts), func(i int) ([]any, error) {
			t := ts[i]
			return []any{
				t.Date, toPgTimestamptz(t.DateTime), t.Description, toPgNumeric(t.Amount), t.Currency,
				toPgNullNumeric(t.ConvertedAmount), toPgUUID(t.UploadID),
			}, nil
		})
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"transactions"}, copyColumns, src)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, mapWriteError(err)
	}
	return inserted, nil
}

// UpdateOne replaces the user fields of record id.
func (s *Store) UpdateOne(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error) {
	updated, err := s.queryOne(ctx, `
		UPDATE transactions
		SET date_text = $2, date_time = $3, description = $4, amount = $5,
		    currency = $6, converted_amount = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+selectColumns,
		id, t.Date, toPgTimestamptz(t.DateTime), t.Description, toPgNumeric(t.Amount),
		t.Currency, toPgNullNumeric(t.ConvertedAmount),
	)
	if err != nil {
		return core.Transaction{}, mapWriteError(err)
	}
	return updated, nil
}

// SoftDelete marks record id deleted.
func (s *Store) SoftDelete(ctx context.Context, id int64) (core.Transaction, error) {
	deleted, err := s.queryOne(ctx, `
		UPDATE transactions
		SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND NOT is_deleted
		RETURNING `+selectColumns, id)
	if !errors.Is(err, core.ErrNotFound) {
		return deleted, err
	}

	// Nothing updated: tell a missing row from an already deleted one.
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return core.Transaction{}, err
	}
	if exists {
		return core.Transaction{}, core.ErrAlreadyDeleted
	}
	return core.Transaction{}, core.ErrNotFound
}

// SoftDeleteMany marks every id deleted, or none of them.
func (s *Store) SoftDeleteMany(ctx context.Context, ids []int64) (int64, error) {
	var affected int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, is_deleted FROM transactions
			WHERE id = ANY($1)
			FOR UPDATE`, ids)
		if err != nil {
			return err
		}
		state := make(map[int64]bool, len(ids))
		var (
			id      int64
			deleted bool
		)
		_, err = pgx.ForEachRow(rows, []any{&id, &deleted}, func() error {
			state[id] = deleted
			return nil
		})
		if err != nil {
			return err
		}

		for _, want := range ids {
			isDeleted, ok := state[want]
			if !ok {
				return fmt.Errorf("id %d: %w", want, core.ErrNotFound)
			}
			if isDeleted {
				return fmt.Errorf("id %d: %w", want, core.ErrAlreadyDeleted)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE transactions SET is_deleted = TRUE, updated_at = now()
			WHERE id = ANY($1)`, ids)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// SoftDeleteByUpload marks every live row of the upload deleted.
func (s *Store) SoftDeleteByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET is_deleted = TRUE, updated_at = now()
		WHERE upload_id = $1 AND NOT is_deleted`,
		pgtype.UUID{Bytes: uploadID, Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindByID returns record id, deleted or not.
func (s *Store) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	return s.queryOne(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = $1`, id)
}

// ListPage runs the page query and the live count concurrently.
func (s *Store) ListPage(ctx context.Context, page, pageSize int) ([]core.Transaction, int64, error) {
	offset, ok := core.PageOffset(page, pageSize)
	if !ok {
		return nil, 0, core.ErrInvalidPagination
	}

	var (
		txns  []core.Transaction
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, `
			SELECT `+selectColumns+`
			FROM transactions
			WHERE NOT is_deleted
			ORDER BY date_time DESC, id DESC
			LIMIT $1 OFFSET $2`,
			pageSize, offset)
		if err != nil {
			return err
		}
		txns, err = pgx.CollectRows(rows, scanTransaction)
		return err
	})
	g.Go(func() error {
		return s.pool.QueryRow(gctx, `SELECT count(*) FROM transactions WHERE NOT is_deleted`).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// FindDuplicate reports whether a live record other than excludeID has key.
func (s *Store) FindDuplicate(ctx context.Context, key core.DuplicateKey, excludeID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE date_text = $1 AND description = $2 AND NOT is_deleted
			  AND ($3::bigint = 0 OR id <> $3::bigint)
		)`, key.Date, key.Description, excludeID).Scan(&exists)
	return exists, err
}

// FindExistingKeys returns the keys present among live records in a single
// round trip.
func (s *Store) FindExistingKeys(ctx context.Context, keys []core.DuplicateKey) ([]core.DuplicateKey, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	dates := make([]string, len(keys))
	descs := make([]string, len(keys))
	for i, k := range keys {
		dates[i] = k.Date
		descs[i] = k.Description
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT t.date_text, t.description
		FROM transactions t
		JOIN unnest($1::text[], $2::text[]) AS k(date_text, description)
		  ON t.date_text = k.date_text AND t.description = k.description
		WHERE NOT t.is_deleted`, dates, descs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.DuplicateKey, error) {
		var k core.DuplicateKey
		err := row.Scan(&k.Date, &k.Description)
		return k, err
	})
}
