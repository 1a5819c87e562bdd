package core

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// Store is the persistence contract the service depends on.
//
// Implementations must exclude soft-deleted rows from ListPage,
// FindDuplicate and FindExistingKeys, and return ErrNotFound and
// ErrAlreadyDeleted (possibly wrapped) where noted.
type Store interface {
	// CreateOne inserts a record and returns it with its assigned ID.
	CreateOne(ctx context.Context, t Transaction) (Transaction, error)

	// CreateMany inserts records atomically and returns the count inserted.
	CreateMany(ctx context.Context, ts []Transaction) (int64, error)

	// UpdateOne replaces every user field of record id. ErrNotFound if absent.
	UpdateOne(ctx context.Context, id int64, t Transaction) (Transaction, error)

	// SoftDelete marks record id deleted. ErrNotFound or ErrAlreadyDeleted.
	SoftDelete(ctx context.Context, id int64) (Transaction, error)

	// SoftDeleteMany marks every id deleted, or none of them if any id is
	// absent (ErrNotFound) or already deleted (ErrAlreadyDeleted).
	SoftDeleteMany(ctx context.Context, ids []int64) (int64, error)

	// SoftDeleteByUpload marks every live record of an upload deleted.
	SoftDeleteByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error)

	// FindByID returns record id, deleted or not. ErrNotFound if absent.
	FindByID(ctx context.Context, id int64) (Transaction, error)

	// ListPage returns live records ordered by date descending plus the
	// total live count. page is 1-based.
	ListPage(ctx context.Context, page, pageSize int) ([]Transaction, int64, error)

	// FindDuplicate reports whether a live record has key, ignoring
	// excludeID when it is non-zero.
	FindDuplicate(ctx context.Context, key DuplicateKey, excludeID int64) (bool, error)

	// FindExistingKeys returns the keys present among live records.
	FindExistingKeys(ctx context.Context, keys []DuplicateKey) ([]DuplicateKey, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// PageOffset returns the number of rows before a 1-based page. ok is false
// when page or pageSize is not positive or the offset does not fit in an
// int.
func PageOffset(page, pageSize int) (offset int, ok bool) {
	if page < 1 || pageSize < 1 || page-1 > math.MaxInt/pageSize {
		return 0, false
	}
	return (page - 1) * pageSize, true
}
