// Package memory provides an in-process transaction store.
//
// It backs tests and local runs with STORE_DRIVER=memory. Every method
// holds a single mutex, so each call is atomic like a database
// transaction would be.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ledger/internal/core"
)

// Store is a mutex-guarded map of transactions keyed by ID.
type Store struct {
	mu     sync.Mutex
	rows   map[int64]core.Transaction
	nextID int64
	now    func() time.Time
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		rows: make(map[int64]core.Transaction),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) insertLocked(t core.Transaction) core.Transaction {
	s.nextID++
	now := s.now()
	t.ID = s.nextID
	t.IsDeleted = false
	t.CreatedAt = now
	t.UpdatedAt = now
	s.rows[t.ID] = t
	return t
}

// CreateOne inserts t and returns it with its assigned ID.
func (s *Store) CreateOne(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(t), nil
}

// CreateMany inserts every transaction.
func (s *Store) CreateMany(ctx context.Context, ts []core.Transaction) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.insertLocked(t)
	}
	return int64(len(ts)), nil
}

// UpdateOne replaces the user fields of record id.
func (s *Store) UpdateOne(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	cur.Date = t.Date
	cur.DateTime = t.DateTime
	cur.Description = t.Description
	cur.Amount = t.Amount
	cur.Currency = t.Currency
	cur.ConvertedAmount = t.ConvertedAmount
	cur.UpdatedAt = s.now()
	s.rows[id] = cur
	return cur, nil
}

// SoftDelete marks record id deleted.
func (s *Store) SoftDelete(ctx context.Context, id int64) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	if cur.IsDeleted {
		return core.Transaction{}, core.ErrAlreadyDeleted
	}
	cur.IsDeleted = true
	cur.UpdatedAt = s.now()
	s.rows[id] = cur
	return cur, nil
}

// SoftDeleteMany marks every id deleted, or none of them.
func (s *Store) SoftDeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		cur, ok := s.rows[id]
		if !ok {
			return 0, core.ErrNotFound
		}
		if cur.IsDeleted {
			return 0, core.ErrAlreadyDeleted
		}
	}

	now := s.now()
	for _, id := range ids {
		cur := s.rows[id]
		cur.IsDeleted = true
		cur.UpdatedAt = now
		s.rows[id] = cur
	}
	return int64(len(ids)), nil
}

// SoftDeleteByUpload marks every live record of the upload deleted.
func (s *Store) SoftDeleteByUpload(ctx context.Context, uploadID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	now := s.now()
	for id, cur := range s.rows {
		if cur.IsDeleted || cur.UploadID == nil || *cur.UploadID != uploadID {
			continue
		}
		cur.IsDeleted = true
		cur.UpdatedAt = now
		s.rows[id] = cur
		n++
	}
	return n, nil
}

// FindByID returns record id, deleted or not.
func (s *Store) FindByID(ctx context.Context, id int64) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return cur, nil
}

// ListPage returns live records ordered by date then ID, newest first.
func (s *Store) ListPage(ctx context.Context, page, pageSize int) ([]core.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	live := make([]core.Transaction, 0, len(s.rows))
	for _, t := range s.rows {
		if !t.IsDeleted {
			live = append(live, t)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(live, func(a, b core.Transaction) int {
		if c := b.DateTime.Compare(a.DateTime); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	total := int64(len(live))
	start, ok := core.PageOffset(page, pageSize)
	if !ok {
		return nil, 0, core.ErrInvalidPagination
	}
	if start >= len(live) {
		return []core.Transaction{}, total, nil
	}
	end := min(start+pageSize, len(live))
	return live[start:end], total, nil
}

// FindDuplicate reports whether a live record other than excludeID has key.
func (s *Store) FindDuplicate(ctx context.Context, key core.DuplicateKey, excludeID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.rows {
		if t.IsDeleted || (excludeID != 0 && id == excludeID) {
			continue
		}
		if t.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

// FindExistingKeys returns the keys present among live records.
func (s *Store) FindExistingKeys(ctx context.Context, keys []core.DuplicateKey) ([]core.DuplicateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[core.DuplicateKey]bool, len(s.rows))
	for _, t := range s.rows {
		if !t.IsDeleted {
			live[t.Key()] = true
		}
	}

	var found []core.DuplicateKey
	for _, k := range keys {
		if live[k] {
			found = append(found, k)
		}
	}
	return found, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
