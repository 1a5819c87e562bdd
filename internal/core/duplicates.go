package core

import (
	"context"
	"fmt"
	"strings"
)

// DuplicateKey is the natural identity of a transaction among non-deleted
// records: two live records never share the same date and description.
type DuplicateKey struct {
	Date        string
	Description string
}

// String returns the key in its "date-description" text form.
func (k DuplicateKey) String() string {
	return k.Date + "-" + k.Description
}

// RecordKey returns the duplicate key text of a normalized record.
func RecordKey(rec RawRecord) string {
	return rec[FieldDate] + "-" + rec[FieldDescription]
}

// SplitDuplicateKey reverses DuplicateKey.String. The date itself contains
// dashes, so the first three segments form the date and everything after
// the third dash is the description.
func SplitDuplicateKey(key string) (DuplicateKey, bool) {
	parts := strings.SplitN(key, "-", 4)
	if len(parts) != 4 || parts[3] == "" {
		return DuplicateKey{}, false
	}
	return DuplicateKey{
		Date:        strings.Join(parts[:3], "-"),
		Description: parts[3],
	}, true
}

// Resolver answers whether equivalent records already exist in the store.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Exists reports whether a non-deleted record shares the date and
// description. A non-zero excludeID is left out of the scan so a record
// being edited does not collide with itself.
func (r *Resolver) Exists(ctx context.Context, date, description string, excludeID int64) (bool, error) {
	exists, err := r.store.FindDuplicate(ctx, DuplicateKey{Date: date, Description: description}, excludeID)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// ExistingKeys returns the subset of keys already present among
// non-deleted records, using a single store lookup. Keys that cannot be
// split into date and description are ignored.
func (r *Resolver) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(keys) == 0 {
		return existing, nil
	}

	candidates := make([]DuplicateKey, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		if k, ok := SplitDuplicateKey(key); ok {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return existing, nil
	}

	found, err := r.store.FindExistingKeys(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("lookup existing keys: %w", err)
	}
	for _, k := range found {
		if s := k.String(); seen[s] {
			existing[s] = true
		}
	}
	return existing, nil
}
