package store

import (
	"context"
	"fmt"
)

// RecordStore persists one JSON document per key. Implementations must
// treat a missing key as an empty record, not an error: Load returns
// (false, nil) and leaves dest untouched so the caller keeps its zero
// value. Save replaces the whole record atomically.
type RecordStore interface {
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Save(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// PersistError wraps a storage failure so callers can tell it apart from
// domain errors. The failed operation leaves no partial state behind:
// on a failed save the previous record and any cached copy stay intact.
type PersistError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
