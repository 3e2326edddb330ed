package index

import (
	"cmp"
	"slices"
)

// Index is the common interface for the range-indexed structures under
// comparison. Keys are float64; duplicate keys are kept in insertion order.
type Index[V any] interface {
	Insert(key float64, value V) error
	Range(start, end float64) (Iterator[V], error)
	Close() error
}

// BulkLoader is implemented by indexes that can be built from a full entry
// set in one pass. BulkLoad replaces the previous contents.
type BulkLoader[V any] interface {
	BulkLoad(entries []Entry[V]) error
}

// Entry is one key with its payload.
type Entry[V any] struct {
	Key   float64
	Value V
}

// Keyed is implemented by records that carry their own ordering key.
type Keyed interface {
	Key() float64
}

// Entries pairs every record with its key, preserving input order.
func Entries[R Keyed](records []R) []Entry[R] {
	out := make([]Entry[R], len(records))
	for i, r := range records {
		out[i] = Entry[R]{Key: r.Key(), Value: r}
	}
	return out
}

// SortEntries stable-sorts entries by key so ties keep their input order.
func SortEntries[V any](entries []Entry[V]) {
	slices.SortStableFunc(entries, func(a, b Entry[V]) int {
		return cmp.Compare(a.Key, b.Key)
	})
}
