// Package gbtree adapts github.com/google/btree to the index interfaces. It
// serves as the library baseline in benchmarks and as an oracle in tests.
package gbtree

import (
	"math"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

// DefaultDegree matches the degree google/btree recommends for in-memory use.
const DefaultDegree = 32

var (
	_ index.Index[int]      = (*Index[int])(nil)
	_ index.BulkLoader[int] = (*Index[int])(nil)
)

// ErrNaNKey is returned for keys that have no position in the order.
var ErrNaNKey = errors.New("gbtree: NaN key")

type item[V any] struct {
	key   float64
	seq   uint64 // insertion sequence, breaks ties between equal keys
	value V
}

func less[V any](a, b item[V]) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.seq < b.seq
}

type Index[V any] struct {
	degree int
	tree   *btree.BTreeG[item[V]]
	seq    uint64
}

// New returns an empty index; degree <= 1 selects DefaultDegree.
func New[V any](degree int) *Index[V] {
	if degree <= 1 {
		degree = DefaultDegree
	}
	return &Index[V]{degree: degree, tree: btree.NewG(degree, less[V])}
}

func (x *Index[V]) Insert(key float64, value V) error {
	if math.IsNaN(key) {
		return ErrNaNKey
	}
	x.seq++
	x.tree.ReplaceOrInsert(item[V]{key: key, seq: x.seq, value: value})
	return nil
}

// BulkLoad replaces the contents with entries; input order breaks ties.
func (x *Index[V]) BulkLoad(entries []index.Entry[V]) error {
	for _, e := range entries {
		if math.IsNaN(e.Key) {
			return ErrNaNKey
		}
	}
	x.tree = btree.NewG(x.degree, less[V])
	x.seq = 0
	for _, e := range entries {
		x.seq++
		x.tree.ReplaceOrInsert(item[V]{key: e.Key, seq: x.seq, value: e.Value})
	}
	return nil
}

// Range materialises [start, end]; google/btree only offers callbacks.
func (x *Index[V]) Range(start, end float64) (index.Iterator[V], error) {
	var out []index.Entry[V]
	if start <= end {
		x.tree.AscendGreaterOrEqual(item[V]{key: start}, func(it item[V]) bool {
			if it.key > end {
				return false
			}
			out = append(out, index.Entry[V]{Key: it.key, Value: it.value})
			return true
		})
	}
	return index.NewSliceIterator(out), nil
}

// Len returns the number of entries.
func (x *Index[V]) Len() int { return x.tree.Len() }

func (x *Index[V]) Close() error { return nil }
