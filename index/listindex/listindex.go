// Package listindex is the unordered baseline: entries are appended in
// arrival order and every range query scans all of them.
package listindex

import (
	"math"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/cockroachdb/errors"
)

var (
	_ index.Index[int]      = (*ListIndex[int])(nil)
	_ index.BulkLoader[int] = (*ListIndex[int])(nil)
)

// ErrNaNKey is returned for keys that have no position in the order.
var ErrNaNKey = errors.New("listindex: NaN key")

type ListIndex[V any] struct {
	Data []index.Entry[V]
}

func NewListIndex[V any]() *ListIndex[V] {
	return &ListIndex[V]{
		Data: make([]index.Entry[V], 0),
	}
}

func (l *ListIndex[V]) Insert(key float64, value V) error {
	if math.IsNaN(key) {
		return ErrNaNKey
	}
	l.Data = append(l.Data, index.Entry[V]{Key: key, Value: value})
	return nil
}

func (l *ListIndex[V]) BulkLoad(entries []index.Entry[V]) error {
	for _, e := range entries {
		if math.IsNaN(e.Key) {
			return ErrNaNKey
		}
	}
	l.Data = append(make([]index.Entry[V], 0, len(entries)), entries...)
	return nil
}

// Range yields matches in storage order, not key order.
func (l *ListIndex[V]) Range(start, end float64) (index.Iterator[V], error) {
	return &ListIterator[V]{
		data:  l.Data,
		cur:   -1,
		start: start,
		end:   end,
	}, nil
}

func (l *ListIndex[V]) Close() error { return nil }

type ListIterator[V any] struct {
	data    []index.Entry[V]
	cur     int
	start   float64
	end     float64
	scanned int
}

func (it *ListIterator[V]) Next() bool {
	it.cur++
	for it.cur < len(it.data) {
		it.scanned++
		if it.data[it.cur].Key >= it.start && it.data[it.cur].Key <= it.end {
			return true
		}
		it.cur++
	}
	return false
}

// Accesses returns how many entries the scan has examined.
func (it *ListIterator[V]) Accesses() int { return it.scanned }

func (it *ListIterator[V]) Key() float64 { return it.data[it.cur].Key }
func (it *ListIterator[V]) Value() V     { return it.data[it.cur].Value }
func (it *ListIterator[V]) Error() error { return nil }
func (it *ListIterator[V]) Close() error { return nil }
