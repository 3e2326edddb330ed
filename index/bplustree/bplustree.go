// Package bplustree implements an in-memory B+ tree over float64 keys.
//
// Leaves hold the entries and are linked left to right so that a range scan
// descends once and then follows the chain. Internal nodes hold separator
// keys only. A node overflows when its key count reaches the order and is
// split; leaves copy their first key up, internal nodes move their median up.
//
// The tree is not safe for concurrent use. Readers may share a tree only
// while no goroutine inserts or bulk loads, and even then the access counter
// is racy.
package bplustree

import (
	"math"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/cockroachdb/errors"
)

// MinOrder is the smallest order the tree accepts; smaller values are raised.
const MinOrder = 3

// ErrNaNKey is returned for keys that have no position in the order.
var ErrNaNKey = errors.New("bplustree: NaN key")

var (
	_ index.Index[int]      = (*Tree[int])(nil)
	_ index.BulkLoader[int] = (*Tree[int])(nil)
)

type Tree[V any] struct {
	order    int
	root     node[V]
	size     int
	accesses int
}

// New returns an empty tree whose nodes split once they hold order keys.
func New[V any](order int) *Tree[V] {
	if order < MinOrder {
		order = MinOrder
	}
	return &Tree[V]{
		order: order,
		root:  &leafNode[V]{},
	}
}

// Order returns the maximum number of keys a node may reach before splitting.
func (t *Tree[V]) Order() int { return t.order }

// Len returns the number of entries stored.
func (t *Tree[V]) Len() int { return t.size }

// Accesses returns the node visits counted by the last Insert or SearchRange.
func (t *Tree[V]) Accesses() int { return t.accesses }

// splitResult carries a split up the call stack. ok is false when the child
// absorbed the insert without overflowing.
type splitResult[V any] struct {
	key     float64
	sibling node[V]
	ok      bool
}

// --- INSERT ---

func (t *Tree[V]) Insert(key float64, value V) error {
	if math.IsNaN(key) {
		return ErrNaNKey
	}
	t.accesses = 0
	res := t.insert(t.root, key, value)
	if res.ok {
		// Root split: the only place the tree grows in height.
		t.root = &internalNode[V]{
			keys:     []float64{res.key},
			children: []node[V]{t.root, res.sibling},
		}
	}
	t.size++
	return nil
}

func (t *Tree[V]) insert(n node[V], key float64, value V) splitResult[V] {
	switch x := n.(type) {
	case *leafNode[V]:
		x.insert(key, value)
		if len(x.keys) >= t.order {
			right, sep := x.split()
			return splitResult[V]{key: sep, sibling: right, ok: true}
		}
		return splitResult[V]{}
	case *internalNode[V]:
		t.accesses++
		i := x.route(key)
		res := t.insert(x.children[i], key, value)
		if !res.ok {
			return res
		}
		x.insertChild(i, res.key, res.sibling)
		if len(x.keys) >= t.order {
			right, up := x.split()
			return splitResult[V]{key: up, sibling: right, ok: true}
		}
		return splitResult[V]{}
	default:
		unknownNode(n)
		return splitResult[V]{}
	}
}

func (t *Tree[V]) Close() error { return nil }

func unknownNode(n any) {
	panic(errors.AssertionFailedf("bplustree: unexpected node type %T", n))
}
