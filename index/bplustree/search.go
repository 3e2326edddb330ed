package bplustree

import "github.com/btree-query-bench/rangeidx/index"

// --- RANGE ---

// SearchRange returns the payloads of all entries with min <= key <= max in
// key order, ties in insertion order, together with the number of nodes
// visited: every internal node on the way down plus every leaf scanned.
// min > max yields no payloads.
//
// The descent picks the leftmost child that may hold min, not the insertion
// route, so equal keys split across leaves are all found. When min equals a
// separator the count includes the extra leaves walked before the first
// match.
func (t *Tree[V]) SearchRange(min, max float64) ([]V, int) {
	t.accesses = 0
	it := t.newIterator(min, max)
	var out []V
	for it.Next() {
		out = append(out, it.val)
	}
	t.accesses = it.accesses
	return out, t.accesses
}

// Range returns an iterator over [start, end]. The iterator counts its own
// node visits; see Iterator.Accesses.
func (t *Tree[V]) Range(start, end float64) (index.Iterator[V], error) {
	return t.newIterator(start, end), nil
}

func (t *Tree[V]) newIterator(start, end float64) *Iterator[V] {
	it := &Iterator[V]{start: start, end: end}
	it.curr = t.findLeaf(start, &it.accesses)
	it.accesses++
	return it
}

// findLeaf descends to the leftmost leaf that can hold key, counting one
// visit per internal node.
func (t *Tree[V]) findLeaf(key float64, visits *int) *leafNode[V] {
	n := t.root
	for {
		switch x := n.(type) {
		case *leafNode[V]:
			return x
		case *internalNode[V]:
			*visits++
			n = x.children[x.routeLow(key)]
		default:
			unknownNode(n)
		}
	}
}

// Iterator scans the leaf chain from the leaf found for the range start.
type Iterator[V any] struct {
	curr       *leafNode[V]
	i          int
	start, end float64
	key        float64
	val        V
	accesses   int
	done       bool
}

func (it *Iterator[V]) Next() bool {
	for !it.done && it.curr != nil {
		for it.i < len(it.curr.keys) {
			k := it.curr.keys[it.i]
			if k > it.end {
				it.done = true
				return false
			}
			it.i++
			if k >= it.start {
				it.key = k
				it.val = it.curr.values[it.i-1]
				return true
			}
		}
		// Follow the leaf chain
		it.curr = it.curr.next
		it.i = 0
		if it.curr != nil {
			it.accesses++
		}
	}
	return false
}

// Accesses returns the nodes visited so far, including the descent.
func (it *Iterator[V]) Accesses() int { return it.accesses }

func (it *Iterator[V]) Key() float64 { return it.key }
func (it *Iterator[V]) Value() V     { return it.val }
func (it *Iterator[V]) Error() error { return nil }
func (it *Iterator[V]) Close() error { return nil }
