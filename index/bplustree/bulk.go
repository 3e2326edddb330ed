package bplustree

import (
	"math"

	"github.com/btree-query-bench/rangeidx/index"
)

// BulkLoad replaces the tree with one built bottom-up from entries. Entries
// are stable-sorted by key (the caller's slice is not modified), packed into
// leaves of order-1 entries, and grouped order children at a time into
// internal levels until a single root remains.
func (t *Tree[V]) BulkLoad(entries []index.Entry[V]) error {
	for _, e := range entries {
		if math.IsNaN(e.Key) {
			return ErrNaNKey
		}
	}
	sorted := append([]index.Entry[V]{}, entries...)
	index.SortEntries(sorted)

	leaves := t.packLeaves(sorted)
	level := make([]node[V], len(leaves))
	for i, l := range leaves {
		level[i] = l
	}
	for len(level) > 1 {
		level = t.buildLevel(level)
	}

	t.root = level[0]
	t.size = len(sorted)
	t.accesses = 0
	return nil
}

func (t *Tree[V]) packLeaves(sorted []index.Entry[V]) []*leafNode[V] {
	capacity := t.order - 1
	if len(sorted) == 0 {
		return []*leafNode[V]{{}}
	}
	leaves := make([]*leafNode[V], 0, (len(sorted)+capacity-1)/capacity)
	for start := 0; start < len(sorted); start += capacity {
		end := min(start+capacity, len(sorted))
		l := &leafNode[V]{
			keys:   make([]float64, 0, end-start),
			values: make([]V, 0, end-start),
		}
		for _, e := range sorted[start:end] {
			l.keys = append(l.keys, e.Key)
			l.values = append(l.values, e.Value)
		}
		if n := len(leaves); n > 0 {
			leaves[n-1].next = l
		}
		leaves = append(leaves, l)
	}
	return leaves
}

// buildLevel groups nodes into parents of up to order children. A trailing
// group of one node is carried up as is instead of being wrapped.
func (t *Tree[V]) buildLevel(level []node[V]) []node[V] {
	parents := make([]node[V], 0, len(level)/t.order+1)
	for start := 0; start < len(level); start += t.order {
		group := level[start:min(start+t.order, len(level))]
		if len(group) == 1 {
			parents = append(parents, group[0])
			continue
		}
		p := &internalNode[V]{
			keys:     make([]float64, 0, len(group)-1),
			children: append([]node[V]{}, group...),
		}
		for _, child := range group[1:] {
			// Separators are subtree minimums so routing stays exact above
			// the first internal level.
			k, _ := minKey[V](child)
			p.keys = append(p.keys, k)
		}
		parents = append(parents, p)
	}
	return parents
}

// FixLeafLinks relinks every leaf to its right neighbour in tree order and
// terminates the chain at the last leaf. It repairs forward links left stale
// by node reuse across rebuilds.
func (t *Tree[V]) FixLeafLinks() {
	leaves := t.leaves()
	for i, l := range leaves {
		if i+1 < len(leaves) {
			l.next = leaves[i+1]
		} else {
			l.next = nil
		}
	}
}

// leaves returns all leaves in left-to-right tree order.
func (t *Tree[V]) leaves() []*leafNode[V] {
	var out []*leafNode[V]
	var walk func(n node[V])
	walk = func(n node[V]) {
		switch x := n.(type) {
		case *leafNode[V]:
			out = append(out, x)
		case *internalNode[V]:
			for _, c := range x.children {
				walk(c)
			}
		default:
			unknownNode(n)
		}
	}
	walk(t.root)
	return out
}
