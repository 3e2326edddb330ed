package bplustree

import "slices"

// node is either a *leafNode or an *internalNode. Traversals switch on the
// concrete type; the unexported marker keeps the set closed.
type node[V any] interface {
	numKeys() int
	sealed()
}

type leafNode[V any] struct {
	keys   []float64
	values []V
	next   *leafNode[V] // next leaf in key order, nil for the last leaf
}

type internalNode[V any] struct {
	keys     []float64
	children []node[V] // always len(keys)+1
}

func (l *leafNode[V]) numKeys() int     { return len(l.keys) }
func (l *leafNode[V]) sealed()          {}
func (n *internalNode[V]) numKeys() int { return len(n.keys) }
func (n *internalNode[V]) sealed()      {}

// insert places the pair after every key <= key, so equal keys keep their
// insertion order. Capacity is the caller's concern.
func (l *leafNode[V]) insert(key float64, value V) {
	i := upperBound(l.keys, key)
	l.keys = slices.Insert(l.keys, i, key)
	l.values = slices.Insert(l.values, i, value)
}

// split moves the upper half into a new right sibling, splices it into the
// leaf chain and returns it with its first key (copied up, not removed).
func (l *leafNode[V]) split() (*leafNode[V], float64) {
	mid := len(l.keys) / 2
	right := &leafNode[V]{
		keys:   append([]float64{}, l.keys[mid:]...),
		values: append([]V{}, l.values[mid:]...),
		next:   l.next,
	}
	l.keys = slices.Clip(l.keys[:mid])
	clear(l.values[mid:])
	l.values = slices.Clip(l.values[:mid])
	l.next = right
	return right, right.keys[0]
}

// route returns the child a key is inserted under: the first i with
// key < keys[i]. Keys equal to a separator go right.
func (n *internalNode[V]) route(key float64) int {
	return upperBound(n.keys, key)
}

// routeLow returns the leftmost child that can hold a key >= key. Range scans
// start there so duplicates straddling a split are not skipped.
func (n *internalNode[V]) routeLow(key float64) int {
	return lowerBound(n.keys, key)
}

// insertChild records that children[pos] split: key becomes the separator at
// pos and child the new children[pos+1].
func (n *internalNode[V]) insertChild(pos int, key float64, child node[V]) {
	n.keys = slices.Insert(n.keys, pos, key)
	n.children = slices.Insert(n.children, pos+1, child)
}

// split promotes keys[mid]; the left half keeps keys[:mid] and
// children[:mid+1], the new right node takes the rest.
func (n *internalNode[V]) split() (*internalNode[V], float64) {
	mid := len(n.keys) / 2
	up := n.keys[mid]
	right := &internalNode[V]{
		keys:     append([]float64{}, n.keys[mid+1:]...),
		children: append([]node[V]{}, n.children[mid+1:]...),
	}
	n.keys = slices.Clip(n.keys[:mid])
	clear(n.children[mid+1:])
	n.children = slices.Clip(n.children[:mid+1])
	return right, up
}

// minKey is the smallest key stored under n, found on the leftmost path.
func minKey[V any](n node[V]) (float64, bool) {
	for {
		switch x := n.(type) {
		case *leafNode[V]:
			if len(x.keys) == 0 {
				return 0, false
			}
			return x.keys[0], true
		case *internalNode[V]:
			n = x.children[0]
		default:
			unknownNode(n)
		}
	}
}

func upperBound(keys []float64, key float64) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		m := (lo + hi) / 2
		if keys[m] <= key {
			lo = m + 1
		} else {
			hi = m
		}
	}
	return lo
}

func lowerBound(keys []float64, key float64) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		m := (lo + hi) / 2
		if keys[m] < key {
			lo = m + 1
		} else {
			hi = m
		}
	}
	return lo
}
