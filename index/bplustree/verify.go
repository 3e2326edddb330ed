package bplustree

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ErrInvariant marks structural violations reported by Verify.
var ErrInvariant = errors.New("bplustree: invariant violated")

// Verify checks the structural invariants: key order inside nodes and across
// separators, child counts, node capacity below the root, entry count and
// leaf-chain completeness. It returns the first violation found.
func (t *Tree[V]) Verify() error {
	entries := 0
	var walk func(n node[V], lo, hi float64, depth int) error
	walk = func(n node[V], lo, hi float64, depth int) error {
		if depth > 0 && n.numKeys() > t.order-1 {
			return errors.Wrapf(ErrInvariant, "depth %d: node holds %d keys, order %d", depth, n.numKeys(), t.order)
		}
		switch x := n.(type) {
		case *leafNode[V]:
			if len(x.keys) != len(x.values) {
				return errors.Wrapf(ErrInvariant, "depth %d: leaf has %d keys and %d values", depth, len(x.keys), len(x.values))
			}
			if depth > 0 && len(x.keys) == 0 {
				return errors.Wrapf(ErrInvariant, "depth %d: empty non-root leaf", depth)
			}
			if err := checkKeys(x.keys, lo, hi, depth); err != nil {
				return err
			}
			entries += len(x.keys)
		case *internalNode[V]:
			if len(x.keys) == 0 {
				return errors.Wrapf(ErrInvariant, "depth %d: internal node without keys", depth)
			}
			if len(x.children) != len(x.keys)+1 {
				return errors.Wrapf(ErrInvariant, "depth %d: %d keys but %d children", depth, len(x.keys), len(x.children))
			}
			if err := checkKeys(x.keys, lo, hi, depth); err != nil {
				return err
			}
			for i, c := range x.children {
				clo, chi := lo, hi
				if i > 0 {
					clo = x.keys[i-1]
				}
				if i < len(x.keys) {
					chi = x.keys[i]
				}
				if err := walk(c, clo, chi, depth+1); err != nil {
					return err
				}
			}
		default:
			unknownNode(n)
		}
		return nil
	}
	if err := walk(t.root, math.Inf(-1), math.Inf(1), 0); err != nil {
		return err
	}
	if entries != t.size {
		return errors.Wrapf(ErrInvariant, "tree reports %d entries, leaves hold %d", t.size, entries)
	}
	return t.verifyChain()
}

// checkKeys reports keys out of order or outside [lo, hi].
func checkKeys(keys []float64, lo, hi float64, depth int) error {
	for i, k := range keys {
		if k < lo || k > hi {
			return errors.Wrapf(ErrInvariant, "depth %d: key %v outside [%v, %v]", depth, k, lo, hi)
		}
		if i > 0 && keys[i-1] > k {
			return errors.Wrapf(ErrInvariant, "depth %d: keys %v, %v out of order", depth, keys[i-1], k)
		}
	}
	return nil
}

// verifyChain checks that the forward links visit exactly the leaves of the
// tree, in tree order, and end at the last one.
func (t *Tree[V]) verifyChain() error {
	leaves := t.leaves()
	curr := leaves[0]
	for i, l := range leaves {
		if curr != l {
			return errors.Wrapf(ErrInvariant, "leaf chain diverges from tree order at leaf %d", i)
		}
		curr = curr.next
	}
	if curr != nil {
		return errors.Wrapf(ErrInvariant, "leaf chain continues past the last of %d leaves", len(leaves))
	}
	return nil
}
