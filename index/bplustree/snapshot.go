package bplustree

import (
	"io"

	"github.com/btree-query-bench/rangeidx/persist"
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrBadSnapshot is returned when a snapshot does not describe a valid tree.
var ErrBadSnapshot = errors.New("bplustree: malformed snapshot")

const noLeaf = -1

// snapshot lists nodes breadth first; node 0 is the root and children always
// carry larger ids than their parent.
type snapshot[V any] struct {
	Order int               `bson:"order"`
	Size  int               `bson:"size"`
	Nodes []snapshotNode[V] `bson:"nodes"`
}

type snapshotNode[V any] struct {
	Leaf     bool      `bson:"leaf"`
	Keys     []float64 `bson:"keys"`
	Values   []V       `bson:"values,omitempty"`
	Children []int     `bson:"children,omitempty"`
	Next     int       `bson:"next"`
}

// WriteSnapshot encodes the whole tree, including leaf links, as one BSON
// document.
func (t *Tree[V]) WriteSnapshot(w io.Writer) error {
	data, err := bson.Marshal(t.snapshot())
	if err != nil {
		return errors.Wrap(err, "bplustree: encode snapshot")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "bplustree: write snapshot")
}

// ReadSnapshot replaces the tree with the one encoded in r. On error the
// tree is left unchanged.
func (t *Tree[V]) ReadSnapshot(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "bplustree: read snapshot")
	}
	var s snapshot[V]
	if err := bson.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "bplustree: decode snapshot")
	}
	return t.restore(s)
}

func (t *Tree[V]) SaveTo(path string) error { return persist.Save(path, t.snapshot()) }

func (t *Tree[V]) LoadFrom(path string) error {
	var s snapshot[V]
	if err := persist.Load(path, &s); err != nil {
		return err
	}
	return t.restore(s)
}

func (t *Tree[V]) snapshot() snapshot[V] {
	ids := map[node[V]]int{t.root: 0}
	order := []node[V]{t.root}
	for i := 0; i < len(order); i++ {
		if x, ok := order[i].(*internalNode[V]); ok {
			for _, c := range x.children {
				ids[c] = len(order)
				order = append(order, c)
			}
		}
	}

	s := snapshot[V]{Order: t.order, Size: t.size, Nodes: make([]snapshotNode[V], len(order))}
	for i, n := range order {
		switch x := n.(type) {
		case *leafNode[V]:
			next := noLeaf
			if x.next != nil {
				id, ok := ids[x.next]
				if ok {
					next = id
				}
			}
			s.Nodes[i] = snapshotNode[V]{Leaf: true, Keys: x.keys, Values: x.values, Next: next}
		case *internalNode[V]:
			children := make([]int, len(x.children))
			for j, c := range x.children {
				children[j] = ids[c]
			}
			s.Nodes[i] = snapshotNode[V]{Keys: x.keys, Children: children, Next: noLeaf}
		default:
			unknownNode(n)
		}
	}
	return s
}

func (t *Tree[V]) restore(s snapshot[V]) error {
	if len(s.Nodes) == 0 {
		return errors.Wrap(ErrBadSnapshot, "no nodes")
	}
	if s.Order < MinOrder {
		return errors.Wrapf(ErrBadSnapshot, "order %d below %d", s.Order, MinOrder)
	}

	nodes := make([]node[V], len(s.Nodes))
	for i, sn := range s.Nodes {
		if sn.Leaf {
			nodes[i] = &leafNode[V]{keys: sn.Keys, values: sn.Values}
		} else {
			nodes[i] = &internalNode[V]{keys: sn.Keys}
		}
	}

	referenced := make([]bool, len(s.Nodes))
	for i, sn := range s.Nodes {
		switch x := nodes[i].(type) {
		case *leafNode[V]:
			if sn.Next == noLeaf {
				continue
			}
			if sn.Next <= 0 || sn.Next >= len(nodes) {
				return errors.Wrapf(ErrBadSnapshot, "node %d: next leaf %d out of range", i, sn.Next)
			}
			next, ok := nodes[sn.Next].(*leafNode[V])
			if !ok {
				return errors.Wrapf(ErrBadSnapshot, "node %d: next %d is not a leaf", i, sn.Next)
			}
			x.next = next
		case *internalNode[V]:
			if len(sn.Children) != len(sn.Keys)+1 {
				return errors.Wrapf(ErrBadSnapshot, "node %d: %d keys but %d children", i, len(sn.Keys), len(sn.Children))
			}
			x.children = make([]node[V], len(sn.Children))
			for j, c := range sn.Children {
				if c <= i || c >= len(nodes) || referenced[c] {
					return errors.Wrapf(ErrBadSnapshot, "node %d: bad child id %d", i, c)
				}
				referenced[c] = true
				x.children[j] = nodes[c]
			}
		}
	}
	for i := 1; i < len(referenced); i++ {
		if !referenced[i] {
			return errors.Wrapf(ErrBadSnapshot, "node %d is unreachable", i)
		}
	}

	prev := *t
	t.order, t.size, t.root, t.accesses = s.Order, s.Size, nodes[0], 0
	if err := t.Verify(); err != nil {
		*t = prev
		return errors.WithSecondaryError(errors.Wrapf(ErrBadSnapshot, "restored tree: %v", err), err)
	}
	return nil
}
