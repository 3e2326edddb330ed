package bplustree

// CountNodes returns the number of nodes reachable from the root.
func (t *Tree[V]) CountNodes() int {
	all, _ := t.countNodes()
	return all
}

// CountIndexNodes returns the number of internal nodes.
func (t *Tree[V]) CountIndexNodes() int {
	_, internal := t.countNodes()
	return internal
}

// countNodes walks the tree breadth first.
func (t *Tree[V]) countNodes() (all, internal int) {
	queue := []node[V]{t.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		all++
		switch x := n.(type) {
		case *leafNode[V]:
		case *internalNode[V]:
			internal++
			queue = append(queue, x.children...)
		default:
			unknownNode(n)
		}
	}
	return all, internal
}

// Levels returns the height of the tree along its leftmost path; a lone leaf
// is one level.
func (t *Tree[V]) Levels() int {
	levels := 1
	n := t.root
	for {
		x, ok := n.(*internalNode[V])
		if !ok {
			return levels
		}
		levels++
		n = x.children[0]
	}
}

// RootKeys returns a copy of the root's keys: separators for an internal
// root, entry keys for a leaf root.
func (t *Tree[V]) RootKeys() []float64 {
	switch x := t.root.(type) {
	case *leafNode[V]:
		return append([]float64{}, x.keys...)
	case *internalNode[V]:
		return append([]float64{}, x.keys...)
	default:
		unknownNode(t.root)
		return nil
	}
}
