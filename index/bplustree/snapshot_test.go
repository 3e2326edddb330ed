package bplustree

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type rid struct {
	Block int `bson:"b"`
	Slot  int `bson:"s"`
}

func TestSnapshotRoundTrip(t *testing.T) {
	tree := New[rid](4)
	for i := 0; i < 200; i++ {
		require.NoError(t, tree.Insert(float64(i%37)/37, rid{Block: i / 10, Slot: i % 10}))
	}

	var buf bytes.Buffer
	require.NoError(t, tree.WriteSnapshot(&buf))

	restored := New[rid](99)
	require.NoError(t, restored.ReadSnapshot(&buf))
	require.NoError(t, restored.Verify())
	require.Equal(t, tree.Order(), restored.Order())
	require.Equal(t, tree.Len(), restored.Len())
	require.Equal(t, tree.CountNodes(), restored.CountNodes())
	require.Equal(t, tree.Levels(), restored.Levels())
	require.Equal(t, tree.RootKeys(), restored.RootKeys())

	want, wantAccesses := tree.SearchRange(0.2, 0.7)
	got, gotAccesses := restored.SearchRange(0.2, 0.7)
	require.Equal(t, want, got)
	require.Equal(t, wantAccesses, gotAccesses)
}

func TestSnapshotEmptyTree(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New[string](5).WriteSnapshot(&buf))

	restored := New[string](3)
	require.NoError(t, restored.ReadSnapshot(&buf))
	require.Equal(t, 5, restored.Order())
	require.Equal(t, 1, restored.CountNodes())
	got, accesses := restored.SearchRange(0, 1)
	require.Empty(t, got)
	require.Equal(t, 1, accesses)
}

func TestSaveToLoadFrom(t *testing.T) {
	entries := make([]index.Entry[string], 50)
	for i := range entries {
		entries[i] = index.Entry[string]{Key: float64(50 - i), Value: formatKey(float64(50 - i))}
	}
	tree := New[string](6)
	require.NoError(t, tree.BulkLoad(entries))

	path := filepath.Join(t.TempDir(), "tree.bson")
	require.NoError(t, tree.SaveTo(path))

	restored := New[string](3)
	require.NoError(t, restored.LoadFrom(path))
	got, _ := restored.SearchRange(10, 12)
	require.Equal(t, []string{"10", "11", "12"}, got)

	require.Error(t, restored.LoadFrom(filepath.Join(t.TempDir(), "missing.bson")))
}

func TestReadSnapshotRejectsMalformed(t *testing.T) {
	leaf := func(keys ...float64) snapshotNode[int] {
		return snapshotNode[int]{Leaf: true, Keys: keys, Values: make([]int, len(keys)), Next: noLeaf}
	}
	tests := []struct {
		name string
		snap snapshot[int]
	}{
		{"no nodes", snapshot[int]{Order: 4}},
		{"order too small", snapshot[int]{Order: 1, Nodes: []snapshotNode[int]{leaf()}}},
		{"child count", snapshot[int]{Order: 4, Size: 1, Nodes: []snapshotNode[int]{
			{Keys: []float64{1}, Children: []int{1}, Next: noLeaf}, leaf(1),
		}}},
		{"child cycle", snapshot[int]{Order: 4, Size: 2, Nodes: []snapshotNode[int]{
			{Keys: []float64{1}, Children: []int{0, 1}, Next: noLeaf}, leaf(1),
		}}},
		{"unreachable node", snapshot[int]{Order: 4, Size: 1, Nodes: []snapshotNode[int]{leaf(1), leaf(2)}}},
		{"next out of range", snapshot[int]{Order: 4, Size: 1, Nodes: []snapshotNode[int]{
			{Leaf: true, Keys: []float64{1}, Values: []int{0}, Next: 7},
		}}},
		{"keys out of order", snapshot[int]{Order: 4, Size: 2, Nodes: []snapshotNode[int]{leaf(2, 1)}}},
		{"broken chain", snapshot[int]{Order: 4, Size: 2, Nodes: []snapshotNode[int]{
			{Keys: []float64{2}, Children: []int{1, 2}, Next: noLeaf}, leaf(1), leaf(2),
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := bson.Marshal(tt.snap)
			require.NoError(t, err)

			tree := New[int](4)
			require.NoError(t, tree.Insert(5, 5))
			err = tree.ReadSnapshot(bytes.NewReader(data))
			require.ErrorIs(t, err, ErrBadSnapshot)

			if tt.name == "keys out of order" || tt.name == "broken chain" {
				require.ErrorContains(t, err, "invariant violated")
			}

			// previous contents survive a failed restore
			require.Equal(t, 1, tree.Len())
			got, _ := tree.SearchRange(5, 5)
			require.Equal(t, []int{5}, got)
		})
	}
}

func TestExportDOT(t *testing.T) {
	tree := New[int](3)
	for i := 0; i < 12; i++ {
		require.NoError(t, tree.Insert(float64(i), i))
	}
	var buf bytes.Buffer
	require.NoError(t, tree.ExportDOT(&buf))
	out := buf.String()

	require.True(t, strings.HasPrefix(out, "digraph BPlusTree {"))
	require.True(t, strings.HasSuffix(out, "}\n"))
	require.Equal(t, tree.CountIndexNodes(), strings.Count(out, "<B>INTERNAL</B>"))
	leaves := tree.CountNodes() - tree.CountIndexNodes()
	require.Equal(t, leaves, strings.Count(out, "<B>LEAF</B>"))
	require.Equal(t, leaves-1, strings.Count(out, "style=dashed"))
}

func TestPrintWritesDOTFile(t *testing.T) {
	tree := New[int](4)
	require.NoError(t, tree.Insert(1, 1))
	dir := t.TempDir()
	path, err := tree.Print(dir, "tree")
	if err != nil {
		// a broken graphviz install still leaves the dot file behind
		require.FileExists(t, filepath.Join(dir, "tree.dot"))
		return
	}
	require.FileExists(t, path)
	require.FileExists(t, filepath.Join(dir, "tree.dot"))
}
