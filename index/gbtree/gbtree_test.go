package gbtree

import (
	"math"
	"testing"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/stretchr/testify/require"
)

func TestRangeKeepsDuplicatesInInsertionOrder(t *testing.T) {
	x := New[string](0)
	for _, e := range []index.Entry[string]{
		{Key: 0.5, Value: "a"}, {Key: 0.1, Value: "b"}, {Key: 0.5, Value: "c"}, {Key: 0.9, Value: "d"},
	} {
		require.NoError(t, x.Insert(e.Key, e.Value))
	}
	require.Equal(t, 4, x.Len())

	tests := []struct {
		name       string
		start, end float64
		want       []string
	}{
		{"all", math.Inf(-1), math.Inf(1), []string{"b", "a", "c", "d"}},
		{"duplicates", 0.5, 0.5, []string{"a", "c"}},
		{"inclusive bounds", 0.1, 0.9, []string{"b", "a", "c", "d"}},
		{"empty window", 0.6, 0.8, nil},
		{"inverted", 0.9, 0.1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := x.Range(tt.start, tt.end)
			require.NoError(t, err)
			got, err := index.Collect(it)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestBulkLoadReplaces(t *testing.T) {
	x := New[int](4)
	require.NoError(t, x.Insert(1, 1))
	require.NoError(t, x.BulkLoad([]index.Entry[int]{{Key: 3, Value: 30}, {Key: 2, Value: 20}, {Key: 3, Value: 31}}))
	it, err := x.Range(0, 10)
	require.NoError(t, err)
	got, err := index.Collect(it)
	require.NoError(t, err)
	require.Equal(t, []int{20, 30, 31}, got)
}

func TestNaNRejected(t *testing.T) {
	x := New[int](0)
	require.ErrorIs(t, x.Insert(math.NaN(), 1), ErrNaNKey)
	require.ErrorIs(t, x.BulkLoad([]index.Entry[int]{{Key: math.NaN()}}), ErrNaNKey)
	require.Zero(t, x.Len())
}
