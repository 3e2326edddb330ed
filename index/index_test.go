package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type keyed float64

func (k keyed) Key() float64 { return float64(k) }

func TestEntriesAndStableSort(t *testing.T) {
	entries := Entries([]keyed{0.5, 0.1, 0.5, 0.3})
	for i := range entries {
		entries[i].Value = keyed(float64(i))
	}
	SortEntries(entries)

	keys := make([]float64, len(entries))
	order := make([]keyed, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
		order[i] = e.Value
	}
	require.Equal(t, []float64{0.1, 0.3, 0.5, 0.5}, keys)
	// ties keep input order
	require.Equal(t, []keyed{1, 3, 0, 2}, order)
}

func TestCollectSliceIterator(t *testing.T) {
	it := NewSliceIterator([]Entry[string]{{Key: 1, Value: "a"}, {Key: 2, Value: "b"}})
	got, err := Collect[string](it)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)
	require.False(t, it.Next())

	empty, err := Collect[string](NewSliceIterator[string](nil))
	require.NoError(t, err)
	require.Empty(t, empty)
}
