package index

// Iterator walks the entries of a range in index order.
type Iterator[V any] interface {
	Next() bool
	Key() float64
	Value() V
	Error() error
	Close() error
}

// Collect drains it and closes it.
func Collect[V any](it Iterator[V]) ([]V, error) {
	var out []V
	for it.Next() {
		out = append(out, it.Value())
	}
	if err := it.Error(); err != nil {
		it.Close()
		return out, err
	}
	return out, it.Close()
}

// SliceIterator iterates over pre-materialised entries.
type SliceIterator[V any] struct {
	entries []Entry[V]
	cur     int
}

// NewSliceIterator returns an iterator over entries in slice order.
func NewSliceIterator[V any](entries []Entry[V]) *SliceIterator[V] {
	return &SliceIterator[V]{entries: entries, cur: -1}
}

func (it *SliceIterator[V]) Next() bool {
	if it.cur+1 >= len(it.entries) {
		it.cur = len(it.entries)
		return false
	}
	it.cur++
	return true
}

func (it *SliceIterator[V]) Key() float64 { return it.entries[it.cur].Key }
func (it *SliceIterator[V]) Value() V     { return it.entries[it.cur].Value }
func (it *SliceIterator[V]) Error() error { return nil }
func (it *SliceIterator[V]) Close() error { return nil }
