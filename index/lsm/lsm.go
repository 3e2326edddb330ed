// Package lsm wraps Pebble (CockroachDB's LSM storage engine) behind the
// common Index interface so it can be benchmarked alongside the B+ tree.
package lsm

import (
	"encoding/binary"
	"math"

	"github.com/btree-query-bench/rangeidx/index"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	_ index.Index[int]      = (*LSM[int])(nil)
	_ index.BulkLoader[int] = (*LSM[int])(nil)
)

// ErrNaNKey is returned for keys that have no position in the order.
var ErrNaNKey = errors.New("lsm: NaN key")

const (
	dataPrefix = 'd'
	dataKeyLen = 1 + 8 + 8 // prefix, float key, insertion sequence
)

var seqKey = []byte("m/seq")

type LSM[V any] struct {
	db  *pebble.DB
	seq uint64
}

// valueDoc wraps a payload so any V can be stored as a BSON document.
type valueDoc[V any] struct {
	V V `bson:"v"`
}

// Open opens (or creates) a Pebble database at the given directory path.
func Open[V any](dir string) (*LSM[V], error) {
	return open[V](dir, vfs.Default)
}

// OpenInMemory opens a Pebble database that lives on an in-memory file system.
func OpenInMemory[V any]() (*LSM[V], error) {
	return open[V]("", vfs.NewMem())
}

func open[V any](dir string, fs vfs.FS) (*LSM[V], error) {
	opts := &pebble.Options{
		FS: fs,
		// 16 MB memtable
		MemTableSize: 16 << 20,
		// Allow memtables to queue up while one is flushed.
		MemTableStopWritesThreshold: 4,
		// L0 compaction trigger.
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: open")
	}
	l := &LSM[V]{db: db}
	if err := l.loadSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close persists the sequence counter and shuts down Pebble.
func (l *LSM[V]) Close() error {
	if err := l.storeSeq(); err != nil {
		l.db.Close()
		return err
	}
	return errors.Wrap(l.db.Close(), "lsm: close")
}

// Insert adds an entry; equal keys are kept in insertion order.
func (l *LSM[V]) Insert(key float64, value V) error {
	if math.IsNaN(key) {
		return ErrNaNKey
	}
	v, err := encodeValue(value)
	if err != nil {
		return err
	}
	l.seq++
	if err := l.db.Set(encodeKey(key, l.seq), v, pebble.NoSync); err != nil {
		return errors.Wrap(err, "lsm: set")
	}
	return nil
}

// BulkLoad drops every entry and writes entries in one batch.
func (l *LSM[V]) BulkLoad(entries []index.Entry[V]) error {
	for _, e := range entries {
		if math.IsNaN(e.Key) {
			return ErrNaNKey
		}
	}
	b := l.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange([]byte{dataPrefix}, []byte{dataPrefix + 1}, nil); err != nil {
		return errors.Wrap(err, "lsm: clear")
	}
	l.seq = 0
	for _, e := range entries {
		v, err := encodeValue(e.Value)
		if err != nil {
			return err
		}
		l.seq++
		if err := b.Set(encodeKey(e.Key, l.seq), v, nil); err != nil {
			return errors.Wrap(err, "lsm: batch set")
		}
	}
	return errors.Wrap(b.Commit(pebble.NoSync), "lsm: commit")
}

// Range returns an iterator over all keys in [start, end] inclusive.
func (l *LSM[V]) Range(start, end float64) (index.Iterator[V], error) {
	if start > end {
		return index.NewSliceIterator[V](nil), nil
	}
	iterOpts := &pebble.IterOptions{
		LowerBound: encodeKey(start, 0)[:1+8],
		UpperBound: upperBound(end),
	}
	iter, err := l.db.NewIter(iterOpts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: range")
	}
	iter.First()
	return &rangeIterator[V]{iter: iter, first: true}, nil
}

// ─── Key encoding ─────────────────────────────────────────────────────────────

// sortableBits maps a float64 to a uint64 whose unsigned order matches the
// numeric order: negatives are inverted, positives get the sign bit set.
// -0 is stored as +0 so both zeros share one position.
func sortableBits(f float64) uint64 {
	if f == 0 {
		f = 0
	}
	b := math.Float64bits(f)
	if b&(1<<63) != 0 {
		return ^b
	}
	return b | 1<<63
}

func fromSortableBits(b uint64) float64 {
	if b&(1<<63) != 0 {
		return math.Float64frombits(b &^ (1 << 63))
	}
	return math.Float64frombits(^b)
}

// encodeKey lays out prefix | sortable key | sequence, all big-endian, so
// Pebble's bytewise order is key order with ties broken by insertion.
func encodeKey(k float64, seq uint64) []byte {
	b := make([]byte, dataKeyLen)
	b[0] = dataPrefix
	binary.BigEndian.PutUint64(b[1:9], sortableBits(k))
	binary.BigEndian.PutUint64(b[9:], seq)
	return b
}

// upperBound returns the exclusive bound just past every key equal to end.
func upperBound(end float64) []byte {
	bits := sortableBits(end)
	if bits == math.MaxUint64 {
		return []byte{dataPrefix + 1}
	}
	b := make([]byte, 1+8)
	b[0] = dataPrefix
	binary.BigEndian.PutUint64(b[1:], bits+1)
	return b
}

func decodeKey(b []byte) (float64, error) {
	if len(b) != dataKeyLen || b[0] != dataPrefix {
		return 0, errors.Newf("lsm: unexpected key length %d", len(b))
	}
	return fromSortableBits(binary.BigEndian.Uint64(b[1:9])), nil
}

func encodeValue[V any](v V) ([]byte, error) {
	data, err := bson.Marshal(valueDoc[V]{V: v})
	return data, errors.Wrap(err, "lsm: encode value")
}

func (l *LSM[V]) loadSeq() error {
	val, closer, err := l.db.Get(seqKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "lsm: read sequence")
	}
	defer closer.Close()
	if len(val) != 8 {
		return errors.Newf("lsm: sequence record has %d bytes", len(val))
	}
	l.seq = binary.BigEndian.Uint64(val)
	return nil
}

func (l *LSM[V]) storeSeq() error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, l.seq)
	return errors.Wrap(l.db.Set(seqKey, b, pebble.Sync), "lsm: write sequence")
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator[V any] struct {
	iter  *pebble.Iterator
	first bool
	key   float64
	val   V
	err   error
}

func (it *rangeIterator[V]) Next() bool {
	if it.err != nil {
		return false
	}
	var valid bool
	if it.first {
		// iter.First() was already called in Range(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}
	it.key, it.err = decodeKey(it.iter.Key())
	if it.err != nil {
		return false
	}
	// Value bytes are only valid until the next positioning call; bson copies.
	var doc valueDoc[V]
	if err := bson.Unmarshal(it.iter.Value(), &doc); err != nil {
		it.err = errors.Wrap(err, "lsm: decode value")
		return false
	}
	it.val = doc.V
	return true
}

func (it *rangeIterator[V]) Key() float64 { return it.key }
func (it *rangeIterator[V]) Value() V     { return it.val }

func (it *rangeIterator[V]) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.iter.Error()
}

func (it *rangeIterator[V]) Close() error { return it.iter.Close() }
