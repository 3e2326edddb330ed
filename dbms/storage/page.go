package storage

import (
	"encoding/binary"

	"github.com/btree-query-bench/rangeidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

// Block page layout:
//
//	[0]     1 byte   page type (TypeHeap)
//	[1-2]   2 bytes  number of records
//	[3-4]   2 bytes  bytes used by the record area
//	[5+]    records, each a uint16 length followed by the serialized record
const (
	TypeHeap = byte(2)

	OffType       = 0
	OffNumRecords = 1
	OffUsed       = 3
	OffRecords    = 5

	lenPrefix = 2

	// MinBlockSize holds the header and one length-prefixed byte.
	MinBlockSize = OffRecords + lenPrefix + 1
)

// ErrCorruptBlock is returned when a page does not decode as a heap block.
var ErrCorruptBlock = errors.New("storage: corrupt block")

// Block is the in-memory form of one heap page.
type Block struct {
	Records []Record
	size    int // block size in bytes, header included
	used    int // bytes used by the record area
}

func newBlock(size int) *Block { return &Block{size: size} }

// CanAdd reports whether r fits in the remaining space.
func (b *Block) CanAdd(r Record) bool {
	return OffRecords+b.used+lenPrefix+r.Size() <= b.size
}

func (b *Block) add(r Record) {
	b.Records = append(b.Records, r)
	b.used += lenPrefix + r.Size()
}

// Used returns the bytes occupied, header included.
func (b *Block) Used() int { return OffRecords + b.used }

func (b *Block) encode(p *pager.Page) {
	clear(p[:])
	p[OffType] = TypeHeap
	binary.LittleEndian.PutUint16(p[OffNumRecords:], uint16(len(b.Records)))
	binary.LittleEndian.PutUint16(p[OffUsed:], uint16(b.used))
	off := OffRecords
	for _, r := range b.Records {
		s := r.Serialize()
		binary.LittleEndian.PutUint16(p[off:], uint16(len(s)))
		off += lenPrefix
		off += copy(p[off:], s)
	}
}

func decodeBlock(p *pager.Page, size int) (*Block, error) {
	if p[OffType] != TypeHeap {
		return nil, errors.Wrapf(ErrCorruptBlock, "page type %d", p[OffType])
	}
	n := int(binary.LittleEndian.Uint16(p[OffNumRecords:]))
	used := int(binary.LittleEndian.Uint16(p[OffUsed:]))
	if OffRecords+used > size {
		return nil, errors.Wrapf(ErrCorruptBlock, "%d bytes used in a %d byte block", used, size)
	}
	b := &Block{Records: make([]Record, 0, n), size: size, used: used}
	off, end := OffRecords, OffRecords+used
	for i := 0; i < n; i++ {
		if off+lenPrefix > end {
			return nil, errors.Wrapf(ErrCorruptBlock, "record %d header past used area", i)
		}
		l := int(binary.LittleEndian.Uint16(p[off:]))
		off += lenPrefix
		if off+l > end {
			return nil, errors.Wrapf(ErrCorruptBlock, "record %d past used area", i)
		}
		r, err := ParseRecord(string(p[off : off+l]))
		if err != nil {
			return nil, errors.WithSecondaryError(errors.Wrapf(ErrCorruptBlock, "record %d: %v", i, err), err)
		}
		b.Records = append(b.Records, r)
		off += l
	}
	return b, nil
}
