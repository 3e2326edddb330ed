package storage

import (
	"os"

	"github.com/btree-query-bench/rangeidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

// DefaultBlockSize is one pager page.
const DefaultBlockSize = pager.PageSize

// ErrBlockSize is returned for block sizes that cannot hold a record or do
// not fit in a page.
var ErrBlockSize = errors.New("storage: invalid block size")

// ErrNoRecord is returned when a RID does not name a stored record.
var ErrNoRecord = errors.New("storage: no such record")

// RID locates a record: its block number and position within the block.
type RID struct {
	Block int `bson:"b"`
	Slot  int `bson:"s"`
}

// Stats summarises the heap file layout.
type Stats struct {
	BlockSize       int
	RecordSize      int // size of the first record
	TotalRecords    int
	RecordsPerBlock int // records in the first block
	TotalBlocks     int
}

// HeapFile appends records to fixed-size blocks, one block per pager page.
// Every ReadBlock counts as one block access.
type HeapFile struct {
	pg        *pager.Pager
	blockSize int
	pages     []uint64 // page ID of each block
	tail      *Block   // last block, written on Sync or when it fills up
	tailDirty bool
	stats     Stats
	accesses  int
}

// Create truncates path and returns an empty heap file over it.
func Create(path string, blockSize, cachePages int) (*HeapFile, error) {
	if blockSize < MinBlockSize || blockSize > pager.PageSize {
		return nil, errors.Wrapf(ErrBlockSize, "%d bytes (max %d)", blockSize, pager.PageSize)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "storage: remove old heap file")
	}
	pg, err := pager.Open(path, cachePages)
	if err != nil {
		return nil, err
	}
	return &HeapFile{pg: pg, blockSize: blockSize, stats: Stats{BlockSize: blockSize}}, nil
}

// Append stores r in the last block, starting a new block when it is full.
func (h *HeapFile) Append(r Record) (RID, error) {
	if OffRecords+lenPrefix+r.Size() > h.blockSize {
		return RID{}, errors.Wrapf(ErrBlockSize, "record of %d bytes exceeds block", r.Size())
	}
	if h.tail == nil || !h.tail.CanAdd(r) {
		if err := h.Sync(); err != nil {
			return RID{}, err
		}
		id, err := h.pg.Allocate()
		if err != nil {
			return RID{}, err
		}
		h.pages = append(h.pages, id)
		h.tail = newBlock(h.blockSize)
	}
	h.tail.add(r)
	h.tailDirty = true

	if h.stats.TotalRecords == 0 {
		h.stats.RecordSize = r.Size()
	}
	h.stats.TotalRecords++
	h.stats.TotalBlocks = len(h.pages)
	if len(h.pages) == 1 {
		h.stats.RecordsPerBlock = len(h.tail.Records)
	}
	return RID{Block: len(h.pages) - 1, Slot: len(h.tail.Records) - 1}, nil
}

// Sync writes the last block if it changed since it was last written.
func (h *HeapFile) Sync() error {
	if !h.tailDirty {
		return nil
	}
	p := new(pager.Page)
	h.tail.encode(p)
	if err := h.pg.Write(h.pages[len(h.pages)-1], p); err != nil {
		return err
	}
	h.tailDirty = false
	return nil
}

// NumBlocks returns the number of blocks in the file.
func (h *HeapFile) NumBlocks() int { return len(h.pages) }

// Stats returns the layout summary.
func (h *HeapFile) Stats() Stats { return h.stats }

// BlockAccesses returns the block reads counted since the last reset.
func (h *HeapFile) BlockAccesses() int { return h.accesses }

func (h *HeapFile) ResetAccessCount() { h.accesses = 0 }

// PagerStats exposes the physical I/O beneath the block accesses.
func (h *HeapFile) PagerStats() pager.Stats { return h.pg.Stats() }

// ReadBlock reads and decodes block i, counting one block access.
func (h *HeapFile) ReadBlock(i int) (*Block, error) {
	if i < 0 || i >= len(h.pages) {
		return nil, errors.Wrapf(ErrNoRecord, "block %d of %d", i, len(h.pages))
	}
	if err := h.Sync(); err != nil {
		return nil, err
	}
	p, err := h.pg.Read(h.pages[i])
	if err != nil {
		return nil, err
	}
	h.accesses++
	return decodeBlock(p, h.blockSize)
}

// Scan reads every block and returns the records with min <= key <= max in
// file order, with the number of blocks read. The access counter is reset
// first.
func (h *HeapFile) Scan(min, max float64) ([]Record, int, error) {
	h.ResetAccessCount()
	var out []Record
	for i := range h.pages {
		b, err := h.ReadBlock(i)
		if err != nil {
			return nil, h.accesses, err
		}
		for _, r := range b.Records {
			if k := r.Key(); k >= min && k <= max {
				out = append(out, r)
			}
		}
	}
	return out, h.accesses, nil
}

// Fetch returns the records named by rids, in rids order, reading each
// distinct block once. The access counter is reset first, so the count
// returned is the number of distinct data blocks touched.
func (h *HeapFile) Fetch(rids []RID) ([]Record, int, error) {
	h.ResetAccessCount()
	blocks := make(map[int]*Block)
	out := make([]Record, 0, len(rids))
	for _, rid := range rids {
		b, ok := blocks[rid.Block]
		if !ok {
			var err error
			if b, err = h.ReadBlock(rid.Block); err != nil {
				return nil, h.accesses, err
			}
			blocks[rid.Block] = b
		}
		if rid.Slot < 0 || rid.Slot >= len(b.Records) {
			return nil, h.accesses, errors.Wrapf(ErrNoRecord, "block %d slot %d", rid.Block, rid.Slot)
		}
		out = append(out, b.Records[rid.Slot])
	}
	return out, h.accesses, nil
}

// Records returns every stored record in file order.
func (h *HeapFile) Records() ([]Record, error) {
	out := make([]Record, 0, h.stats.TotalRecords)
	for i := range h.pages {
		b, err := h.ReadBlock(i)
		if err != nil {
			return nil, err
		}
		out = append(out, b.Records...)
	}
	return out, nil
}

// Close writes the last block and closes the pager.
func (h *HeapFile) Close() error {
	if err := h.Sync(); err != nil {
		h.pg.Close()
		return err
	}
	return h.pg.Close()
}
