// Package pager stores fixed-size pages in a file behind an LRU cache.
package pager

import (
	"container/list"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

const (
	PageSize    = 4096 // 4 KB, matches OS page size
	InvalidPage = ^uint64(0)
)

// ErrPageRange is returned for page IDs that were never allocated.
var ErrPageRange = errors.New("pager: page out of range")

// Page is a raw 4 KB block read from or written to disk.
type Page [PageSize]byte

// Stats counts physical page transfers; cache hits are not disk reads.
type Stats struct {
	DiskReads  uint64
	DiskWrites uint64
	CacheHits  uint64
}

// Pager manages a file of fixed-size pages and caches recently used ones.
type Pager struct {
	file      *os.File
	cache     *pageCache
	pageCount uint64 // total number of pages ever allocated, header included
	stats     Stats
}

// Open opens (or creates) a pager backed by the given file.
// cacheSize is the number of pages to hold in the LRU cache.
func Open(path string, cacheSize int) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open")
	}
	if cacheSize < 1 {
		cacheSize = 1
	}

	p := &Pager{
		file:  f,
		cache: newPageCache(cacheSize),
	}

	// Page 0 holds the page count in its first 8 bytes.
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "pager: stat")
	}
	if info.Size() == 0 {
		p.pageCount = 1
		if err := p.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		pg, err := p.readAt(0)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "pager: read header")
		}
		p.pageCount = binary.LittleEndian.Uint64(pg[:8])
	}
	return p, nil
}

// Allocate reserves a new page on disk and returns its page ID.
func (p *Pager) Allocate() (uint64, error) {
	id := p.pageCount
	p.pageCount++

	// Write an empty page to extend the file.
	var blank Page
	if err := p.writeAt(id, &blank); err != nil {
		return 0, err
	}
	if err := p.writeHeader(); err != nil {
		return 0, err
	}
	return id, nil
}

// Read returns the page with the given ID, from cache or disk. The returned
// page is shared with the cache; copy it before modifying.
func (p *Pager) Read(id uint64) (*Page, error) {
	if id == 0 || id >= p.pageCount {
		return nil, errors.Wrapf(ErrPageRange, "read page %d of %d", id, p.pageCount)
	}
	if pg, ok := p.cache.lookup(id); ok {
		p.stats.CacheHits++
		return pg, nil
	}
	pg, err := p.readAt(id)
	if err != nil {
		return nil, err
	}
	p.cache.store(id, pg)
	return pg, nil
}

// Write writes a page back to disk and updates the cache.
func (p *Pager) Write(id uint64, pg *Page) error {
	if id == 0 || id >= p.pageCount {
		return errors.Wrapf(ErrPageRange, "write page %d of %d", id, p.pageCount)
	}
	p.cache.store(id, pg)
	return p.writeAt(id, pg)
}

// Close flushes and closes the underlying file.
func (p *Pager) Close() error {
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		return errors.Wrap(err, "pager: sync")
	}
	return errors.Wrap(p.file.Close(), "pager: close")
}

// PageCount returns the total number of allocated pages, header included.
func (p *Pager) PageCount() uint64 {
	return p.pageCount
}

// Stats returns the transfer counters since Open.
func (p *Pager) Stats() Stats {
	return p.stats
}

func (p *Pager) readAt(id uint64) (*Page, error) {
	pg := new(Page)
	if _, err := p.file.ReadAt(pg[:], int64(id)*PageSize); err != nil {
		return nil, errors.Wrapf(err, "pager: read page %d", id)
	}
	p.stats.DiskReads++
	return pg, nil
}

func (p *Pager) writeAt(id uint64, pg *Page) error {
	if _, err := p.file.WriteAt(pg[:], int64(id)*PageSize); err != nil {
		return errors.Wrapf(err, "pager: write page %d", id)
	}
	p.stats.DiskWrites++
	return nil
}

func (p *Pager) writeHeader() error {
	var hdr Page
	binary.LittleEndian.PutUint64(hdr[:8], p.pageCount)
	return p.writeAt(0, &hdr)
}

// pageCache holds the most recently used pages. The front of order is the
// most recent one.
type pageCache struct {
	limit int
	order *list.List // of *cachedPage
	byID  map[uint64]*list.Element
}

type cachedPage struct {
	id   uint64
	page *Page
}

func newPageCache(limit int) *pageCache {
	return &pageCache{limit: limit, order: list.New(), byID: make(map[uint64]*list.Element, limit)}
}

func (c *pageCache) lookup(id uint64) (*Page, bool) {
	el, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedPage).page, true
}

// store caches pg under id and evicts the least recently used pages beyond
// the limit.
func (c *pageCache) store(id uint64, pg *Page) {
	if el, ok := c.byID[id]; ok {
		el.Value.(*cachedPage).page = pg
		c.order.MoveToFront(el)
		return
	}
	c.byID[id] = c.order.PushFront(&cachedPage{id: id, page: pg})
	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byID, oldest.Value.(*cachedPage).id)
	}
}

func (c *pageCache) len() int { return c.order.Len() }
