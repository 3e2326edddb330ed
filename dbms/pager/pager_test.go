package pager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateWriteReadReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.db")
	p, err := Open(path, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.PageCount())

	ids := make([]uint64, 3)
	for i := range ids {
		ids[i], err = p.Allocate()
		require.NoError(t, err)
		pg := new(Page)
		pg[0] = byte(i + 1)
		pg[PageSize-1] = byte(i + 10)
		require.NoError(t, p.Write(ids[i], pg))
	}
	require.Equal(t, []uint64{1, 2, 3}, ids)
	require.NoError(t, p.Close())

	p, err = Open(path, 2)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, uint64(4), p.PageCount())
	for i, id := range ids {
		pg, err := p.Read(id)
		require.NoError(t, err)
		require.Equal(t, byte(i+1), pg[0])
		require.Equal(t, byte(i+10), pg[PageSize-1])
	}
}

func TestReadUsesCache(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "heap.db"), 1)
	require.NoError(t, err)
	defer p.Close()

	a, err := p.Allocate()
	require.NoError(t, err)
	b, err := p.Allocate()
	require.NoError(t, err)

	// Allocate bypasses the cache, so the first read of each page hits disk.
	_, err = p.Read(a)
	require.NoError(t, err)
	_, err = p.Read(a)
	require.NoError(t, err)
	before := p.Stats()
	require.Equal(t, uint64(1), before.CacheHits)

	// capacity 1: reading b evicts a
	_, err = p.Read(b)
	require.NoError(t, err)
	_, err = p.Read(a)
	require.NoError(t, err)
	after := p.Stats()
	require.Equal(t, before.DiskReads+2, after.DiskReads)
	require.Equal(t, before.CacheHits, after.CacheHits)
}

func TestOutOfRange(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "heap.db"), 4)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Read(0)
	require.ErrorIs(t, err, ErrPageRange)
	_, err = p.Read(5)
	require.ErrorIs(t, err, ErrPageRange)
	require.ErrorIs(t, p.Write(1, new(Page)), ErrPageRange)
}

func TestPageCacheEvictsLeastRecent(t *testing.T) {
	c := newPageCache(2)
	p1, p2, p3 := new(Page), new(Page), new(Page)
	c.store(1, p1)
	c.store(2, p2)
	got, ok := c.lookup(1) // 1 becomes most recent
	require.True(t, ok)
	require.Same(t, p1, got)
	c.store(3, p3) // evicts 2
	_, ok = c.lookup(2)
	require.False(t, ok)
	got, _ = c.lookup(3)
	require.Same(t, p3, got)
	require.Equal(t, 2, c.len())

	c.store(1, p2)
	got, _ = c.lookup(1)
	require.Same(t, p2, got)
	require.Equal(t, 2, c.len())
}
