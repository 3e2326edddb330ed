package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/btree-query-bench/rangeidx/dbms/pager"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

const gamesTSV = "GAME_DATE_EST\tTEAM_ID_home\tPTS_home\tFG_PCT_home\tFT_PCT_home\tFG3_PCT_home\tAST_home\tREB_home\tHOME_TEAM_WINS\n" +
	"22/12/2022\t1610612740\t126\t0.484\t0.926\t0.382\t25\t46\t1\n" +
	"22/12/2022\t1610612762\t120\t0.488\t0.952\t0.457\t16\t40\t1\n" +
	"21/12/2022\t1610612739\t114\t\t0.786\t0.313\t22\t37\t1\n" +
	"21/12/2022\t1610612755\t113\t0.441\n" +
	"21/12/2022\t1610612737\t108\t0.429\t0.667\t0.297\t24\t53\t0\n"

func testRecord(key float64) Record {
	return Record{
		GameDate:     "22/12/2022",
		TeamIDHome:   1610612740,
		PtsHome:      126,
		FGPctHome:    key,
		FTPctHome:    0.926,
		FG3PctHome:   0.382,
		AstHome:      25,
		RebHome:      46,
		HomeTeamWins: 1,
	}
}

func TestRecordSerializeParse(t *testing.T) {
	r := testRecord(0.484)
	s := r.Serialize()
	require.Equal(t, "22/12/2022,1610612740,126,0.484,0.926,0.382,25,46,1", s)
	require.Equal(t, len(s), r.Size())
	require.Equal(t, 0.484, r.Key())

	got, err := ParseRecord(s)
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestParseRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "22/12/2022,1,2,0.5"},
		{"bad int", "22/12/2022,x,126,0.484,0.926,0.382,25,46,1"},
		{"empty float", "22/12/2022,1,126,,0.926,0.382,25,46,1"},
		{"nan key", "22/12/2022,1,126,NaN,0.926,0.382,25,46,1"},
		{"empty date", ",1,126,0.4,0.926,0.382,25,46,1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.line)
			require.Error(t, err)
		})
	}
}

func TestReadRecordsSkipsBadRows(t *testing.T) {
	res, err := ReadRecords(strings.NewReader(gamesTSV))
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Equal(t, 2, res.Skipped)
	require.Equal(t, 0.484, res.Records[0].Key())
	require.Equal(t, 0.429, res.Records[2].Key())
}

func TestLoadRecordsMissingFile(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestBlockEncodeDecode(t *testing.T) {
	b := newBlock(256)
	for _, k := range []float64{0.1, 0.2, 0.3} {
		r := testRecord(k)
		require.True(t, b.CanAdd(r))
		b.add(r)
	}
	p := new(pager.Page)
	b.encode(p)

	got, err := decodeBlock(p, 256)
	require.NoError(t, err)
	require.Equal(t, b.Records, got.Records)
	require.Equal(t, b.Used(), got.Used())
}

func TestBlockCapacity(t *testing.T) {
	r := testRecord(0.5)
	size := OffRecords + 2*(lenPrefix+r.Size())
	b := newBlock(size)
	b.add(r)
	require.True(t, b.CanAdd(r))
	b.add(r)
	require.False(t, b.CanAdd(r))
	require.Equal(t, size, b.Used())
}

func TestDecodeCorruptBlock(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *pager.Page)
	}{
		{"wrong type", func(p *pager.Page) { p[OffType] = 9 }},
		{"used overflow", func(p *pager.Page) { p[OffUsed], p[OffUsed+1] = 0xff, 0xff }},
		{"too many records", func(p *pager.Page) { p[OffNumRecords] = 50 }},
		{"short record", func(p *pager.Page) { p[OffRecords], p[OffRecords+1] = 3, 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBlock(512)
			b.add(testRecord(0.3))
			p := new(pager.Page)
			b.encode(p)
			tt.setup(p)
			_, err := decodeBlock(p, 512)
			require.True(t, errors.Is(err, ErrCorruptBlock), "got %v", err)
			require.ErrorIs(t, err, ErrCorruptBlock)
		})
	}
}

func newHeap(t *testing.T, blockSize int, keys ...float64) (*HeapFile, []RID) {
	t.Helper()
	h, err := Create(filepath.Join(t.TempDir(), "games.heap"), blockSize, 4)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	rids := make([]RID, len(keys))
	for i, k := range keys {
		rids[i], err = h.Append(testRecord(k))
		require.NoError(t, err)
	}
	return h, rids
}

func TestCreateBlockSize(t *testing.T) {
	dir := t.TempDir()
	for _, size := range []int{0, OffRecords, MinBlockSize - 1, pager.PageSize + 1} {
		_, err := Create(filepath.Join(dir, "h"), size, 1)
		require.True(t, errors.Is(err, ErrBlockSize), "size %d", size)
	}
}

func TestHeapAppendLayout(t *testing.T) {
	recSize := testRecord(0.5).Size()
	blockSize := OffRecords + 3*(lenPrefix+recSize)
	h, rids := newHeap(t, blockSize, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7)

	require.Equal(t, 3, h.NumBlocks())
	require.Equal(t, RID{Block: 0, Slot: 0}, rids[0])
	require.Equal(t, RID{Block: 1, Slot: 0}, rids[3])
	require.Equal(t, RID{Block: 2, Slot: 0}, rids[6])

	st := h.Stats()
	require.Equal(t, Stats{
		BlockSize:       blockSize,
		RecordSize:      recSize,
		TotalRecords:    7,
		RecordsPerBlock: 3,
		TotalBlocks:     3,
	}, st)

	all, err := h.Records()
	require.NoError(t, err)
	require.Len(t, all, 7)
	require.Equal(t, 0.7, all[6].Key())
}

func TestHeapRecordTooLarge(t *testing.T) {
	h, _ := newHeap(t, OffRecords+lenPrefix+10)
	_, err := h.Append(testRecord(0.5))
	require.True(t, errors.Is(err, ErrBlockSize))
}

func TestHeapScan(t *testing.T) {
	recSize := testRecord(0.5).Size()
	h, _ := newHeap(t, OffRecords+2*(lenPrefix+recSize), 0.9, 0.1, 0.5, 0.3, 0.7)

	got, accesses, err := h.Scan(0.3, 0.7)
	require.NoError(t, err)
	require.Equal(t, 3, accesses)
	require.Equal(t, 3, h.BlockAccesses())
	keys := make([]float64, len(got))
	for i, r := range got {
		keys[i] = r.Key()
	}
	require.Equal(t, []float64{0.5, 0.3, 0.7}, keys)

	got, _, err = h.Scan(0.8, 0.2)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHeapFetchCountsDistinctBlocks(t *testing.T) {
	recSize := testRecord(0.5).Size()
	h, rids := newHeap(t, OffRecords+2*(lenPrefix+recSize), 0.1, 0.2, 0.3, 0.4, 0.5)

	got, blocks, err := h.Fetch([]RID{rids[0], rids[1], rids[4], rids[0]})
	require.NoError(t, err)
	require.Equal(t, 2, blocks)
	require.Len(t, got, 4)
	require.Equal(t, 0.5, got[2].Key())
	require.Equal(t, 0.1, got[3].Key())

	_, _, err = h.Fetch([]RID{{Block: 0, Slot: 7}})
	require.True(t, errors.Is(err, ErrNoRecord))
	_, _, err = h.Fetch([]RID{{Block: 3}})
	require.True(t, errors.Is(err, ErrNoRecord))

	h.ResetAccessCount()
	require.Zero(t, h.BlockAccesses())
}

func TestHeapSurvivesCacheEviction(t *testing.T) {
	keys := make([]float64, 40)
	recSize := 0
	for i := range keys {
		keys[i] = float64(i) / 40
		recSize = max(recSize, testRecord(keys[i]).Size())
	}
	require.Greater(t, recSize, testRecord(0.5).Size())
	h, _ := newHeap(t, OffRecords+lenPrefix+recSize, keys...)
	require.Equal(t, 40, h.NumBlocks())

	got, accesses, err := h.Scan(0, 1)
	require.NoError(t, err)
	require.Equal(t, 40, accesses)
	require.Len(t, got, 40)
	require.NotZero(t, h.PagerStats().DiskReads)
}
