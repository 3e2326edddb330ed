// Command rangeidx loads game records into a heap file, indexes them by
// home field-goal percentage with an incrementally built and a bulk-loaded
// B+ tree, and compares range query costs against a linear scan.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btree-query-bench/rangeidx/dbms/storage"
	"github.com/btree-query-bench/rangeidx/index"
	"github.com/btree-query-bench/rangeidx/index/bplustree"
	"github.com/btree-query-bench/rangeidx/index/gbtree"
	"github.com/btree-query-bench/rangeidx/index/listindex"
	"github.com/btree-query-bench/rangeidx/index/lsm"
	"github.com/btree-query-bench/rangeidx/report"
	"github.com/cockroachdb/errors"
)

const (
	iterativeName = "Iterative B+ Tree"
	bulkName      = "Bulk Loading B+ Tree"

	heapCachePages = 64
)

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	if err := run(cfg, os.Stdout, logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

// built is one tree with the time it took to construct.
type built struct {
	name  string
	tree  *bplustree.Tree[storage.RID]
	build time.Duration
}

func run(cfg Config, out io.Writer, log *slog.Logger) error {
	loaded, err := storage.LoadRecords(cfg.DataPath)
	if err != nil {
		return err
	}
	log.Info("loaded records", "path", cfg.DataPath, "records", len(loaded.Records), "skipped", loaded.Skipped)
	if len(loaded.Records) == 0 {
		return errors.Newf("no usable records in %s", cfg.DataPath)
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		if workDir, err = os.MkdirTemp("", "rangeidx-"); err != nil {
			return errors.Wrap(err, "create work dir")
		}
		defer os.RemoveAll(workDir)
	}
	heap, entries, err := buildHeap(filepath.Join(workDir, "games.heap"), cfg.BlockSize, loaded.Records)
	if err != nil {
		return err
	}
	defer heap.Close()
	log.Info("built heap file", "blocks", heap.NumBlocks(), "block_size", cfg.BlockSize)

	var trees []built
	if cfg.Iterative {
		b, err := buildIterative(cfg.Order, entries)
		if err != nil {
			return err
		}
		trees = append(trees, b)
	}
	bulk, err := buildBulk(cfg.Order, entries)
	if err != nil {
		return err
	}
	trees = append(trees, bulk)
	for _, b := range trees {
		log.Info("built tree", "tree", b.name, "nodes", b.tree.CountNodes(), "levels", b.tree.Levels(), "elapsed", b.build)
	}

	rep := &report.Report{Storage: heap.Stats(), Min: cfg.Min, Max: cfg.Max}
	for _, b := range trees {
		rep.Trees = append(rep.Trees, treeStats(b))
		s, err := search(b, heap, cfg.Min, cfg.Max)
		if err != nil {
			return err
		}
		rep.Searches = append(rep.Searches, s)
	}
	start := time.Now()
	matches, blocks, err := heap.Scan(cfg.Min, cfg.Max)
	if err != nil {
		return err
	}
	rep.Scan = report.ScanStats{DataBlocksAccessed: blocks, Matches: len(matches), Elapsed: time.Since(start)}
	if err := rep.Write(out); err != nil {
		return errors.Wrap(err, "write report")
	}

	if cfg.DOTPath != "" {
		dir, file := filepath.Split(cfg.DOTPath)
		path, err := bulk.tree.Print(dir, strings.TrimSuffix(file, filepath.Ext(file)))
		if err != nil {
			return err
		}
		log.Info("wrote tree diagram", "path", path)
	}
	if cfg.SnapshotPath != "" {
		if err := saveSnapshot(bulk.tree, cfg.SnapshotPath); err != nil {
			return err
		}
		log.Info("saved tree snapshot", "path", cfg.SnapshotPath)
	}

	if !cfg.sweepEnabled() {
		return nil
	}
	return runSweep(cfg, log, heap, entries, trees)
}

// buildHeap appends every record to a fresh heap file and returns the index
// entries pointing at them.
func buildHeap(path string, blockSize int, records []storage.Record) (*storage.HeapFile, []index.Entry[storage.RID], error) {
	heap, err := storage.Create(path, blockSize, heapCachePages)
	if err != nil {
		return nil, nil, err
	}
	entries := make([]index.Entry[storage.RID], len(records))
	for i, r := range records {
		rid, err := heap.Append(r)
		if err != nil {
			heap.Close()
			return nil, nil, errors.Wrapf(err, "append record %d", i)
		}
		entries[i] = index.Entry[storage.RID]{Key: r.Key(), Value: rid}
	}
	if err := heap.Sync(); err != nil {
		heap.Close()
		return nil, nil, err
	}
	return heap, entries, nil
}

func buildIterative(order int, entries []index.Entry[storage.RID]) (built, error) {
	start := time.Now()
	t := bplustree.New[storage.RID](order)
	for _, e := range entries {
		if err := t.Insert(e.Key, e.Value); err != nil {
			return built{}, errors.Wrapf(err, "insert %g", e.Key)
		}
	}
	t.FixLeafLinks()
	b := built{name: iterativeName, tree: t, build: time.Since(start)}
	return b, errors.Wrap(t.Verify(), iterativeName)
}

func buildBulk(order int, entries []index.Entry[storage.RID]) (built, error) {
	start := time.Now()
	t := bplustree.New[storage.RID](order)
	if err := t.BulkLoad(entries); err != nil {
		return built{}, err
	}
	t.FixLeafLinks()
	b := built{name: bulkName, tree: t, build: time.Since(start)}
	return b, errors.Wrap(t.Verify(), bulkName)
}

func treeStats(b built) report.TreeStats {
	return report.TreeStats{
		Name:       b.name,
		Order:      b.tree.Order(),
		Nodes:      b.tree.CountNodes(),
		IndexNodes: b.tree.CountIndexNodes(),
		Levels:     b.tree.Levels(),
		RootKeys:   b.tree.RootKeys(),
	}
}

// search answers [min, max] through the tree, then fetches the matching
// records to count the distinct data blocks they live in.
func search(b built, heap *storage.HeapFile, min, max float64) (report.SearchStats, error) {
	start := time.Now()
	rids, accesses := b.tree.SearchRange(min, max)
	elapsed := time.Since(start)
	recs, blocks, err := heap.Fetch(rids)
	if err != nil {
		return report.SearchStats{}, errors.Wrapf(err, "%s: fetch", b.name)
	}
	return report.SearchStats{
		Name:               b.name,
		IndexNodesAccessed: accesses,
		DataBlocksAccessed: blocks,
		Matches:            len(recs),
		AverageKey:         report.MeanKey(recs),
		Elapsed:            elapsed,
	}, nil
}

// saveSnapshot writes t to path and reads it back to check the file.
func saveSnapshot(t *bplustree.Tree[storage.RID], path string) error {
	if err := t.SaveTo(path); err != nil {
		return err
	}
	back := bplustree.New[storage.RID](t.Order())
	if err := back.LoadFrom(path); err != nil {
		return errors.Wrap(err, "reload snapshot")
	}
	if back.Len() != t.Len() {
		return errors.AssertionFailedf("snapshot holds %d entries, tree %d", back.Len(), t.Len())
	}
	return nil
}

// rangeIndex is a comparison structure that can be built in one pass.
type rangeIndex interface {
	index.Index[storage.RID]
	index.BulkLoader[storage.RID]
}

type baseline struct {
	name   string
	config string
	open   func() (rangeIndex, error)
}

// runSweep queries every structure at a range of widths, then writes the
// CSV rows and the access chart.
func runSweep(cfg Config, log *slog.Logger, heap *storage.HeapFile, entries []index.Entry[storage.RID], trees []built) error {
	var rows []BenchResult
	config := "order=" + strconv.Itoa(cfg.Order)
	for _, b := range trees {
		rows = append(rows, BenchResult{Name: b.name, Config: config, Operation: "Build", LatencyNs: b.build.Nanoseconds(), Accesses: -1})
	}

	var targets []target
	for _, b := range trees {
		targets = append(targets, indexTarget[storage.RID](b.name, b.tree))
	}

	baselines := []baseline{
		{"google/btree", "degree=" + strconv.Itoa(gbtree.DefaultDegree), func() (rangeIndex, error) {
			return gbtree.New[storage.RID](gbtree.DefaultDegree), nil
		}},
		{"List Scan", "", func() (rangeIndex, error) {
			return listindex.NewListIndex[storage.RID](), nil
		}},
	}
	if cfg.LSMDir != "" {
		baselines = append(baselines, baseline{"Pebble LSM", cfg.LSMDir, func() (rangeIndex, error) {
			return lsm.Open[storage.RID](cfg.LSMDir)
		}})
	}
	for _, bl := range baselines {
		idx, err := bl.open()
		if err != nil {
			return errors.Wrapf(err, "open %s", bl.name)
		}
		defer idx.Close()
		start := time.Now()
		if err := idx.BulkLoad(entries); err != nil {
			return errors.Wrapf(err, "load %s", bl.name)
		}
		elapsed := time.Since(start)
		mem := GetDetailedMem()
		rows = append(rows, BenchResult{Name: bl.name, Config: bl.config, Operation: "Build", LatencyNs: elapsed.Nanoseconds(), Accesses: -1, MemMB: mem.AllocMB, Objects: mem.HeapObjects})
		log.Info("loaded baseline", "index", bl.name, "elapsed", elapsed)
		targets = append(targets, indexTarget[storage.RID](bl.name, idx))
	}
	targets = append(targets, scanTarget(heap))

	lo, hi := keyDomain(entries)
	points, err := ExecuteWorkload(rand.New(rand.NewSource(cfg.Seed)), targets, lo, hi, cfg.Queries)
	if err != nil {
		return err
	}
	for _, p := range points {
		r := BenchResult{
			Name:      p.Target,
			Config:    config,
			Operation: "Range width=" + strconv.FormatFloat(p.Width, 'g', 4, 64),
			LatencyNs: p.MeanLatency.Nanoseconds(),
			Accesses:  -1,
		}
		if p.Counted {
			r.Accesses = p.MeanAccesses
		}
		rows = append(rows, r)
	}

	if cfg.CSVPath != "" {
		if err := writeCSV(cfg.CSVPath, rows); err != nil {
			return err
		}
		log.Info("wrote results", "path", cfg.CSVPath, "rows", len(rows))
	}
	if cfg.PlotPath != "" {
		if err := report.PlotAccesses(cfg.PlotPath, accessSeries(points)); err != nil {
			return err
		}
		log.Info("wrote plot", "path", cfg.PlotPath)
	}
	return nil
}

func keyDomain(entries []index.Entry[storage.RID]) (lo, hi float64) {
	lo, hi = entries[0].Key, entries[0].Key
	for _, e := range entries[1:] {
		lo, hi = min(lo, e.Key), max(hi, e.Key)
	}
	return lo, hi
}

func writeCSV(path string, rows []BenchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv")
	}
	for _, r := range rows {
		if err := Record(w, r); err != nil {
			return errors.Wrap(err, "write csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return f.Close()
}
