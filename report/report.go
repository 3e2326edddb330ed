// Package report renders the index comparison: the text summary printed by
// the CLI and the access-cost chart of a range-width sweep.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/btree-query-bench/rangeidx/dbms/storage"
	"github.com/btree-query-bench/rangeidx/index"
)

// TreeStats describes the shape of one built tree.
type TreeStats struct {
	Name       string
	Order      int
	Nodes      int
	IndexNodes int
	Levels     int
	RootKeys   []float64
}

// SearchStats is the cost of one range query answered through a tree.
type SearchStats struct {
	Name               string
	IndexNodesAccessed int
	DataBlocksAccessed int
	Matches            int
	AverageKey         float64
	Elapsed            time.Duration
}

// ScanStats is the cost of answering the same query with a full scan.
type ScanStats struct {
	DataBlocksAccessed int
	Matches            int
	Elapsed            time.Duration
}

// Report collects everything printed for one run.
type Report struct {
	Storage  storage.Stats
	Min, Max float64
	Trees    []TreeStats
	Searches []SearchStats
	Scan     ScanStats
}

// MeanKey returns the average key of rs, or 0 when rs is empty.
func MeanKey[R index.Keyed](rs []R) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Key()
	}
	return sum / float64(len(rs))
}

// Write prints the report as labelled sections.
func (r *Report) Write(w io.Writer) error {
	pw := &printer{w: w}
	pw.section("Storage Component Statistics")
	pw.line("Block size (bytes)", r.Storage.BlockSize)
	pw.line("Record size", r.Storage.RecordSize)
	pw.line("Total number of records", r.Storage.TotalRecords)
	pw.line("Number of records per block", r.Storage.RecordsPerBlock)
	pw.line("Total number of blocks", r.Storage.TotalBlocks)

	for _, t := range r.Trees {
		pw.section(t.Name + " Statistics")
		pw.line("B+ tree order (n)", t.Order)
		pw.line("Total number of nodes", t.Nodes)
		pw.line("Total number of index nodes", t.IndexNodes)
		pw.line("Number of levels in B+ tree", t.Levels)
		pw.line("Root node keys", formatKeys(t.RootKeys))
	}

	rng := fmt.Sprintf("[%s, %s]", formatKey(r.Min), formatKey(r.Max))
	for _, s := range r.Searches {
		pw.section("Search Operation Statistics (" + s.Name + ") " + rng)
		pw.line("Number of index nodes accessed", s.IndexNodesAccessed)
		pw.line("Number of data blocks accessed", s.DataBlocksAccessed)
		pw.line("Number of records returned", s.Matches)
		pw.line("Average key of returned records", formatKey(s.AverageKey))
		pw.line("Search running time (seconds)", s.Elapsed.Seconds())
	}

	pw.section("Search Operation Statistics (Linear Scan) " + rng)
	pw.line("Number of data blocks accessed", r.Scan.DataBlocksAccessed)
	pw.line("Number of records returned", r.Scan.Matches)
	pw.line("Linear scan running time (seconds)", r.Scan.Elapsed.Seconds())
	return pw.err
}

type printer struct {
	w       io.Writer
	started bool
	err     error
}

func (p *printer) section(title string) {
	if p.started {
		p.printf("\n")
	}
	p.started = true
	p.printf("%s:\n", title)
}

func (p *printer) line(label string, v any) { p.printf("%s: %v\n", label, v) }

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func formatKey(k float64) string { return strconv.FormatFloat(k, 'g', -1, 64) }

func formatKeys(keys []float64) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = formatKey(k)
	}
	return "[" + strings.Join(s, " ") + "]"
}
