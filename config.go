package main

import (
	"flag"
	"io"
	"log/slog"
	"math"

	"github.com/btree-query-bench/rangeidx/dbms/pager"
	"github.com/btree-query-bench/rangeidx/dbms/storage"
	"github.com/btree-query-bench/rangeidx/index/bplustree"
	"github.com/cockroachdb/errors"
)

// Config holds the command-line settings of one run.
type Config struct {
	DataPath  string
	Order     int
	BlockSize int
	Min, Max  float64
	Iterative bool

	CSVPath      string
	PlotPath     string
	DOTPath      string
	SnapshotPath string
	LSMDir       string
	WorkDir      string

	Queries  int
	Seed     int64
	LogLevel slog.Level
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("rangeidx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.DataPath, "data", "data/games.txt", "tab-separated games file")
	fs.IntVar(&cfg.Order, "order", 4, "B+ tree order")
	fs.IntVar(&cfg.BlockSize, "block-size", pager.PageSize, "heap block size in bytes")
	fs.Float64Var(&cfg.Min, "min", 0.6, "lower bound of the range query")
	fs.Float64Var(&cfg.Max, "max", 0.9, "upper bound of the range query")
	fs.BoolVar(&cfg.Iterative, "iterative", true, "also build and report the incrementally built tree")
	fs.StringVar(&cfg.CSVPath, "csv", "", "write benchmark rows to this CSV file")
	fs.StringVar(&cfg.PlotPath, "plot", "", "write the range-width sweep chart to this PNG")
	fs.StringVar(&cfg.DOTPath, "dot", "", "write the bulk-loaded tree as Graphviz to this .dot file")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", "", "save the bulk-loaded tree to this file")
	fs.StringVar(&cfg.LSMDir, "lsm-dir", "", "pebble directory for the LSM baseline (empty disables)")
	fs.StringVar(&cfg.WorkDir, "workdir", "", "directory for the heap file (default: a temp dir)")
	fs.IntVar(&cfg.Queries, "queries", 200, "random queries per range width in the sweep")
	fs.Int64Var(&cfg.Seed, "seed", 1, "random seed for the sweep")
	fs.TextVar(&cfg.LogLevel, "log-level", slog.LevelInfo, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.DataPath == "":
		return errors.New("config: -data is required")
	case c.Order < bplustree.MinOrder:
		return errors.Newf("config: order %d below minimum %d", c.Order, bplustree.MinOrder)
	case c.BlockSize < storage.MinBlockSize || c.BlockSize > pager.PageSize:
		return errors.Newf("config: block size %d outside [%d, %d]", c.BlockSize, storage.MinBlockSize, pager.PageSize)
	case math.IsNaN(c.Min) || math.IsNaN(c.Max):
		return errors.New("config: range bounds must be numbers")
	case c.Min > c.Max:
		return errors.Newf("config: empty range [%g, %g]", c.Min, c.Max)
	case c.Queries < 1:
		return errors.Newf("config: queries %d must be positive", c.Queries)
	}
	return nil
}

// sweepEnabled reports whether any output needs the range-width sweep.
func (c *Config) sweepEnabled() bool { return c.CSVPath != "" || c.PlotPath != "" }
