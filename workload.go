package main

import (
	"math/rand"
	"time"

	"github.com/btree-query-bench/rangeidx/dbms/storage"
	"github.com/btree-query-bench/rangeidx/index"
	"github.com/btree-query-bench/rangeidx/report"
	"github.com/cockroachdb/errors"
)

// sweepWidths are the range widths queried, as fractions of the key domain.
var sweepWidths = []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.3, 0.5}

// A target answers one range query and reports how many entries matched and,
// when it counts them, how many nodes or blocks it touched.
type target struct {
	name  string
	query func(lo, hi float64) (matches, accesses int, counted bool, err error)
}

type accessCounter interface {
	Accesses() int
}

// indexTarget queries idx through the shared iterator interface. Iterators
// that count their node visits report them.
func indexTarget[V any](name string, idx index.Index[V]) target {
	return target{name: name, query: func(lo, hi float64) (int, int, bool, error) {
		it, err := idx.Range(lo, hi)
		if err != nil {
			return 0, 0, false, err
		}
		n := 0
		for it.Next() {
			n++
		}
		if err := it.Error(); err != nil {
			it.Close()
			return n, 0, false, err
		}
		var accesses int
		ac, counted := it.(accessCounter)
		if counted {
			accesses = ac.Accesses()
		}
		return n, accesses, counted, it.Close()
	}}
}

func scanTarget(h *storage.HeapFile) target {
	return target{name: "Linear Scan", query: func(lo, hi float64) (int, int, bool, error) {
		recs, accesses, err := h.Scan(lo, hi)
		return len(recs), accesses, true, err
	}}
}

// SweepPoint is the mean cost of one target at one range width.
type SweepPoint struct {
	Target       string
	Width        float64
	MeanLatency  time.Duration
	MeanAccesses float64
	MeanMatches  float64
	Counted      bool
}

// ExecuteWorkload runs queries random range queries of each width over
// [lo, hi] against every target. All targets see the same query bounds.
func ExecuteWorkload(rng *rand.Rand, targets []target, lo, hi float64, queries int) ([]SweepPoint, error) {
	span := hi - lo
	var out []SweepPoint
	for _, frac := range sweepWidths {
		width := frac * span
		starts := make([]float64, queries)
		for i := range starts {
			starts[i] = lo + rng.Float64()*(span-width)
		}
		for _, t := range targets {
			var elapsed time.Duration
			var accesses, hits int
			counted := true
			for _, s := range starts {
				start := time.Now()
				n, a, c, err := t.query(s, s+width)
				elapsed += time.Since(start)
				if err != nil {
					return nil, errors.Wrapf(err, "%s: query [%g, %g]", t.name, s, s+width)
				}
				hits += n
				accesses += a
				counted = counted && c
			}
			p := SweepPoint{
				Target:      t.name,
				Width:       width,
				MeanLatency: elapsed / time.Duration(queries),
				MeanMatches: float64(hits) / float64(queries),
				Counted:     counted,
			}
			if counted {
				p.MeanAccesses = float64(accesses) / float64(queries)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// accessSeries groups the counted sweep points into one chart series per
// target, in first-seen order.
func accessSeries(points []SweepPoint) []report.Series {
	var series []report.Series
	pos := make(map[string]int)
	for _, p := range points {
		if !p.Counted {
			continue
		}
		i, ok := pos[p.Target]
		if !ok {
			i = len(series)
			pos[p.Target] = i
			series = append(series, report.Series{Name: p.Target})
		}
		series[i].Points = append(series[i].Points, report.Point{Width: p.Width, Accesses: p.MeanAccesses})
	}
	return series
}
