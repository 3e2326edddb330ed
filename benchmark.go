package main

import (
	"encoding/csv"
	"runtime"
	"strconv"
)

var csvHeader = []string{"Structure", "Config", "Operation", "LatencyNs", "Accesses", "MemMB", "HeapObjects"}

// BenchResult is one CSV row: a timed operation on one structure.
type BenchResult struct {
	Name      string
	Config    string
	Operation string
	LatencyNs int64
	Accesses  float64 // mean accesses per operation, -1 when not measured
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// GetDetailedMem samples live heap usage after a forced GC.
func GetDetailedMem() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

// Record writes res as one CSV row.
func Record(w *csv.Writer, res BenchResult) error {
	accesses := ""
	if res.Accesses >= 0 {
		accesses = strconv.FormatFloat(res.Accesses, 'f', 2, 64)
	}
	return w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		accesses,
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}
