// Package config resolves the environment-variable knobs of spec.md §6/§7
// into typed values, in the same first-non-empty-wins style
// fusion.DefaultOpts uses for its option struct.
package config

import (
	"os"
	"strconv"
)

const defaultPendFlush = 32768

// PendFlush returns the AOBucket early-flush threshold: ENUM_PEND_FLUSH,
// or 32768 if unset/unparseable.
func PendFlush() int {
	if v, ok := parseUint("ENUM_PEND_FLUSH"); ok {
		return v
	}
	return defaultPendFlush
}

// FirstLimit returns the optional cap on root-0's library range
// (ENUM_FIRST_LIMIT), and whether it was set.
func FirstLimit() (limit int, ok bool) {
	return parseUint("ENUM_FIRST_LIMIT")
}

// RSSBudget returns the configured RSS budget in bytes, from the first
// non-empty of ENUM_MAX_RSS_BYTES / ENUM_MAX_RSS_MB / ENUM_MAX_RSS_GB, and
// whether any was set.
func RSSBudget() (bytes uint64, ok bool) {
	if v := os.Getenv("ENUM_MAX_RSS_BYTES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	if v := os.Getenv("ENUM_MAX_RSS_MB"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n * 1 << 20, true
		}
	}
	if v := os.Getenv("ENUM_MAX_RSS_GB"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n * 1 << 30, true
		}
	}
	return 0, false
}

// CompatDebug reports whether ENUM_COMPAT_DEBUG=1 is set.
func CompatDebug() bool {
	return os.Getenv("ENUM_COMPAT_DEBUG") == "1"
}

// SnapshotPath returns the ENUM_SNAPSHOT_PATH override, and whether it was
// set.
func SnapshotPath() (path string, ok bool) {
	v := os.Getenv("ENUM_SNAPSHOT_PATH")
	return v, v != ""
}

// workerCountVars is the worker-count hint chain of spec.md §6, in
// priority order.
var workerCountVars = []string{
	"MATCHER_THREADS",
	"RAYON_NUM_THREADS",
	"SLURM_CPUS_PER_TASK",
	"SLURM_CPUS_ON_NODE",
	"PBS_NP",
	"OMP_NUM_THREADS",
}

// WorkerCount returns the first worker-count hint that parses to a
// positive integer, and whether one was found; callers fall back to
// runtime.NumCPU() when ok is false.
func WorkerCount() (n int, ok bool) {
	for _, name := range workerCountVars {
		if v, ok := parseUint(name); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func parseUint(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
