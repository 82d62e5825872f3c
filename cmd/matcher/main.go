// matcher enumerates left-half board tilings against a precomputed
// piece library, then solves for Ω, the weighted count of compatible
// left/right tiling pairs.
//
// Usage:
//
//	matcher <input.archive> [<snapshot_out.archive>]
//	matcher --resume <snapshot.archive>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/matcher/archive"
	"github.com/grailbio/matcher/compat"
	"github.com/grailbio/matcher/config"
	"github.com/grailbio/matcher/enum"
	"github.com/grailbio/matcher/piece"
	"github.com/grailbio/matcher/rss"
	"github.com/grailbio/matcher/solve"
	"v.io/x/lib/vlog"
)

var resumeFlag = flag.Bool("resume", false, "treat the input argument as a snapshot archive and skip enumeration")

func main() {
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
  matcher <input.archive> [<snapshot_out.archive>]
      Enumerate tilings from input.archive, solve, and cache the
      enumeration result to snapshot_out.archive (default: a sibling of
      input named "<stem>_snapshot.archive", overridable by
      ENUM_SNAPSHOT_PATH).

  matcher --resume <snapshot.archive>
      Load a previously cached snapshot and solve directly, skipping
      enumeration.
`)
		flag.PrintDefaults()
	}
	flag.Parse()
	shutdown := grail.Init()
	defer shutdown()

	if err := run(); err != nil {
		vlog.Errorf("matcher: %v", err)
		os.Exit(1)
	}
}

func run() error {
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return errors.E("matcher: missing input archive argument")
	}

	workers, ok := config.WorkerCount()
	if !ok {
		workers = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(workers)

	ctx := vcontext.Background()

	watchdog, err := buildWatchdog()
	if err != nil {
		return err
	}

	var omega float64
	if *resumeFlag {
		omega, err = runResume(ctx, args[0])
	} else {
		omega, err = runEnumerateAndSolve(ctx, args[0], snapshotPathFor(args), watchdog)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%g\n", omega)
	return nil
}

func snapshotPathFor(args []string) string {
	if len(args) >= 2 {
		return args[1]
	}
	if p, ok := config.SnapshotPath(); ok {
		return p
	}
	ext := filepath.Ext(args[0])
	stem := strings.TrimSuffix(args[0], ext)
	return stem + "_snapshot" + ext
}

func buildWatchdog() (rss.Watchdog, error) {
	budget, ok := config.RSSBudget()
	if !ok {
		return rss.NoopWatchdog, nil
	}
	w, err := rss.New(budget)
	if err != nil {
		return nil, errors.E(err, "matcher: setting up RSS watchdog")
	}
	return w, nil
}

func runEnumerateAndSolve(ctx context.Context, inputPath, snapshotPath string, watchdog rss.Watchdog) (float64, error) {
	c, err := archive.Open(ctx, inputPath)
	if err != nil {
		return 0, errors.E(err, "matcher: opening input archive")
	}
	lib, err := piece.Load(c)
	if err != nil {
		return 0, errors.E(err, "matcher: loading piece library")
	}

	ct, err := buildCompatTable(c, lib)
	if err != nil {
		return 0, err
	}
	if config.CompatDebug() {
		printCompatSummary(ct)
	}

	firstLimit, _ := config.FirstLimit()
	driver := &enum.Driver{
		Lib:            lib,
		Watchdog:       watchdog,
		PendFlush:      config.PendFlush(),
		FirstRootLimit: firstLimit,
	}
	out, stats, err := driver.Run()
	if err != nil {
		return 0, errors.E(err, "matcher: enumeration")
	}
	if stats.Saturations > 0 {
		vlog.Infof("matcher: %d weight-saturation events during enumeration", stats.Saturations)
	}

	snap := enum.BuildSnapshotArrays(lib, out, ct)
	if err := archive.SaveSnapshot(ctx, snapshotPath, snap); err != nil {
		return 0, errors.E(err, "matcher: caching snapshot to", snapshotPath)
	}

	pd := &solve.PairDriver{
		Buckets:  solve.BucketsFromSnapshot(snap),
		PiecePop: lib.Pops(),
		N:        lib.N,
		Compat:   ct,
	}
	return pd.Run()
}

func runResume(ctx context.Context, snapshotPath string) (float64, error) {
	c, err := archive.Open(ctx, snapshotPath)
	if err != nil {
		return 0, errors.E(err, "matcher: opening snapshot archive")
	}
	snap, err := archive.LoadSnapshot(c)
	if err != nil {
		return 0, errors.E(err, "matcher: loading snapshot")
	}
	if snap.CompatPops == nil {
		return 0, errors.E("matcher: snapshot has no embedded compatibility table; cannot resume")
	}
	ct := compat.FromArchivePops(int(snap.N), snap.CompatPops)
	if err := ct.CheckCoverage(); err != nil {
		return 0, errors.E(err, "matcher: snapshot compatibility table failed coverage check")
	}

	pd := &solve.PairDriver{
		Buckets:  solve.BucketsFromSnapshot(snap),
		PiecePop: snap.JBTRefPop,
		N:        int(snap.N),
		Compat:   ct,
	}
	return pd.Run()
}

// buildCompatTable prefers the input archive's authoritative compat
// table (spec.md §6) and falls back to building one from jbt_ref_comps.
func buildCompatTable(c archive.Reader, lib *piece.Library) (compat.Table, error) {
	a, err := archive.LoadLibraryArrays(c)
	if err != nil {
		return compat.Table{}, errors.E(err, "matcher: re-reading library arrays for compat")
	}
	if a.CompatPops != nil {
		ct := compat.FromArchivePops(lib.N, a.CompatPops)
		if err := ct.CheckCoverage(); err != nil {
			return compat.Table{}, errors.E(err, "matcher: authoritative compatibility table failed coverage check")
		}
		return ct, nil
	}
	if !lib.HasComponents() {
		return compat.Table{}, errors.E("matcher: input archive has neither an authoritative compat table nor jbt_ref_comps")
	}
	comps := make([][3]uint16, lib.M)
	for j := range comps {
		comps[j] = lib.Components(j)
	}
	ct, err := compat.Build(lib.N, lib.Pops(), comps)
	if err != nil {
		return compat.Table{}, errors.E(err, "matcher: building compatibility table")
	}
	if err := ct.CheckCoverage(); err != nil {
		return compat.Table{}, errors.E(err, "matcher: compatibility table failed coverage check")
	}
	return ct, nil
}

func printCompatSummary(ct compat.Table) {
	summary := ct.Summary()
	pops := make([]int32, 0, len(summary))
	for p := range summary {
		pops = append(pops, p)
	}
	sort.Slice(pops, func(i, j int) bool { return pops[i] < pops[j] })
	for _, p := range pops {
		vlog.Infof("matcher: compat[%d] has %d candidate pairs", p, summary[p])
	}
}
