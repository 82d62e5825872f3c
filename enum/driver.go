package enum

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/matcher/board"
	"github.com/grailbio/matcher/codec"
	"github.com/grailbio/matcher/piece"
	"github.com/grailbio/matcher/rss"
)

// Stats carries advisory information about an enumeration run, per
// spec.md §4.4/§7: saturation is reported but never fatal.
type Stats struct {
	Saturations int
}

// Driver runs the frontier-parallel tiling enumeration of spec.md §4.4.
type Driver struct {
	Lib       *piece.Library
	Watchdog  rss.Watchdog // required; pass rss.NoopWatchdog to disable.
	PendFlush int          // config.PendFlush()
	FirstRootLimit int     // 0 = unlimited; caps root 0's library range.
}

type codeWeight struct {
	code   codec.Code
	weight uint32
}

// workerResult is the pair of thread-local maps one worker returns from
// joining a single library entry against the live survivors, per spec.md
// §4.4 step 4e.
type workerResult struct {
	frontier  map[int]map[uint64][]codeWeight // nextRoot -> newMask -> batch
	completed map[uint64][]codeWeight         // popKey -> batch
}

func newWorkerResult() *workerResult {
	return &workerResult{
		frontier:  make(map[int]map[uint64][]codeWeight),
		completed: make(map[uint64][]codeWeight),
	}
}

// Run enumerates all left-half tilings and returns the completed-tiling
// output buckets keyed by population-key, plus run statistics.
func (d *Driver) Run() (*ShardedMap, Stats, error) {
	lib := d.Lib
	dims := board.Dims{N: lib.N}
	nRoots := lib.N * lib.N / 2
	bitWidth := codec.Width(lib.M)

	frontiers := make([]*ShardedMap, nRoots)
	for i := range frontiers {
		frontiers[i] = NewShardedMap(d.PendFlush)
	}
	out := NewShardedMap(d.PendFlush)

	// Seed root 0 with the empty partial tiling, weight 1.
	frontiers[0].AppendInto(0, []codec.Code{{}}, []uint32{1})

	var stats Stats
	pops := lib.Pops()

	for i := 0; i < nRoots; i++ {
		entries := frontiers[i].Drain()
		if len(entries) == 0 {
			continue
		}
		// Flush each bucket so its full committed contents are visible.
		pmasks := make([]uint64, len(entries))
		buckets := make([][]codec.Code, len(entries))
		weights := make([][]uint32, len(entries))
		for idx, e := range entries {
			stats.Saturations += e.Bucket.Flush()
			pmasks[idx] = e.Key
			buckets[idx], weights[idx] = e.Bucket.Rows()
		}

		if err := d.Watchdog.Check(); err != nil {
			return nil, stats, errors.E(err, "enum: root", i)
		}

		lo, hi := lib.RootRange(i)
		if i == 0 && d.FirstRootLimit > 0 && hi-lo > d.FirstRootLimit {
			hi = lo + d.FirstRootLimit
		}
		if lo == hi {
			continue
		}

		skipEvil := i >= nRoots-lib.N

		// The library entry's pop is not consulted here: every joined
		// piece, including one with pop == N, has its jidx inserted into
		// the code, so it appears in the tiling's row and population-key.
		results := make([]*workerResult, hi-lo)
		err := traverse.Each(hi-lo, func(offset int) error {
			k := lo + offset
			mask, _, jidx := lib.At(k)
			wr := newWorkerResult()

			for bi, pmask := range pmasks {
				if pmask&mask != 0 {
					continue
				}
				newMask := pmask | mask
				if !skipEvil && dims.DetectEvil(newMask) {
					continue
				}
				codes := buckets[bi]
				ws := weights[bi]
				for ci, c := range codes {
					newCode, ok := c.Insert(jidx, bitWidth)
					if !ok {
						continue
					}
					w := ws[ci]
					x, y, ok := dims.FindRoot(newMask)
					if !ok {
						popVals := make([]int32, newCode.Len())
						for pi, j := range newCode.Values(bitWidth) {
							popVals[pi] = pops[j]
						}
						key := PackPopKey(popVals)
						wr.completed[key] = append(wr.completed[key], codeWeight{newCode, w})
						continue
					}
					nextRoot := x*lib.N + y
					m, ok := wr.frontier[nextRoot]
					if !ok {
						m = make(map[uint64][]codeWeight)
						wr.frontier[nextRoot] = m
					}
					m[newMask] = append(m[newMask], codeWeight{newCode, w})
				}
			}
			results[offset] = wr
			return nil
		})
		if err != nil {
			return nil, stats, errors.E(err, "enum: joining root", i)
		}

		for _, wr := range results {
			if wr == nil {
				continue
			}
			for nextRoot, byMask := range wr.frontier {
				for mask, batch := range byMask {
					codes, ws := splitCodeWeights(batch)
					stats.Saturations += frontiers[nextRoot].AppendInto(mask, codes, ws)
				}
			}
			for key, batch := range wr.completed {
				codes, ws := splitCodeWeights(batch)
				stats.Saturations += out.AppendInto(key, codes, ws)
			}
		}
	}

	stats.Saturations += out.FlushAll()

	return out, stats, nil
}

func splitCodeWeights(batch []codeWeight) ([]codec.Code, []uint32) {
	codes := make([]codec.Code, len(batch))
	weights := make([]uint32, len(batch))
	for i, cw := range batch {
		codes[i] = cw.code
		weights[i] = cw.weight
	}
	return codes, weights
}
