// Package piece loads and validates the precomputed piece library: the
// per-root ranges of candidate masks the enumeration driver joins against,
// and the per-piece population/component metadata the compatibility
// builder consumes.
package piece

import (
	"github.com/grailbio/matcher/archive"
	"github.com/grailbio/matcher/board"
	"github.com/pkg/errors"
)

// Library is the structurally-validated view of an input archive: library
// arrays indexed for direct use by the enumeration driver.
type Library struct {
	N int
	M int

	preMasks   []uint64
	prePops    []uint8
	preJidx    []uint32
	preOffsets []int64

	jbtRefPop   []int32
	jbtRefComps [][3]uint16 // nil when the archive has none
}

// Load validates and wraps an archive's library arrays per spec.md §6/§7:
// pre_offsets.last() == nnz, len(jbt_ref_pop) == M, n_roots == N*N/2. Any
// violation is a fatal, wrapped error — these are load-time structural
// preconditions, not recoverable runtime conditions.
func Load(r archive.Reader) (*Library, error) {
	a, err := archive.LoadLibraryArrays(r)
	if err != nil {
		return nil, errors.Wrap(err, "piece: loading library arrays")
	}

	n := int(a.N)
	m := int(a.M)
	nnz := len(a.PreMasks)

	if len(a.PrePops) != nnz || len(a.PreJidx) != nnz {
		return nil, errors.Errorf(
			"piece: pre_masks/pre_pops/pre_jidx length mismatch: %d/%d/%d",
			nnz, len(a.PrePops), len(a.PreJidx))
	}
	nRoots := n * n / 2
	if len(a.PreOffsets) != nRoots+1 {
		return nil, errors.Errorf(
			"piece: pre_offsets length %d, want n_roots+1 = %d (n_roots = N*N/2 = %d)",
			len(a.PreOffsets), nRoots+1, nRoots)
	}
	if int(a.PreOffsets[len(a.PreOffsets)-1]) != nnz {
		return nil, errors.Errorf(
			"piece: pre_offsets.last() = %d, want nnz = %d",
			a.PreOffsets[len(a.PreOffsets)-1], nnz)
	}
	for i := 1; i < len(a.PreOffsets); i++ {
		if a.PreOffsets[i] < a.PreOffsets[i-1] {
			return nil, errors.Errorf("piece: pre_offsets not monotone at index %d", i)
		}
	}
	if len(a.JBTRefPop) != m {
		return nil, errors.Errorf(
			"piece: len(jbt_ref_pop) = %d, want M = %d", len(a.JBTRefPop), m)
	}

	lib := &Library{
		N:          n,
		M:          m,
		preMasks:   a.PreMasks,
		prePops:    a.PrePops,
		preJidx:    a.PreJidx,
		preOffsets: a.PreOffsets,
		jbtRefPop:  a.JBTRefPop,
	}

	if len(a.JBTRefComps) > 0 {
		if len(a.JBTRefComps) != m*3 {
			return nil, errors.Errorf(
				"piece: jbt_ref_comps length %d, want M*3 = %d", len(a.JBTRefComps), m*3)
		}
		lib.jbtRefComps = make([][3]uint16, m)
		for j := 0; j < m; j++ {
			lib.jbtRefComps[j] = [3]uint16{
				a.JBTRefComps[j*3], a.JBTRefComps[j*3+1], a.JBTRefComps[j*3+2],
			}
		}
	}

	half := board.Dims{N: n}.HalfMask()
	for k, mask := range lib.preMasks {
		if mask&^half != 0 {
			return nil, errors.Errorf("piece: entry %d mask is not a subset of half_mask", k)
		}
	}

	return lib, nil
}

// RootRange returns the [lo, hi) index range into the library's parallel
// arrays for entries anchored at root.
func (l *Library) RootRange(root int) (lo, hi int) {
	return int(l.preOffsets[root]), int(l.preOffsets[root+1])
}

// At returns the k'th library entry's mask, population, and global piece
// index.
func (l *Library) At(k int) (mask uint64, pop int, jidx int) {
	return l.preMasks[k], int(l.prePops[k]), int(l.preJidx[k])
}

// Pop returns piece j's population label (jbt_ref_pop[j]).
func (l *Library) Pop(j int) int32 {
	return l.jbtRefPop[j]
}

// Pops returns the full per-piece population array, indexed by global
// piece index.
func (l *Library) Pops() []int32 {
	return l.jbtRefPop
}

// Components returns piece jidx's three component masks, or the zero
// value when the archive carried no jbt_ref_comps table.
func (l *Library) Components(jidx int) [3]uint16 {
	if l.jbtRefComps == nil {
		return [3]uint16{}
	}
	return l.jbtRefComps[jidx]
}

// HasComponents reports whether the archive supplied jbt_ref_comps.
func (l *Library) HasComponents() bool {
	return l.jbtRefComps != nil
}
