package archive

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// LibraryArrays is the raw, structurally-unvalidated contents of an input
// archive as spec.md §6 names it — piece.Load is responsible for the
// n_roots/offsets/length cross-checks; this function only demands that
// the required members are present and individually well-typed.
type LibraryArrays struct {
	N, M int32

	PreMasks   []uint64
	PrePops    []uint8
	PreJidx    []uint32
	PreOffsets []int64

	JBTRefPop   []int32
	JBTRefComps []uint16 // flattened M*3, empty when absent

	// CompatPops holds the compat_p{p}_key1/compat_p{p}_key2 arrays of an
	// authoritative compatibility table (spec.md §6) when the archive
	// carries one; it is nil when absent.
	CompatPops map[int32][2][]int32 // population p -> (key1, key2)
}

// LoadLibraryArrays reads the named arrays of an input (piece-library)
// archive, per spec.md §6's "Input archive" member list.
func LoadLibraryArrays(r Reader) (*LibraryArrays, error) {
	a := &LibraryArrays{}

	n, err := readScalarI32(r, "N.npy")
	if err != nil {
		return nil, err
	}
	m, err := readScalarI32(r, "M.npy")
	if err != nil {
		return nil, err
	}
	a.N, a.M = n, m

	if a.PreMasks, err = r.ReadU64("pre_masks.npy"); err != nil {
		return nil, errors.E(err, "archive: reading pre_masks.npy")
	}
	if a.PrePops, err = r.ReadU8("pre_pops.npy"); err != nil {
		return nil, errors.E(err, "archive: reading pre_pops.npy")
	}
	if a.PreJidx, err = r.ReadU32("pre_jidx.npy"); err != nil {
		return nil, errors.E(err, "archive: reading pre_jidx.npy")
	}
	if a.PreOffsets, err = r.ReadI64("pre_offsets.npy"); err != nil {
		return nil, errors.E(err, "archive: reading pre_offsets.npy")
	}
	if a.JBTRefPop, err = r.ReadI32("jbt_ref_pop.npy"); err != nil {
		return nil, errors.E(err, "archive: reading jbt_ref_pop.npy")
	}

	if r.Has("jbt_ref_comps.npy") {
		if a.JBTRefComps, err = r.ReadU16("jbt_ref_comps.npy"); err != nil {
			return nil, errors.E(err, "archive: reading jbt_ref_comps.npy")
		}
	}

	if r.Has("meta_compat_pops.npy") {
		pops, err := r.ReadI32("meta_compat_pops.npy")
		if err != nil {
			return nil, errors.E(err, "archive: reading meta_compat_pops.npy")
		}
		a.CompatPops = make(map[int32][2][]int32, len(pops))
		for _, p := range pops {
			k1, err := r.ReadI32(fmt.Sprintf("compat_p%d_key1.npy", p))
			if err != nil {
				return nil, errors.E(err, "archive: reading compat key1 for population", p)
			}
			k2, err := r.ReadI32(fmt.Sprintf("compat_p%d_key2.npy", p))
			if err != nil {
				return nil, errors.E(err, "archive: reading compat key2 for population", p)
			}
			a.CompatPops[p] = [2][]int32{k1, k2}
		}
	}

	return a, nil
}

func readScalarI32(r Reader, name string) (int32, error) {
	v, err := r.ReadI32(name)
	if err != nil {
		return 0, errors.E(err, "archive: reading", name)
	}
	if len(v) != 1 {
		return 0, errors.E("archive: expected 1-element array", name, "got length", len(v))
	}
	return v[0], nil
}
