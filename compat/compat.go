// Package compat builds and serializes the per-population compatibility
// table: for population p, the parallel arrays of piece indices (keyA,
// keyB) whose masks are allowed to co-occur across the two half-boards.
package compat

import (
	"sort"

	"github.com/grailbio/base/errors"
)

// Entry is the per-population compatibility relation: piece j (pop p) is
// compatible with piece x (pop N-p) iff some i has (KeyA[i], KeyB[i]) ==
// (j, x).
type Entry struct {
	KeyA []int32
	KeyB []int32
}

// Swap returns the entry with KeyA/KeyB exchanged, used to mirror an
// entry at population p into population N-p.
func (e Entry) Swap() Entry {
	return Entry{KeyA: e.KeyB, KeyB: e.KeyA}
}

// Table is the compatibility relation for every population p in [1,N-1].
type Table struct {
	N       int
	entries map[int32]Entry
}

// Get returns the entry for population p, and whether it is present.
func (t Table) Get(p int32) (Entry, bool) {
	e, ok := t.entries[p]
	return e, ok
}

// Summary returns, per population, the number of compatible (j,x) pairs
// recorded — the ENUM_COMPAT_DEBUG report. The result is a map, so it has
// no order; callers sort the populations themselves.
func (t Table) Summary() map[int32]int {
	out := make(map[int32]int, len(t.entries))
	for p, e := range t.entries {
		out[p] = len(e.KeyA)
	}
	return out
}

// contiguousOverlap reports whether the bitwise overlap of two masks,
// shifted down to its trailing-zero boundary, is of the form 2^k-1 (a
// single run of set bits with nothing above it).
func contiguousOverlap(u, v uint16) bool {
	o := u & v
	if o == 0 {
		return false
	}
	tz := 0
	for o&(1<<uint(tz)) == 0 {
		tz++
	}
	s := o >> uint(tz)
	return s&(s+1) == 0
}

// compatible implements spec.md §4.5's per-cardinality rule between piece
// a's components and piece b's components, after discarding zero entries
// and ensuring |comps(a)| <= |comps(b)|.
func compatible(a, b [3]uint16) bool {
	ac := nonzero(a)
	bc := nonzero(b)
	if len(ac) > len(bc) {
		ac, bc = bc, ac
	}
	switch {
	case len(ac) == 1 && len(bc) == 1:
		return contiguousOverlap(ac[0], bc[0])
	case len(ac) == 1 && len(bc) == 2:
		return contiguousOverlap(ac[0], bc[1]) && contiguousOverlap(ac[0], bc[0])
	case len(ac) == 1 && len(bc) == 3:
		return contiguousOverlap(ac[0], bc[0]) &&
			contiguousOverlap(ac[0], bc[1]) &&
			contiguousOverlap(ac[0], bc[2])
	case len(ac) == 2 && len(bc) == 2:
		if !contiguousOverlap(ac[1], bc[1]) || !contiguousOverlap(ac[0], bc[0]) {
			return false
		}
		x := contiguousOverlap(ac[1], bc[0])
		y := contiguousOverlap(ac[0], bc[1])
		return x != y // exactly one
	default:
		return false
	}
}

func nonzero(c [3]uint16) []uint16 {
	out := make([]uint16, 0, 3)
	for _, v := range c {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Build synthesizes a compatibility table from per-piece populations and
// component triples, per spec.md §4.5. N is the board size; pops and
// comps are indexed by global piece index.
func Build(n int, pops []int32, comps [][3]uint16) (Table, error) {
	if len(comps) != len(pops) {
		return Table{}, errors.E("compat: len(comps) != len(pops)", len(comps), len(pops))
	}
	t := Table{N: n, entries: make(map[int32]Entry, n-1)}

	byPop := make(map[int32][]int32, n)
	for j, p := range pops {
		if p <= 0 {
			continue // pop 0 is a neutral skip marker, per spec.md §3.
		}
		byPop[p] = append(byPop[p], int32(j))
	}

	for p := int32(1); p <= int32((n-1)/2); p++ {
		q := int32(n) - p
		var keyA, keyB []int32
		for _, j := range byPop[p] {
			for _, x := range byPop[q] {
				if compatible(comps[j], comps[x]) {
					keyA = append(keyA, j)
					keyB = append(keyB, x)
				}
			}
		}
		t.entries[p] = Entry{KeyA: keyA, KeyB: keyB}
		if q != p {
			t.entries[q] = Entry{KeyA: keyB, KeyB: keyA}
		}
	}

	for p := int32(1); p < int32(n); p++ {
		if _, ok := t.entries[p]; !ok {
			t.entries[p] = Entry{}
		}
	}

	return t, nil
}

// FromArchivePops constructs a Table directly from the authoritative
// meta_compat_pops/compat_p{p}_key1/compat_p{p}_key2 triad an archive may
// supply, bypassing Build entirely (spec.md §6: "when present,
// authoritative"). An archive that only stores one side of each
// complementary pair is mirror-filled the same way Build does:
// compat[N-p] defaults to swap(compat[p]) wherever the archive didn't
// supply N-p directly.
func FromArchivePops(n int, raw map[int32][2][]int32) Table {
	t := Table{N: n, entries: make(map[int32]Entry, len(raw))}
	for p, kk := range raw {
		t.entries[p] = Entry{KeyA: kk[0], KeyB: kk[1]}
	}
	supplied := make([]int32, 0, len(raw))
	for p := range raw {
		supplied = append(supplied, p)
	}
	for _, p := range supplied {
		q := int32(n) - p
		if _, ok := t.entries[q]; !ok {
			t.entries[q] = t.entries[p].Swap()
		}
	}
	for p := int32(1); p < int32(n); p++ {
		if _, ok := t.entries[p]; !ok {
			t.entries[p] = Entry{}
		}
	}
	return t
}

// CheckCoverage verifies every p in [1,N-1] has an entry and that the
// table is symmetric: compat[N-p] == swap(compat[p]). This is a fatal
// programming-invariant check per spec.md §7 ("missing-key"); callers
// run it once after Build/Load, never per pair-solve.
func (t Table) CheckCoverage() error {
	for p := int32(1); p < int32(t.N); p++ {
		e, ok := t.entries[p]
		if !ok {
			return errors.E("compat: missing entry for population", p)
		}
		q := int32(t.N) - p
		other, ok := t.entries[q]
		if !ok {
			return errors.E("compat: missing mirror entry for population", q)
		}
		if !equalEntries(e, other.Swap()) {
			return errors.E("compat: entry for population", p, "is not the swap of", q)
		}
	}
	return nil
}

func equalEntries(a, b Entry) bool {
	sa := sortedPairs(a)
	sb := sortedPairs(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

type pair struct{ a, b int32 }

func sortedPairs(e Entry) []pair {
	out := make([]pair, len(e.KeyA))
	for i := range e.KeyA {
		out[i] = pair{e.KeyA[i], e.KeyB[i]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

// Load reconstructs a Table from an archive's CompatPops map, as decoded
// by archive.LoadLibraryArrays/archive.LoadSnapshot.
func Load(n int, raw map[int32][2][]int32) Table {
	return FromArchivePops(n, raw)
}

// Save encodes t in the shape archive.SnapshotArrays.CompatPops expects.
func (t Table) Save() map[int32][2][]int32 {
	out := make(map[int32][2][]int32, len(t.entries))
	for p, e := range t.entries {
		out[p] = [2][]int32{e.KeyA, e.KeyB}
	}
	return out
}
