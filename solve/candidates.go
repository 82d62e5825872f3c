package solve

import (
	"sort"

	"github.com/grailbio/matcher/compat"
)

// Candidates maps a piece index j present in some L row to its sorted,
// deduplicated list of compatible pieces x that are actually present in
// R (cands[j] of spec.md §4.6), plus per-j memoized row-union/row-count
// tables over R's rows.
type Candidates struct {
	cands       map[int32][]int32
	rowsByPiece RowIndex
	xMask       map[int32][]bool
	jCounts     map[int32][]int
	nRows       int
}

// BuildCandidates precomputes cands[j] for every distinct piece index j
// appearing in any row of L with piecePop[j] != 0, per spec.md §4.6's
// "Candidate precompute" step.
func BuildCandidates(lRows [][]int32, piecePop []int32, n int, ct compat.Table, rowsByPiece RowIndex, nRows int) *Candidates {
	c := &Candidates{
		cands:       make(map[int32][]int32),
		rowsByPiece: rowsByPiece,
		xMask:       make(map[int32][]bool),
		jCounts:     make(map[int32][]int),
		nRows:       nRows,
	}
	seen := map[int32]bool{}
	for _, row := range lRows {
		for _, j := range row {
			if seen[j] || int(j) >= len(piecePop) || piecePop[j] == 0 {
				continue
			}
			seen[j] = true
			c.cands[j] = candidatesForPiece(j, piecePop[j], n, ct, rowsByPiece)
		}
	}
	return c
}

func candidatesForPiece(j int32, p int32, n int, ct compat.Table, rowsByPiece RowIndex) []int32 {
	var entry compat.Entry
	if int(2*p) > n {
		e, _ := ct.Get(int32(n) - p)
		entry = e.Swap()
	} else {
		e, _ := ct.Get(p)
		entry = e
	}

	seen := map[int32]bool{}
	var out []int32
	for i, a := range entry.KeyA {
		if a != j {
			continue
		}
		x := entry.KeyB[i]
		if _, ok := rowsByPiece[x]; !ok {
			continue
		}
		if seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Empty reports whether cands[j] has no entries.
func (c *Candidates) Empty(j int32) bool { return len(c.cands[j]) == 0 }

// List returns cands[j].
func (c *Candidates) List(j int32) []int32 { return c.cands[j] }

// xMaskFor returns a bool mask over R's rows recording membership in
// rows_by_piece[x], memoized across the pair's lifetime.
func (c *Candidates) xMaskFor(x int32) []bool {
	if m, ok := c.xMask[x]; ok {
		return m
	}
	m := make([]bool, c.nRows)
	for _, r := range c.rowsByPiece[x] {
		m[r] = true
	}
	c.xMask[x] = m
	return m
}

// CountsFor returns, per row r of R, the number of x in cands[j] with r
// in rows_by_piece[x] — the "counts[r]" table of spec.md §4.6 step 3,
// memoized per j for the pair's lifetime.
func (c *Candidates) CountsFor(j int32) []int {
	if counts, ok := c.jCounts[j]; ok {
		return counts
	}
	counts := make([]int, c.nRows)
	for _, x := range c.cands[j] {
		m := c.xMaskFor(x)
		for r, in := range m {
			if in {
				counts[r]++
			}
		}
	}
	c.jCounts[j] = counts
	return counts
}

// disjoint reports whether the candidate lists of rem's pieces share no
// common x, per spec.md §4.6 step 5.
func disjoint(rem []int32, c *Candidates) bool {
	seen := map[int32]bool{}
	for _, j := range rem {
		for _, x := range c.cands[j] {
			if seen[x] {
				return false
			}
		}
		for _, x := range c.cands[j] {
			seen[x] = true
		}
	}
	return true
}
