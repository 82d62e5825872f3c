package solve

import "github.com/grailbio/matcher/compat"

// Pair computes the Ω subtotal for a single (L, R) bucket pair, per
// spec.md §4.6. L and R need not be pre-sorted by row count; callers
// choose which side is "L" for the row-index build.
func Pair(l, r Bucket, piecePop []int32, n int, ct compat.Table) float64 {
	if len(l.Key) == 0 {
		// Neutral fast path.
		return sumWeights(l.Weights) * sumWeights(r.Weights)
	}

	rowsByPiece := BuildRowIndex(r.Rows)
	cands := BuildCandidates(l.Rows, piecePop, n, ct, rowsByPiece, len(r.Rows))

	popCount := make(map[int32]int, len(l.Key))
	for _, p := range l.Key {
		popCount[p]++
	}

	var total float64
	for r1, row := range l.Rows {
		w1 := l.Weights[r1]
		if w1 == 0 {
			continue
		}

		var unique, colliding []int32
		skipRow := false
		for _, j := range row {
			if int(j) >= len(piecePop) || piecePop[j] == 0 {
				continue
			}
			if cands.Empty(j) {
				skipRow = true
				break
			}
			if popCount[piecePop[j]] == 1 {
				unique = append(unique, j)
			} else {
				colliding = append(colliding, j)
			}
		}
		if skipRow {
			continue
		}

		mask := make([]bool, len(r.Rows))
		for i := range mask {
			mask[i] = true
		}
		eff := append([]float64(nil), r.Weights...)

		emptied := false
		for _, j := range unique {
			counts := cands.CountsFor(j)
			anyLive := false
			for i := range mask {
				if !mask[i] {
					continue
				}
				if counts[i] == 0 {
					mask[i] = false
					continue
				}
				eff[i] *= float64(counts[i])
				anyLive = true
			}
			if !anyLive {
				emptied = true
				break
			}
		}
		if emptied {
			continue
		}

		if len(colliding) == 0 {
			total += w1 * sumMasked(eff, mask)
			continue
		}

		if disjoint(colliding, cands) {
			var s float64
			for i, m := range mask {
				if !m {
					continue
				}
				v := eff[i]
				for _, j := range colliding {
					v *= float64(cands.CountsFor(j)[i])
				}
				s += v
			}
			total += w1 * s
			continue
		}

		total += w1 * branchAndBound(colliding, mask, eff, map[int32]bool{}, cands)
	}
	return total
}

func sumMasked(v []float64, mask []bool) float64 {
	var s float64
	for i, m := range mask {
		if m {
			s += v[i]
		}
	}
	return s
}

// branchAndBound resolves the overlapping-candidate fallback of spec.md
// §4.6 step 6: it enumerates injective assignments of the remaining
// colliding positions to distinct x's, summing eff over rows that
// survive every chosen intersection.
func branchAndBound(rem []int32, mask []bool, eff []float64, used map[int32]bool, cands *Candidates) float64 {
	if len(rem) == 0 {
		return sumMasked(eff, mask)
	}

	type pivotInfo struct {
		j      int32
		viable []int32
	}
	var pivot pivotInfo
	bestCount := -1
	for _, j := range rem {
		var viable []int32
		for _, x := range cands.List(j) {
			if used[x] {
				continue
			}
			xm := cands.xMaskFor(x)
			if anyIntersect(mask, xm) {
				viable = append(viable, x)
			}
		}
		if len(viable) == 0 {
			return 0 // feasibility prune
		}
		if bestCount == -1 || len(viable) < bestCount {
			bestCount = len(viable)
			pivot = pivotInfo{j: j, viable: viable}
			if bestCount == 1 {
				break // early exit
			}
		}
	}

	newRem := make([]int32, 0, len(rem)-1)
	for _, j := range rem {
		if j != pivot.j {
			newRem = append(newRem, j)
		}
	}

	var total float64
	for _, x := range pivot.viable {
		xm := cands.xMaskFor(x)
		newMask := make([]bool, len(mask))
		any := false
		for i := range mask {
			if mask[i] && xm[i] {
				newMask[i] = true
				any = true
			}
		}
		if !any {
			continue
		}
		used[x] = true
		total += branchAndBound(newRem, newMask, eff, used, cands)
		delete(used, x)
	}
	return total
}

func anyIntersect(a, b []bool) bool {
	for i := range a {
		if a[i] && b[i] {
			return true
		}
	}
	return false
}
