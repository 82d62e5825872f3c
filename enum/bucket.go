// Package enum implements the frontier and output buckets of spec.md §4.3
// and the enumeration driver of §4.4: a frontier-parallel search over
// left-half piece placements that prunes evil holes, deduplicates partial
// signatures via packed codes, and emits completed tilings grouped by
// population-multiset key.
package enum

import (
	"sort"

	"github.com/grailbio/matcher/codec"
)

const maxWeight = 1<<32 - 1

// AOBucket accumulates (code, weight) pairs: committed entries are kept
// sorted and deduplicated by code; pending entries accumulate until a
// flush folds them into committed, per spec.md §4.3.
type AOBucket struct {
	committedCodes   []codec.Code
	committedWeights []uint32

	pendingCodes   []codec.Code
	pendingWeights []uint32

	pendFlush int
}

// NewAOBucket returns an empty bucket with the given early-flush
// threshold (config.PendFlush(), typically).
func NewAOBucket(pendFlush int) *AOBucket {
	return &AOBucket{pendFlush: pendFlush}
}

// AppendBatch appends codes/weights to the pending buffer, flushing if the
// pending size reaches the configured threshold.
func (b *AOBucket) AppendBatch(codes []codec.Code, weights []uint32) (saturations int) {
	b.pendingCodes = append(b.pendingCodes, codes...)
	b.pendingWeights = append(b.pendingWeights, weights...)
	if len(b.pendingCodes) >= b.pendFlush {
		return b.Flush()
	}
	return 0
}

// Flush merges pending into committed: concatenate, sort by code, merge
// equal-code runs by summing weights with saturation at 2^32-1. Returns
// the number of saturation events observed during the merge.
func (b *AOBucket) Flush() (saturations int) {
	if len(b.pendingCodes) == 0 {
		return 0
	}
	allCodes := append(b.committedCodes, b.pendingCodes...)
	allWeights := append(b.committedWeights, b.pendingWeights...)
	b.pendingCodes = nil
	b.pendingWeights = nil

	idx := make([]int, len(allCodes))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		return allCodes[idx[i]].Less(allCodes[idx[j]])
	})

	mergedCodes := make([]codec.Code, 0, len(idx))
	mergedWeights := make([]uint32, 0, len(idx))
	for _, i := range idx {
		c, w := allCodes[i], allWeights[i]
		if n := len(mergedCodes); n > 0 && mergedCodes[n-1].Equal(c) {
			sum := uint64(mergedWeights[n-1]) + uint64(w)
			if sum > maxWeight {
				sum = maxWeight
				saturations++
			}
			mergedWeights[n-1] = uint32(sum)
			continue
		}
		mergedCodes = append(mergedCodes, c)
		mergedWeights = append(mergedWeights, w)
	}

	b.committedCodes = mergedCodes
	b.committedWeights = mergedWeights
	return saturations
}

// Rows returns the bucket's committed contents: codes and their weights.
// Callers must Flush first to see pending entries reflected.
func (b *AOBucket) Rows() ([]codec.Code, []uint32) {
	return b.committedCodes, b.committedWeights
}

// Len returns the number of committed rows.
func (b *AOBucket) Len() int {
	return len(b.committedCodes)
}
