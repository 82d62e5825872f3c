package enum

import (
	"sort"

	"github.com/grailbio/matcher/archive"
	"github.com/grailbio/matcher/codec"
	"github.com/grailbio/matcher/compat"
	"github.com/grailbio/matcher/piece"
)

// BuildSnapshotArrays encodes out's buckets (after FlushAll) into the
// ragged layout spec.md §6 defines for snapshot archives, embedding ct
// so a later --resume run need not recompute it from jbt_ref_comps,
// which the snapshot format does not itself persist. Entries are sorted
// by packed key so bucket numbering (b{i}) is the same across runs,
// independent of ShardedMap's shard iteration order. The zip member
// order Builder.Save writes is not fixed, so the archive bytes
// themselves can differ between runs.
func BuildSnapshotArrays(lib *piece.Library, out *ShardedMap, ct compat.Table) *archive.SnapshotArrays {
	bitWidth := codec.Width(lib.M)
	entries := out.Snapshot()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	s := &archive.SnapshotArrays{
		N:         int32(lib.N),
		JBTRefPop: lib.Pops(),
		Buckets:   make([]archive.BucketArrays, len(entries)),
	}

	keysIndptr := make([]int64, 1, len(entries)+1)
	var keysData []int32
	for i, e := range entries {
		key := UnpackPopKey(e.Key)
		keysData = append(keysData, key...)
		keysIndptr = append(keysIndptr, keysIndptr[len(keysIndptr)-1]+int64(len(key)))
		s.Buckets[i] = encodeBucket(key, e.Bucket, bitWidth)
	}
	s.BucketKeysData = keysData
	s.BucketKeysIndptr = keysIndptr
	s.CompatPops = ct.Save()

	return s
}

func encodeBucket(key []int32, b *AOBucket, bitWidth uint) archive.BucketArrays {
	codes, weights := b.Rows()

	rowsIndptr := make([]int64, 1, len(codes)+1)
	var rowsData []int32
	fWeights := make([]float64, len(weights))
	for r, c := range codes {
		vals := c.Values(bitWidth)
		for _, v := range vals {
			rowsData = append(rowsData, int32(v))
		}
		rowsIndptr = append(rowsIndptr, rowsIndptr[len(rowsIndptr)-1]+int64(len(vals)))
		fWeights[r] = float64(weights[r])
	}

	return archive.BucketArrays{
		Key:        key,
		RowsData:   rowsData,
		RowsIndptr: rowsIndptr,
		Weights:    fWeights,
	}
}
