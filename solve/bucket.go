// Package solve implements the pair solver and pair driver: given the
// output buckets an enumeration run (or a loaded snapshot) produced, it
// computes Ω, the weighted count of compatible left/right tiling pairs,
// per spec.md §4.6/§4.7.
package solve

import "github.com/grailbio/matcher/archive"

// Bucket is a decoded output bucket: Key is the bucket's sorted
// population multiset, Rows[r] the piece indices of tiling r, Weights[r]
// its accumulated weight.
type Bucket struct {
	Key     []int32
	Rows    [][]int32
	Weights []float64
}

// FromArchive unragged-decodes an archive.BucketArrays (CSR-style
// rows_data/rows_indptr) into a Bucket.
func FromArchive(b archive.BucketArrays) Bucket {
	rows := make([][]int32, len(b.RowsIndptr)-1)
	for r := range rows {
		lo, hi := b.RowsIndptr[r], b.RowsIndptr[r+1]
		rows[r] = append([]int32(nil), b.RowsData[lo:hi]...)
	}
	return Bucket{
		Key:     append([]int32(nil), b.Key...),
		Rows:    rows,
		Weights: append([]float64(nil), b.Weights...),
	}
}

// BucketsFromSnapshot decodes every bucket in a loaded snapshot archive.
func BucketsFromSnapshot(s *archive.SnapshotArrays) []Bucket {
	out := make([]Bucket, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = FromArchive(b)
	}
	return out
}

func sumWeights(w []float64) float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}
