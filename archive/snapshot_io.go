package archive

import (
	"context"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
)

// BucketArrays is one bucket's CSR-style row data as stored in a snapshot
// archive (spec.md §6): one row of piece indices per distinct tiling, the
// offsets delimiting them, and a parallel weight per row.
type BucketArrays struct {
	Key        []int32 // population key identifying this bucket
	RowsData   []int32
	RowsIndptr []int64
	Weights    []float64
}

// SnapshotArrays is the raw, structurally-unvalidated contents of a
// snapshot archive, per spec.md §6's "Snapshot archive" member list.
type SnapshotArrays struct {
	N         int32
	JBTRefPop []int32

	BucketKeysData   []int32
	BucketKeysIndptr []int64

	Buckets []BucketArrays // indexed by bucket id b

	CompatPops map[int32][2][]int32 // population p -> (key1, key2); nil if absent
}

// LoadSnapshot reads a bucket-snapshot archive.
func LoadSnapshot(r Reader) (*SnapshotArrays, error) {
	s := &SnapshotArrays{}

	n, err := readScalarI32(r, "meta_N.npy")
	if err != nil {
		return nil, err
	}
	s.N = n

	if s.JBTRefPop, err = r.ReadI32("meta_jbt_ref_pop.npy"); err != nil {
		return nil, errors.E(err, "archive: reading meta_jbt_ref_pop.npy")
	}
	if s.BucketKeysData, err = r.ReadI32("meta_bucket_keys_data.npy"); err != nil {
		return nil, errors.E(err, "archive: reading meta_bucket_keys_data.npy")
	}
	if s.BucketKeysIndptr, err = r.ReadI64("meta_bucket_keys_indptr.npy"); err != nil {
		return nil, errors.E(err, "archive: reading meta_bucket_keys_indptr.npy")
	}
	if len(s.BucketKeysIndptr) == 0 {
		return nil, errors.E("archive: meta_bucket_keys_indptr.npy must have at least one element")
	}

	numBuckets := len(s.BucketKeysIndptr) - 1
	s.Buckets = make([]BucketArrays, numBuckets)
	for b := 0; b < numBuckets; b++ {
		var ba BucketArrays
		var err error
		if ba.Key, err = r.ReadI32(fmt.Sprintf("b%d_key.npy", b)); err != nil {
			return nil, errors.E(err, "archive: reading bucket key", b)
		}
		if ba.RowsData, err = r.ReadI32(fmt.Sprintf("b%d_rows_data.npy", b)); err != nil {
			return nil, errors.E(err, "archive: reading bucket rows_data", b)
		}
		if ba.RowsIndptr, err = r.ReadI64(fmt.Sprintf("b%d_rows_indptr.npy", b)); err != nil {
			return nil, errors.E(err, "archive: reading bucket rows_indptr", b)
		}
		if ba.Weights, err = r.ReadF64(fmt.Sprintf("b%d_weights.npy", b)); err != nil {
			return nil, errors.E(err, "archive: reading bucket weights", b)
		}
		s.Buckets[b] = ba
	}

	if r.Has("meta_compat_pops.npy") {
		pops, err := r.ReadI32("meta_compat_pops.npy")
		if err != nil {
			return nil, errors.E(err, "archive: reading meta_compat_pops.npy")
		}
		s.CompatPops = make(map[int32][2][]int32, len(pops))
		for _, p := range pops {
			k1, err := r.ReadI32(fmt.Sprintf("compat_p%d_key1.npy", p))
			if err != nil {
				return nil, errors.E(err, "archive: reading compat key1 for population", p)
			}
			k2, err := r.ReadI32(fmt.Sprintf("compat_p%d_key2.npy", p))
			if err != nil {
				return nil, errors.E(err, "archive: reading compat key2 for population", p)
			}
			s.CompatPops[p] = [2][]int32{k1, k2}
		}
	}

	return s, nil
}

// SaveSnapshot writes s to path as a bucket-snapshot archive, reusing the
// Builder/manifest machinery shared with LoadLibraryArrays's container
// format.
func SaveSnapshot(ctx context.Context, path string, s *SnapshotArrays) error {
	b := NewBuilder()
	b.WriteI32("meta_N.npy", []int32{s.N})
	b.WriteI32("meta_jbt_ref_pop.npy", s.JBTRefPop)
	b.WriteI32("meta_bucket_keys_data.npy", s.BucketKeysData)
	b.WriteI64("meta_bucket_keys_indptr.npy", s.BucketKeysIndptr)

	for i, ba := range s.Buckets {
		b.WriteI32(fmt.Sprintf("b%d_key.npy", i), ba.Key)
		b.WriteI32(fmt.Sprintf("b%d_rows_data.npy", i), ba.RowsData)
		b.WriteI64(fmt.Sprintf("b%d_rows_indptr.npy", i), ba.RowsIndptr)
		b.WriteF64(fmt.Sprintf("b%d_weights.npy", i), ba.Weights)
	}

	if s.CompatPops != nil {
		pops := make([]int32, 0, len(s.CompatPops))
		for p := range s.CompatPops {
			pops = append(pops, p)
		}
		sort.Slice(pops, func(i, j int) bool { return pops[i] < pops[j] })
		b.WriteI32("meta_compat_pops.npy", pops)
		for _, p := range pops {
			kk := s.CompatPops[p]
			b.WriteI32(fmt.Sprintf("compat_p%d_key1.npy", p), kk[0])
			b.WriteI32(fmt.Sprintf("compat_p%d_key2.npy", p), kk[1])
		}
	}

	if err := b.Save(ctx, path); err != nil {
		return errors.E(err, "archive: saving snapshot to", path)
	}
	return nil
}
