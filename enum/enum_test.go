package enum

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/matcher/archive"
	"github.com/grailbio/matcher/piece"
	"github.com/grailbio/matcher/rss"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadLibrary(t *testing.T, build func(b *archive.Builder)) *piece.Library {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "lib.archive")
	b := archive.NewBuilder()
	build(b)
	ctx := context.Background()
	require.NoError(t, b.Save(ctx, path))
	c, err := archive.Open(ctx, path)
	require.NoError(t, err)
	lib, err := piece.Load(c)
	require.NoError(t, err)
	return lib
}

// TestDriverRunS1 implements spec.md scenario S1.
func TestDriverRunS1(t *testing.T) {
	lib := loadLibrary(t, func(b *archive.Builder) {
		b.WriteI32("N.npy", []int32{2})
		b.WriteI32("M.npy", []int32{1})
		b.WriteU64("pre_masks.npy", []uint64{0b11})
		b.WriteU8("pre_pops.npy", []uint8{2})
		b.WriteU32("pre_jidx.npy", []uint32{0})
		b.WriteI64("pre_offsets.npy", []int64{0, 1, 1}) // n_roots = 2
		b.WriteI32("jbt_ref_pop.npy", []int32{2})
	})

	d := &Driver{Lib: lib, Watchdog: rss.NoopWatchdog, PendFlush: 32768}
	out, stats, err := d.Run()
	require.NoError(t, err)
	assert.Zero(t, stats.Saturations)

	entries := out.Snapshot()
	require.Len(t, entries, 1)

	key := PackPopKey([]int32{2})
	assert.Equal(t, key, entries[0].Key)

	codes, weights := entries[0].Bucket.Rows()
	require.Len(t, codes, 1)
	assert.Equal(t, []int{0}, codes[0].Values(1))
	assert.Equal(t, []uint32{1}, weights)
}

func TestPackUnpackPopKeyRoundTrip(t *testing.T) {
	pops := []int32{3, 1, 2}
	key := PackPopKey(pops)
	got := UnpackPopKey(key)
	assert.Equal(t, []int32{1, 2, 3}, got)
}

// TestDriverCoversWholeHalfViaTwoPaths checks invariant 4 (dedup) at the
// driver level: two different piece combinations (one 8-cell piece vs.
// two 4-cell pieces covering the same cells via two root visits) land in
// different buckets by population-key, each internally deduplicated.
func TestDriverCoversWholeHalfViaTwoPaths(t *testing.T) {
	// N=4, half_mask = 0xff (8 cells, roots 0..7).
	lib := loadLibrary(t, func(b *archive.Builder) {
		b.WriteI32("N.npy", []int32{4})
		b.WriteI32("M.npy", []int32{3})
		b.WriteU64("pre_masks.npy", []uint64{
			0xff, // jidx 0: whole half in one piece, pop 8, anchored root 0
			0x0f, // jidx 1: column x=0, pop 4, anchored root 0
			0xf0, // jidx 2: column x=1, pop 4, anchored root 4
		})
		b.WriteU8("pre_pops.npy", []uint8{8, 4, 4})
		b.WriteU32("pre_jidx.npy", []uint32{0, 1, 2})
		b.WriteI64("pre_offsets.npy", []int64{0, 2, 2, 2, 2, 3, 3, 3, 3})
		b.WriteI32("jbt_ref_pop.npy", []int32{8, 4, 4})
	})

	d := &Driver{Lib: lib, Watchdog: rss.NoopWatchdog, PendFlush: 32768}
	out, _, err := d.Run()
	require.NoError(t, err)

	entries := out.Snapshot()
	byKey := map[uint64][]int{}
	for _, e := range entries {
		codes, weights := e.Bucket.Rows()
		seen := map[[2]uint64]bool{}
		for i, c := range codes {
			k := [2]uint64{c.Lo, c.Hi}
			assert.False(t, seen[k], "duplicate code in output bucket")
			seen[k] = true
			byKey[e.Key] = append(byKey[e.Key], int(weights[i]))
		}
	}
	// key=[8] (the single full-half piece) and key=[4,4] (the two
	// half-columns) are distinct population-keys, each with exactly one
	// distinct row.
	assert.Len(t, byKey[PackPopKey([]int32{8})], 1)
	assert.Len(t, byKey[PackPopKey([]int32{4, 4})], 1)
}
