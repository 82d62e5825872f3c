package enum

import (
	"testing"

	"github.com/grailbio/matcher/codec"
	"github.com/stretchr/testify/assert"
)

func mkCode(b uint, vals ...int) codec.Code {
	c := codec.Code{}
	for _, v := range vals {
		var ok bool
		c, ok = c.Insert(v, b)
		if !ok {
			panic("mkCode: insert failed")
		}
	}
	return c
}

func TestAOBucketFlushDedupAndSumsWeights(t *testing.T) {
	b := NewAOBucket(1024)
	w := codec.Width(4)
	c1 := mkCode(w, 1, 2)
	c2 := mkCode(w, 2, 1) // same multiset, different insertion order
	sats := b.AppendBatch([]codec.Code{c1, c2}, []uint32{3, 4})
	assert.Zero(t, sats)
	sats += b.Flush()
	assert.Zero(t, sats)

	codes, weights := b.Rows()
	assert.Len(t, codes, 1)
	assert.Equal(t, uint32(7), weights[0])
}

func TestAOBucketFlushSortsAscending(t *testing.T) {
	b := NewAOBucket(1024)
	w := codec.Width(4)
	c3 := mkCode(w, 3)
	c1 := mkCode(w, 1)
	c2 := mkCode(w, 2)
	b.AppendBatch([]codec.Code{c3, c1, c2}, []uint32{1, 1, 1})
	b.Flush()

	codes, _ := b.Rows()
	for i := 1; i < len(codes); i++ {
		assert.True(t, codes[i-1].Less(codes[i]))
	}
}

func TestAOBucketAutoFlushesAtThreshold(t *testing.T) {
	b := NewAOBucket(2)
	w := codec.Width(4)
	b.AppendBatch([]codec.Code{mkCode(w, 1)}, []uint32{1})
	assert.Equal(t, 0, b.Len()) // still pending, below threshold
	b.AppendBatch([]codec.Code{mkCode(w, 2)}, []uint32{1})
	assert.Equal(t, 2, b.Len()) // threshold reached, auto-flushed
}

func TestAOBucketSaturatesWeightSum(t *testing.T) {
	b := NewAOBucket(1024)
	w := codec.Width(4)
	c := mkCode(w, 1)
	sats := b.AppendBatch([]codec.Code{c, c}, []uint32{maxWeight, maxWeight})
	sats += b.Flush()
	assert.Equal(t, 1, sats)

	_, weights := b.Rows()
	assert.Equal(t, uint32(maxWeight), weights[0])
}
