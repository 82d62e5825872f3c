package solve

import (
	"testing"

	"github.com/grailbio/matcher/compat"
	"github.com/stretchr/testify/assert"
)

func TestBuildRowIndexGroupsByPiece(t *testing.T) {
	rows := [][]int32{{0, 1}, {1, 2}, {0, 2}}
	idx := BuildRowIndex(rows)
	assert.Equal(t, []int{0, 2}, idx[0])
	assert.Equal(t, []int{0, 1}, idx[1])
	assert.Equal(t, []int{1, 2}, idx[2])
}

func TestBuildCandidatesRestrictsToPresentPieces(t *testing.T) {
	// p=2's compat lists x=5, but x=5 never appears in R's rows, so it
	// must be excluded from cands[0].
	raw := map[int32][2][]int32{
		2: {{0, 0}, {3, 5}},
	}
	ct := compat.FromArchivePops(4, raw)
	piecePop := []int32{2, 0, 0, 2}

	rowsByPiece := BuildRowIndex([][]int32{{3}})
	c := BuildCandidates([][]int32{{0}}, piecePop, 4, ct, rowsByPiece, 1)

	assert.Equal(t, []int32{3}, c.List(0))
	assert.False(t, c.Empty(0))
}

func TestBuildCandidatesSkipsZeroPopulationPieces(t *testing.T) {
	piecePop := []int32{0}
	ct := compat.FromArchivePops(2, map[int32][2][]int32{})
	rowsByPiece := BuildRowIndex(nil)

	c := BuildCandidates([][]int32{{0}}, piecePop, 2, ct, rowsByPiece, 0)
	assert.True(t, c.Empty(0)) // never populated, so looks empty
	assert.Nil(t, c.List(0))
}
