package board

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalfMaskS1(t *testing.T) {
	d := Dims{N: 2}
	assert.Equal(t, uint64(0b11), d.HalfMask())
}

func TestFloodFillIdempotence(t *testing.T) {
	d := Dims{N: 4}
	domain := d.HalfMask()
	for seedBit := 0; seedBit < 8; seedBit++ {
		seed := uint64(1) << uint(seedBit)
		once := d.FloodFill(seed, domain)
		twice := d.FloodFill(once, domain)
		assert.Equalf(t, once, twice, "seed bit %d", seedBit)
	}
}

func TestFloodFillConnectsFullDomain(t *testing.T) {
	d := Dims{N: 4}
	domain := d.HalfMask()
	region := d.FloodFill(1, domain)
	assert.Equal(t, domain, region, "left half of a 4x4 board is 4-connected")
}

func TestFloodFillRespectsEdges(t *testing.T) {
	// N=4 board, left half is columns 0,1 (8 cells). Remove the middle row
	// pair to split the half into two components that must not leak into
	// one another via vertical wraparound.
	d := Dims{N: 4}
	// cells (x,y): bit = x*4+y. Remove y=1 and y=2 across both columns.
	var remove uint64
	for x := 0; x < 2; x++ {
		remove |= 1 << uint(x*4+1)
		remove |= 1 << uint(x*4+2)
	}
	domain := d.HalfMask() &^ remove
	top := d.FloodFill(1<<uint(0*4+0), domain) // (0,0)
	bottom := d.FloodFill(1<<uint(0*4+3), domain)
	assert.Equal(t, 0, int(top&bottom))
	assert.Equal(t, 2, bits.OnesCount64(top))
	assert.Equal(t, 2, bits.OnesCount64(bottom))
}

// TestEvilDetectorS3 implements spec.md scenario S3: N=4, a single enclosed
// hole not touching the escape column (x=N/2-1=1).
func TestEvilDetectorS3(t *testing.T) {
	d := Dims{N: 4}
	// Column 0 only (x=0), so the hole never touches escape column x=1.
	// A 3-cell hole in column 0 at y=0,1,2, leaving y=3 covered elsewhere,
	// plus all of column 1 covered.
	col1 := d.ColMask(1)
	holeCells := uint64(0)
	for _, y := range []int{0, 1, 2} {
		holeCells |= 1 << uint(0*4+y)
	}
	coveredInCol0 := uint64(1) << uint(0*4+3)
	partial := col1 | coveredInCol0
	assert.True(t, d.DetectEvil(partial), "3-cell enclosed hole is unfillable")

	// Same hole shape but size 4 (all of column 0 uncovered, column 1
	// covered): could be a single 4-piece, so not evil.
	partial4 := col1
	assert.False(t, d.DetectEvil(partial4), "4-cell enclosed hole could be one piece")
}

func TestEvilDetectorEscapingHoleIsNeverEvil(t *testing.T) {
	d := Dims{N: 4}
	// Nothing placed at all: the entire half is one hole touching the
	// escape column, so it is never flagged evil regardless of population.
	assert.False(t, d.DetectEvil(0))
}

func TestFindRoot(t *testing.T) {
	d := Dims{N: 4}
	x, y, ok := d.FindRoot(0)
	assert.True(t, ok)
	assert.Equal(t, 0, x)
	assert.Equal(t, 0, y)

	_, _, ok = d.FindRoot(d.HalfMask())
	assert.False(t, ok, "fully-covered half board has no root")

	x, y, ok = d.FindRoot(1) // bit 0 (0,0) covered
	assert.True(t, ok)
	assert.Equal(t, 0, x)
	assert.Equal(t, 1, y)
}
