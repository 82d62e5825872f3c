package codec

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidth(t *testing.T) {
	cases := []struct {
		m    int
		want uint
	}{
		{0, 1}, {1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {16, 4}, {17, 5},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, Width(c.m), "Width(%d)", c.m)
	}
}

// TestCanonicalInsertS2 implements spec.md scenario S2.
func TestCanonicalInsertS2(t *testing.T) {
	b := Width(4)
	var c Code
	c, ok := c.Insert(3, b)
	require.True(t, ok)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 3, c.Get(0, b))

	c, ok = c.Insert(1, b)
	require.True(t, ok)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []int{1, 3}, c.Values(b))

	unchanged, ok := c.Insert(3, b)
	assert.False(t, ok)
	assert.True(t, unchanged.Equal(c))
}

func TestInsertRejectsFullCode(t *testing.T) {
	b := Width(32)
	var c Code
	ok := true
	for i := 0; i < MaxLen; i++ {
		c, ok = c.Insert(i, b)
		require.True(t, ok)
	}
	unchanged, ok := c.Insert(MaxLen, b)
	assert.False(t, ok)
	assert.True(t, unchanged.Equal(c))
}

// TestInsertCommutes verifies invariant 1 from spec.md §8: inserting two
// distinct, not-yet-present indices in either order yields the same code.
func TestInsertCommutes(t *testing.T) {
	b := Width(64)
	var base Code
	base, _ = base.Insert(10, b)
	base, _ = base.Insert(40, b)

	a1, ok1 := base.Insert(5, b)
	require.True(t, ok1)
	a1, ok1 = a1.Insert(25, b)
	require.True(t, ok1)

	a2, ok2 := base.Insert(25, b)
	require.True(t, ok2)
	a2, ok2 = a2.Insert(5, b)
	require.True(t, ok2)

	assert.True(t, a1.Equal(a2))
	assert.Equal(t, []int{5, 10, 25, 40}, a1.Values(b))
}

func TestStraddlingFields(t *testing.T) {
	// b=17: field 3 starts at bit 4+3*17=55 and ends at 72, straddling the
	// 64-bit limb boundary.
	const b = uint(17)

	var c Code
	vals := []int{1, 2, 3, 100000, 50000} // all below 2^17
	for _, v := range vals {
		var ok bool
		c, ok = c.Insert(v, b)
		require.True(t, ok)
	}
	sorted := append([]int(nil), vals...)
	sort.Ints(sorted)
	assert.Equal(t, sorted, c.Values(b))
}

func TestLessIsUnsigned128BitOrder(t *testing.T) {
	b := Width(16)
	mk := func(vals ...int) Code {
		var c Code
		for _, v := range vals {
			c, _ = c.Insert(v, b)
		}
		return c
	}
	assert.True(t, mk(1, 2).Less(mk(1, 3)))
	assert.True(t, mk(1).Less(mk(1, 2)))
	// Integer order, not lexicographic: {2} packs to 0x21 and {1,9} to
	// 0x912, so {2} sorts first.
	assert.True(t, mk(2).Less(mk(1, 9)))
}

func TestRandomRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	b := Width(200)
	for trial := 0; trial < 200; trial++ {
		n := rnd.Intn(MaxLen + 1)
		seen := map[int]bool{}
		var want []int
		var c Code
		for len(want) < n {
			v := rnd.Intn(200)
			if seen[v] {
				continue
			}
			seen[v] = true
			var ok bool
			c, ok = c.Insert(v, b)
			require.True(t, ok)
			want = append(want, v)
		}
		sort.Ints(want)
		assert.Equal(t, want, c.Values(b))
		assert.Equal(t, len(want), c.Len())
	}
}
