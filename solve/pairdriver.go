package solve

import (
	"encoding/binary"
	"sort"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/matcher/compat"
	"github.com/minio/highwayhash"
)

// highwayGroupThreshold is the bucket count above which bucket-pair
// discovery switches from a direct map lookup to highwayhash-grouped
// lookup (spec.md §4.7's complement-key search), mirroring
// groupCandidatesByGenePair's hash-bucketed grouping in spirit. This is
// an implementation choice, not a semantic one: both paths produce
// identical pairs.
const highwayGroupThreshold = 64

type hashKey = [highwayhash.Size]byte

var zeroHashSeed = hashKey{}

func keyBytes(key []int32) []byte {
	buf := make([]byte, 4*len(key))
	for i, p := range key {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(p))
	}
	return buf
}

// keyIndex resolves a sorted population-key to its bucket index.
type keyIndex struct {
	exact  map[string]int
	hashed map[hashKey][]int
}

func buildKeyIndex(buckets []Bucket) *keyIndex {
	if len(buckets) <= highwayGroupThreshold {
		exact := make(map[string]int, len(buckets))
		for i, b := range buckets {
			exact[string(keyBytes(b.Key))] = i
		}
		return &keyIndex{exact: exact}
	}
	hashed := make(map[hashKey][]int, len(buckets))
	for i, b := range buckets {
		h := highwayhash.Sum(keyBytes(b.Key), zeroHashSeed[:])
		hashed[h] = append(hashed[h], i)
	}
	return &keyIndex{hashed: hashed}
}

func (ki *keyIndex) find(buckets []Bucket, key []int32) (int, bool) {
	if ki.exact != nil {
		idx, ok := ki.exact[string(keyBytes(key))]
		return idx, ok
	}
	h := highwayhash.Sum(keyBytes(key), zeroHashSeed[:])
	for _, idx := range ki.hashed[h] {
		if equalInt32(buckets[idx].Key, key) {
			return idx, true
		}
	}
	return 0, false
}

func equalInt32(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func complementKey(key []int32, n int32) []int32 {
	out := make([]int32, len(key))
	for i, p := range key {
		out[i] = n - p
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type pairTask struct {
	a, b   int
	factor float64
}

// DiscoverPairs finds every (a,b) bucket-pair whose keys are mutual
// N-complements, per spec.md §4.7. Self-pairs (a==b) get factor 1,
// distinct pairs factor 2.
func DiscoverPairs(buckets []Bucket, n int32) []pairTask {
	ki := buildKeyIndex(buckets)
	seen := map[[2]int]bool{}
	var tasks []pairTask
	for i, b := range buckets {
		comp := complementKey(b.Key, n)
		j, ok := ki.find(buckets, comp)
		if !ok {
			continue
		}
		a, c := i, j
		if a > c {
			a, c = c, a
		}
		if seen[[2]int{a, c}] {
			continue
		}
		seen[[2]int{a, c}] = true
		factor := 2.0
		if a == c {
			factor = 1.0
		}
		tasks = append(tasks, pairTask{a: a, b: c, factor: factor})
	}
	return tasks
}

// PairDriver computes Ω, the sum of pair subtotals over every
// compatible bucket pair, per spec.md §4.7.
type PairDriver struct {
	Buckets  []Bucket
	PiecePop []int32
	N        int
	Compat   compat.Table
}

// Run computes Ω.
func (d *PairDriver) Run() (float64, error) {
	tasks := DiscoverPairs(d.Buckets, int32(d.N))

	sort.Slice(tasks, func(i, j int) bool {
		ci := len(d.Buckets[tasks[i].a].Rows) * len(d.Buckets[tasks[i].b].Rows) * keyWeight(d.Buckets[tasks[i].a].Key)
		cj := len(d.Buckets[tasks[j].a].Rows) * len(d.Buckets[tasks[j].b].Rows) * keyWeight(d.Buckets[tasks[j].a].Key)
		return ci > cj
	})

	subtotals := make([]float64, len(tasks))
	err := traverse.Each(len(tasks), func(i int) error {
		t := tasks[i]
		l, r := d.Buckets[t.a], d.Buckets[t.b]
		if len(l.Rows) > len(r.Rows) {
			l, r = r, l
		}
		subtotals[i] = t.factor * Pair(l, r, d.PiecePop, d.N, d.Compat)
		return nil
	})
	if err != nil {
		return 0, err
	}

	var omega float64
	for _, s := range subtotals {
		omega += s
	}
	return omega, nil
}

func keyWeight(key []int32) int {
	if len(key) < 1 {
		return 1
	}
	return len(key)
}
