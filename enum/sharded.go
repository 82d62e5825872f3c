package enum

import (
	"encoding/binary"
	"sync"

	"github.com/blainsmith/seahash"
	"github.com/grailbio/matcher/codec"
)

const numShards = 1024

// ShardedMap is a sharded, mutex-per-shard map from a uint64 key
// (partial_mask for a RootFrontier, population-key for OutBuckets) to an
// *AOBucket, generalized from encoding/bamprovider/concurrentmap.go's
// string-keyed sharded map. Sharding is purely an implementation detail:
// the observable semantics are those of an order-irrelevant map.
type ShardedMap struct {
	pendFlush int
	shards    [numShards]shard
}

type shard struct {
	mu      sync.Mutex
	buckets map[uint64]*AOBucket
	order   []uint64 // insertion order, for deterministic drain iteration
}

// NewShardedMap returns an empty sharded map whose buckets use pendFlush
// as their early-flush threshold.
func NewShardedMap(pendFlush int) *ShardedMap {
	m := &ShardedMap{pendFlush: pendFlush}
	for i := range m.shards {
		m.shards[i].buckets = make(map[uint64]*AOBucket)
	}
	return m
}

func shardFor(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return seahash.Sum64(buf[:]) % numShards
}

// GetOrCreate returns the bucket for key, creating it (and recording
// insertion order) if absent.
func (m *ShardedMap) GetOrCreate(key uint64) *AOBucket {
	s := &m.shards[shardFor(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = NewAOBucket(m.pendFlush)
		s.buckets[key] = b
		s.order = append(s.order, key)
	}
	return b
}

// Take atomically removes and returns the bucket for key, or nil if
// absent — the single-key counterpart of Drain, which the enumeration
// driver uses to move a root's whole frontier out before joining new
// pieces (spec.md §4.4 step 1 / §5's ownership-transfer policy).
func (m *ShardedMap) Take(key uint64) *AOBucket {
	s := &m.shards[shardFor(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		return nil
	}
	delete(s.buckets, key)
	return b
}

// Entry pairs a map key with its bucket, returned by Drain.
type Entry struct {
	Key    uint64
	Bucket *AOBucket
}

// Drain removes and returns every (key, bucket) pair in the map, in
// insertion order within each shard (shard iteration order itself is
// unspecified, matching the map's documented order-irrelevance).
func (m *ShardedMap) Drain() []Entry {
	var out []Entry
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, key := range s.order {
			if b, ok := s.buckets[key]; ok {
				out = append(out, Entry{Key: key, Bucket: b})
			}
		}
		s.buckets = make(map[uint64]*AOBucket)
		s.order = nil
		s.mu.Unlock()
	}
	return out
}

// AppendInto appends a (codes, weights) batch to the bucket for key,
// creating it if absent, and returns any saturation count an early flush
// triggered. Used by the sequential-merge step of the enumeration driver.
func (m *ShardedMap) AppendInto(key uint64, codes []codec.Code, weights []uint32) int {
	return m.GetOrCreate(key).AppendBatch(codes, weights)
}

// FlushAll flushes every bucket currently in the map in place (without
// removing them), returning the total saturation count observed. Used
// once, at the end of enumeration, to canonicalize OutBuckets.
func (m *ShardedMap) FlushAll() int {
	saturations := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, b := range s.buckets {
			saturations += b.Flush()
		}
		s.mu.Unlock()
	}
	return saturations
}

// Snapshot returns every (key, bucket) pair currently in the map without
// removing them, for read-only iteration after FlushAll.
func (m *ShardedMap) Snapshot() []Entry {
	var out []Entry
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for _, key := range s.order {
			if b, ok := s.buckets[key]; ok {
				out = append(out, Entry{Key: key, Bucket: b})
			}
		}
		s.mu.Unlock()
	}
	return out
}
