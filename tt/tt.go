// Package tt implements the transposition table: a fixed-size array of
// four-entry buckets with generation-based replacement, used both as a
// correctness cache for search bounds and as a move-ordering hint.
package tt

import (
	"sync/atomic"
	"unsafe"

	"github.com/corvidchess/corvid/board"
)

// Bound classifies how a stored score relates to the search window that
// produced it.
type Bound uint8

const (
	NoBound Bound = iota
	Exact
	Lower
	Upper
)

// slotsPerBucket is B in the bucketed replacement scheme: each bucket
// holds 4 candidate entries for the keys that hash to it.
const slotsPerBucket = 4

// Entry is a single transposition-table record.
type Entry struct {
	Key   uint64
	Depth int8
	Eval  int32
	Best  board.Move
	Bound Bound
	age   uint8
}

// Empty reports whether the entry has never been written.
func (e *Entry) Empty() bool { return e.Key == 0 }

type bucket struct {
	slots [slotsPerBucket]Entry
}

// Table is a fixed-size bucketed transposition table. The zero value is
// not usable; construct one with New. A Table is safe for concurrent
// Probe calls; Store calls must be serialised with each other and with
// Probe for the duration of a search (see spec.md's shared-TT note) —
// this implementation does not itself provide that exclusion.
type Table struct {
	buckets []bucket
	mask    uint64
	gen     uint8

	hits    uint64
	misses  uint64
	stores  uint64
	entries uint64 // non-empty slots, tracked for fullness permille
}

const minSizeMB = 1
const maxSizeMB = 33554432

// New builds a table that occupies up to sizeMB megabytes, rounded down
// to the nearest power-of-two bucket count.
func New(sizeMB int) *Table {
	if sizeMB < minSizeMB {
		sizeMB = minSizeMB
	}
	if sizeMB > maxSizeMB {
		sizeMB = maxSizeMB
	}
	bucketSize := uint64(unsafe.Sizeof(bucket{}))
	numBuckets := uint64(sizeMB) << 20 / bucketSize
	if numBuckets == 0 {
		numBuckets = 1
	}
	for numBuckets&(numBuckets-1) != 0 {
		numBuckets &= numBuckets - 1
	}
	return &Table{
		buckets: make([]bucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

// Buckets returns the number of buckets backing the table.
func (t *Table) Buckets() int { return len(t.buckets) }

func (t *Table) index(key uint64) uint64 { return key & t.mask }

// Probe looks up key and returns the stored entry and whether it was
// found. A miss returns the zero Entry.
func (t *Table) Probe(key uint64) (Entry, bool) {
	b := &t.buckets[t.index(key)]
	for i := range b.slots {
		if b.slots[i].Key == key && key != 0 {
			atomic.AddUint64(&t.hits, 1)
			return b.slots[i], true
		}
	}
	atomic.AddUint64(&t.misses, 1)
	return Entry{}, false
}

var boundBonus = [...]int32{NoBound: 0, Exact: 25, Lower: 5, Upper: 0}

func replacementScore(e *Entry, gen uint8) int32 {
	ageDiff := int32(gen - e.age)
	if ageDiff > 15 {
		ageDiff = 15
	}
	if ageDiff < 0 {
		// Wrapped generation counter; treat as maximally stale.
		ageDiff = 15
	}
	return 8*int32(e.Depth) + boundBonus[e.Bound] - 3*ageDiff
}

// Store records a search result for key, replacing an existing slot for
// the same key, an empty slot, or the slot with the lowest replacement
// score, in that order of preference.
func (t *Table) Store(key uint64, depth int8, eval int32, best board.Move, bound Bound) {
	b := &t.buckets[t.index(key)]
	newEntry := Entry{Key: key, Depth: depth, Eval: eval, Best: best, Bound: bound, age: t.gen}

	for i := range b.slots {
		s := &b.slots[i]
		if s.Key == key {
			if s.age != t.gen || depth >= s.Depth {
				*s = newEntry
				atomic.AddUint64(&t.stores, 1)
			}
			return
		}
	}
	for i := range b.slots {
		if b.slots[i].Empty() {
			b.slots[i] = newEntry
			atomic.AddUint64(&t.stores, 1)
			atomic.AddUint64(&t.entries, 1)
			return
		}
	}

	worst := 0
	worstScore := replacementScore(&b.slots[0], t.gen)
	for i := 1; i < len(b.slots); i++ {
		if s := replacementScore(&b.slots[i], t.gen); s < worstScore {
			worst, worstScore = i, s
		}
	}
	b.slots[worst] = newEntry
	atomic.AddUint64(&t.stores, 1)
}

// NewSearch advances the generation counter, marking all entries written
// before this call as one generation older.
func (t *Table) NewSearch() {
	t.gen++
}

// PruneOldEntries zeroes every entry older than two generations.
func (t *Table) PruneOldEntries() {
	var removed uint64
	for bi := range t.buckets {
		b := &t.buckets[bi]
		for i := range b.slots {
			s := &b.slots[i]
			if !s.Empty() && t.gen-s.age > 2 {
				*s = Entry{}
				removed++
			}
		}
	}
	if removed > 0 {
		atomic.AddUint64(&t.entries, ^(removed - 1)) // atomic subtract
	}
}

// Clear zeroes every entry and resets statistics, without changing the
// table's size or generation.
func (t *Table) Clear() {
	for bi := range t.buckets {
		t.buckets[bi] = bucket{}
	}
	atomic.StoreUint64(&t.hits, 0)
	atomic.StoreUint64(&t.misses, 0)
	atomic.StoreUint64(&t.stores, 0)
	atomic.StoreUint64(&t.entries, 0)
}

// FullnessPermille estimates table occupancy in parts per thousand, the
// way UCI's hashfull field expects.
func (t *Table) FullnessPermille() int {
	total := uint64(len(t.buckets)) * slotsPerBucket
	if total == 0 {
		return 0
	}
	entries := atomic.LoadUint64(&t.entries)
	return int(entries * 1000 / total)
}

// HitRatePercent is the share of Probe calls that found a matching key,
// since the table was last cleared.
func (t *Table) HitRatePercent() int {
	hits := atomic.LoadUint64(&t.hits)
	misses := atomic.LoadUint64(&t.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return int(hits * 100 / total)
}
