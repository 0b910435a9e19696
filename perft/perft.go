// Package perft counts leaf nodes of the legal move tree to a fixed
// depth — the standard move-generator correctness/benchmark tool. It
// exposes per-root-move breakdowns (what the UCI "go perft" command
// prints) and an optional (zobrist XOR depth) memo cache, toggled by the
// PerftHash option.
package perft

import (
	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/position"
)

// RootCount is the leaf count contributed by one root move.
type RootCount struct {
	Move  board.Move
	Nodes uint64
}

// Cache memoises Count(depth) results keyed on zobrist XOR depth, per
// spec.md §4.7. It is not safe for concurrent use; callers share one per
// search, not across goroutines.
type Cache struct {
	entries map[uint64]uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]uint64)}
}

func cacheKey(zobrist uint64, depth int) uint64 {
	return zobrist ^ uint64(depth)
}

// Count returns the total number of leaf positions reachable from pos in
// exactly depth plies. Depth 1 is answered directly from the legal move
// count rather than recursing one ply further and counting 1 per leaf —
// spec.md §4.7's "bulk counting" optimisation, which depends on
// GenerateLegal already enforcing legality (design note 9c).
func Count(pos *position.Position, depth int, cache *Cache) uint64 {
	if depth == 0 {
		return 1
	}

	var moves []board.Move
	pos.GenerateLegal(position.All, &moves)
	if depth == 1 {
		return uint64(len(moves))
	}

	var total uint64
	for _, m := range moves {
		pos.DoMove(m)
		total += countCached(pos, depth-1, cache)
		pos.UndoMove(m)
	}
	return total
}

func countCached(pos *position.Position, depth int, cache *Cache) uint64 {
	if cache == nil {
		return Count(pos, depth, nil)
	}
	key := cacheKey(pos.Zobrist(), depth)
	if n, ok := cache.entries[key]; ok {
		return n
	}
	n := Count(pos, depth, cache)
	cache.entries[key] = n
	return n
}

// PerRootMove returns the leaf count broken down by root move, plus
// their sum, matching the controller's perft(depth) operation and the
// "go perft D" UCI command's per-move output lines.
func PerRootMove(pos *position.Position, depth int, cache *Cache) ([]RootCount, uint64) {
	var moves []board.Move
	pos.GenerateLegal(position.All, &moves)

	counts := make([]RootCount, 0, len(moves))
	var total uint64
	for _, m := range moves {
		pos.DoMove(m)
		n := countCached(pos, depth-1, cache)
		pos.UndoMove(m)
		counts = append(counts, RootCount{Move: m, Nodes: n})
		total += n
	}
	return counts, total
}
