// Package search implements iterative-deepening principal variation
// search over a position.Position: negamax with alpha-beta pruning,
// quiescence, null-move/futility/razoring pruning, late-move reduction,
// and move ordering backed by killer moves and the history heuristic.
package search

import (
	"sync/atomic"
	"time"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/nnue"
	"github.com/corvidchess/corvid/position"
	"github.com/corvidchess/corvid/tt"
)

// Score bounds, mirroring the conventions of mate/known-win detection
// used throughout the engine.
const (
	Infinity      int32 = 32000
	Mate          int32 = 30000
	KnownWin      int32 = 25000
	KnownLoss           = -KnownWin
	MaxPly              = 128
	maxQuiescence       = 32 // MAX_Q_PLY
)

// Tunable search parameters. Values are chosen in the spirit of the
// teacher's own constants (initialAspirationWindow, futilityMargin,
// nullMoveDepthLimit, lmrDepthLimit) where the governing spec leaves the
// exact numbers open; see DESIGN.md for the Open-Question writeup.
const (
	nmpMinDepth  = 3 // NMP_MIN
	lmrStart     = 4 // LMR_START: move index at which LMR begins applying
	lmrMinDepth  = 3 // LMR_MIN
	lmrDivisor   = 2.25
	razorDepth   = 3
	reverseFutDepth = 3
)

func reverseFutilityMargin(depth int) int32 { return 80 * int32(depth) }
func razoringMargin(depth int) int32        { return 200 + 150*int32(depth) }
func futilityMargin(depth int) int32        { return 100 + 80*int32(depth) }

// Stopper is polled at every node; once it reports true the search
// unwinds immediately, propagating the interruption without touching
// killers, history, or the transposition table.
type Stopper interface {
	Stopped() bool
}

// AtomicStopper is a Stopper backed by an atomic flag, set by a
// controller from another goroutine (explicit stop, time/node budget
// exceeded).
type AtomicStopper struct {
	flag atomic.Bool
}

func (s *AtomicStopper) Stop()         { s.flag.Store(true) }
func (s *AtomicStopper) Stopped() bool { return s.flag.Load() }

// interrupted is returned by internal search functions when a Stopper
// fires mid-tree; callers must not record its score into the TT, PV, or
// move-ordering tables.
const interrupted = Infinity + 1

// Searcher holds everything needed to run repeated searches over the
// same position without reallocating per call: the shared transposition
// table, per-ply killer moves, and the history table.
type Searcher struct {
	Net   *nnue.Network
	Table *tt.Table

	stop         Stopper
	nodes        uint64
	deadlineNano atomic.Int64 // UnixNano; 0 means no deadline, checked from any goroutine

	killers [MaxPly][2]board.Move
	history [board.ColorArraySize][64][64]int32

	rootPos *position.Position
	pv      [MaxPly][MaxPly]board.Move
	pvLen   [MaxPly]int

	// prevPV is the best line found by the previous completed iterative-
	// deepening iteration, used only to seed move ordering (the "PV move"
	// band) for the current one.
	prevPV    [MaxPly]board.Move
	prevPVLen int

	searchMoves map[board.Move]bool // nil means no restriction
}

// New builds a Searcher sharing net for evaluation and table as its
// transposition table.
func New(net *nnue.Network, table *tt.Table) *Searcher {
	return &Searcher{Net: net, Table: table}
}

// Nodes returns the number of nodes visited by the most recent Run call.
func (s *Searcher) Nodes() uint64 { return atomic.LoadUint64(&s.nodes) }

func (s *Searcher) clearForNewSearch() {
	s.nodes = 0
	for i := range s.killers {
		s.killers[i] = [2]board.Move{}
	}
	for i := range s.pvLen {
		s.pvLen[i] = 0
	}
	s.prevPVLen = 0
}

func (s *Searcher) checkStop() bool {
	if atomic.LoadUint64(&s.nodes)&1023 != 0 {
		return false
	}
	if s.stop != nil && s.stop.Stopped() {
		return true
	}
	return s.deadlineExceeded()
}

// SetDeadline arms (or, with a zero Time, disarms) the node-level clock
// check consulted by checkStop. Safe to call from another goroutine while
// a search is in flight, which is how a controller implements ponderhit:
// pondering runs with no deadline armed, and ponderhit arms one without
// otherwise touching the search in progress.
func (s *Searcher) SetDeadline(t time.Time) {
	if t.IsZero() {
		s.deadlineNano.Store(0)
		return
	}
	s.deadlineNano.Store(t.UnixNano())
}

func (s *Searcher) deadlineExceeded() bool {
	n := s.deadlineNano.Load()
	return n != 0 && time.Now().UnixNano() >= n
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func nonPawnMaterial(pos *position.Position, side board.Color) board.Bitboard {
	return pos.ByColor[side] &^ (pos.ByFigure[board.Pawn] | pos.ByFigure[board.King])
}

// evaluate returns the side-to-move-relative static evaluation.
func evaluate(net *nnue.Network, pos *position.Position) int32 {
	us := pos.SideToMove
	return nnue.Evaluate(net, pos.Accumulator(us), pos.Accumulator(us.Opposite()))
}

// matedIn reports the mated-in-N score for the side to move being mated at
// ply plies from the root.
func matedIn(ply int) int32 { return -Mate + int32(ply) }

// toTT converts a search-relative score into one that's stable
// to store in the TT (distance-from-this-node rather than
// distance-from-root); fromTT is the inverse on retrieval.
func toTT(score int32, ply int) int32 {
	if score >= KnownWin {
		return score + int32(ply)
	}
	if score <= KnownLoss {
		return score - int32(ply)
	}
	return score
}

func fromTT(score int32, ply int) int32 {
	if score >= KnownWin {
		return score - int32(ply)
	}
	if score <= KnownLoss {
		return score + int32(ply)
	}
	return score
}

func boundFor(score, alpha, beta int32) tt.Bound {
	switch {
	case score <= alpha:
		return tt.Upper
	case score >= beta:
		return tt.Lower
	default:
		return tt.Exact
	}
}
