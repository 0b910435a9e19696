package search

import (
	"sort"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/position"
)

// mvvlvaValue ranks figures for most-valuable-victim/least-valuable-
// aggressor ordering, independent of SEE's exact centipawn values.
var mvvlvaValue = [board.FigureArraySize]int32{0, 1, 3, 3, 5, 9, 20}

// Move-ordering score bands, highest first: PV move, TT move, winning
// captures by MVV-LVA, killer0, killer1, losing captures by MVV-LVA,
// quiets by history. Bands are spaced widely enough that MVV-LVA/history
// never spill into a neighbouring band.
const (
	bandPV      = int32(9_000_000)
	bandTT      = int32(8_000_000)
	bandWinCap  = int32(6_000_000)
	bandKiller0 = int32(5_000_001)
	bandKiller1 = int32(5_000_000)
	bandLoseCap = int32(3_000_000)
	bandQuiet   = int32(0)
)

type scoredMove struct {
	m     board.Move
	score int32
}

// orderMoves scores and sorts moves in place for the node at ply,
// highest-priority first.
func (s *Searcher) orderMoves(pos *position.Position, moves []board.Move, ply int, pvMove, ttMove board.Move) []scoredMove {
	scored := make([]scoredMove, len(moves))
	us := pos.SideToMove
	for i, m := range moves {
		scored[i] = scoredMove{m: m, score: s.scoreMove(pos, m, ply, us, pvMove, ttMove)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	return scored
}

func (s *Searcher) scoreMove(pos *position.Position, m board.Move, ply int, us board.Color, pvMove, ttMove board.Move) int32 {
	switch {
	case m == pvMove && pvMove != board.NullMove:
		return bandPV
	case m == ttMove && ttMove != board.NullMove:
		return bandTT
	}

	if m.IsCapture() {
		mvvlva := mvvlvaValue[m.Capture.Figure()]*64 - mvvlvaValue[m.Piece().Figure()]
		if pos.SEE(m.To, us) >= 0 {
			return bandWinCap + mvvlva
		}
		return bandLoseCap + mvvlva
	}

	if s.killers[ply][0] == m {
		return bandKiller0
	}
	if s.killers[ply][1] == m {
		return bandKiller1
	}

	return bandQuiet + s.history[us][m.From][m.To]
}

const historyMax = 8192

// recordKiller installs m as the most recent killer for ply, keeping at
// most two, newest first.
func (s *Searcher) recordKiller(ply int, m board.Move) {
	if m.IsCapture() {
		return
	}
	if s.killers[ply][0] == m {
		return
	}
	s.killers[ply][1] = s.killers[ply][0]
	s.killers[ply][0] = m
}

// bumpHistory rewards a quiet move that caused a beta cutoff, or
// penalises one that was searched but didn't improve alpha. Entries are
// halved on overflow, the cheap way to age out stale statistics.
func (s *Searcher) bumpHistory(us board.Color, m board.Move, delta int32) {
	if m.IsCapture() {
		return
	}
	h := &s.history[us][m.From][m.To]
	*h += delta
	if *h > historyMax {
		*h /= 2
	}
	if *h < -historyMax {
		*h /= 2
	}
}
