package search

import (
	"math"
	"time"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/position"
)

// Limits bounds a single Run call. A zero Deadline means no time budget
// (infinite search or ponder); MaxDepth of 0 uses the engine's default
// maximum.
type Limits struct {
	Deadline    time.Time
	Ponder      bool
	MaxDepth    int
	SearchMoves []board.Move
	Exact       bool // movetime was given explicitly; disables the single-legal-move shortcut
}

// Info is one iteration's reportable progress, shaped after the UCI info
// fields it eventually becomes.
type Info struct {
	Depth    int
	SelDepth int
	Score    int32
	Mate     bool
	MateIn   int
	Nodes    uint64
	NPS      uint64
	TimeMs   int64
	HashFull int
	TTHitPct int
	PV       []board.Move
}

// Result is the outcome of a Run call.
type Result struct {
	BestMove   board.Move
	PonderMove board.Move
	Score      int32
	Depth      int
}

const defaultMaxDepth = 64

// Run performs iterative deepening from depth 1 to limits.MaxDepth (or
// defaultMaxDepth), using aspiration windows once the search is deep
// enough to have a stable estimate, reporting progress through infoFn
// after every completed iteration.
func (s *Searcher) Run(pos *position.Position, stop Stopper, limits Limits, infoFn func(Info)) Result {
	s.stop = stop
	s.rootPos = pos
	s.clearForNewSearch()
	s.Table.NewSearch()

	if limits.Ponder || limits.Deadline.IsZero() {
		s.SetDeadline(time.Time{})
	} else {
		s.SetDeadline(limits.Deadline)
	}

	if len(limits.SearchMoves) > 0 {
		s.searchMoves = make(map[board.Move]bool, len(limits.SearchMoves))
		for _, m := range limits.SearchMoves {
			s.searchMoves[m] = true
		}
	} else {
		s.searchMoves = nil
	}

	var rootMoves []board.Move
	pos.GenerateLegal(position.All, &rootMoves)
	if len(rootMoves) == 0 {
		return Result{}
	}
	if len(rootMoves) == 1 && !limits.Exact {
		return Result{BestMove: rootMoves[0]}
	}

	maxDepth := limits.MaxDepth
	if maxDepth <= 0 || maxDepth > defaultMaxDepth {
		maxDepth = defaultMaxDepth
	}

	start := time.Now()
	result := Result{BestMove: rootMoves[0]}
	score := int32(0)
	lastIterationElapsed := time.Duration(0)

	for depth := 1; depth <= maxDepth; depth++ {
		if !limits.Deadline.IsZero() && !limits.Ponder {
			remaining := time.Until(limits.Deadline)
			estimate := time.Duration(float64(lastIterationElapsed) * 2.5)
			if depth > 1 && estimate > remaining {
				break
			}
		}

		iterStart := time.Now()
		iterScore, pv, ok := s.searchRoot(pos, depth, score)
		lastIterationElapsed = time.Since(iterStart)
		if !ok {
			break
		}
		score = iterScore
		s.prevPVLen = copy(s.prevPV[:], pv)

		if len(pv) > 0 {
			result = Result{BestMove: pv[0], Score: score, Depth: depth}
			if len(pv) > 1 {
				result.PonderMove = pv[1]
			}
		}

		if infoFn != nil {
			elapsed := time.Since(start)
			nodes := s.Nodes()
			nps := uint64(0)
			if elapsed > 0 {
				nps = uint64(float64(nodes) / elapsed.Seconds())
			}
			info := Info{
				Depth:    depth,
				Score:    score,
				Nodes:    nodes,
				NPS:      nps,
				TimeMs:   elapsed.Milliseconds(),
				HashFull: s.Table.FullnessPermille(),
				TTHitPct: s.Table.HitRatePercent(),
				PV:       pv,
			}
			if mate, n := mateDistance(score); mate {
				info.Mate, info.MateIn = true, n
			}
			infoFn(info)
		}

		if mate, _ := mateDistance(score); mate {
			break
		}
	}

	return result
}

// searchRoot runs one iterative-deepening iteration, widening the
// aspiration window around the previous score until the result lands
// strictly inside it (or falling back to a full window). ok is false
// when any search at this depth, including a re-search after an
// aspiration failure, was interrupted before completing (in which case
// the caller must keep the prior result).
func (s *Searcher) searchRoot(pos *position.Position, depth int, prevScore int32) (int32, []board.Move, bool) {
	const aspMin, aspInitial, aspExpand = 15, 50, 50

	alpha, beta := int32(-Infinity), int32(Infinity)
	if depth > 4 && prevScore > KnownLoss && prevScore < KnownWin {
		window := aspirationWindow(depth, aspMin, aspInitial)
		alpha = max32(prevScore-window, -Infinity)
		beta = min32(prevScore+window, Infinity)
	}

	for attempt := 0; ; attempt++ {
		score := s.negamax(pos, alpha, beta, depth, 0)
		if score == interrupted {
			return 0, nil, false
		}
		if score <= alpha {
			if attempt == 0 {
				alpha = max32(alpha-aspExpand, -Infinity)
				continue
			}
			alpha, beta = -Infinity, Infinity
			continue
		}
		if score >= beta {
			if attempt == 0 {
				beta = min32(beta+aspExpand, Infinity)
				continue
			}
			alpha, beta = -Infinity, Infinity
			continue
		}
		pv := make([]board.Move, s.pvLen[0])
		copy(pv, s.pv[0][:s.pvLen[0]])
		return score, pv, true
	}
}

func aspirationWindow(depth int, aspMin, aspInitial int32) int32 {
	exp := float64(depth-4) / 10
	ratio := float64(aspMin) / float64(aspInitial)
	w := float64(aspInitial) * math.Pow(ratio, exp)
	if w < float64(aspMin) {
		w = float64(aspMin)
	}
	return int32(w)
}

// mateDistance reports whether score is a detected mate score (|score| >
// MATE − 1000) and, if so, the mate distance in full moves from the
// current side's perspective (positive: we mate, negative: we get mated).
func mateDistance(score int32) (bool, int) {
	if score > Mate-1000 {
		plies := Mate - score
		return true, int(plies+1) / 2
	}
	if score < -(Mate - 1000) {
		plies := Mate + score
		return true, -int(plies+1) / 2
	}
	return false, 0
}
