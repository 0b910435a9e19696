package search

import (
	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/position"
)

// qSeeValue mirrors position.seeValue's scale for delta-pruning estimates;
// duplicated here (rather than exported from position) since it's a
// search-only heuristic, not a position invariant.
var qSeeValue = [board.FigureArraySize]int32{0, 100, 320, 330, 500, 900, 20000}

const deltaMargin = 200
const queenMinusPawnBonus = qSeeValueQueen - qSeeValuePawn

const (
	qSeeValuePawn  = 100
	qSeeValueQueen = 900
)

// gamePhase estimates how far the position is from the opening, in
// [0,1], from non-pawn material relative to the opening maximum (two
// knights, two bishops, two rooks, one queen per side).
func gamePhase(pos *position.Position) float64 {
	const openingNonPawn = 2*320 + 2*330 + 2*500 + 900
	total := 0
	for _, side := range [2]board.Color{board.White, board.Black} {
		bb := nonPawnMaterial(pos, side)
		for bb != 0 {
			sq := bb.Pop()
			total += int(qSeeValue[pos.Get(sq).Figure()])
		}
	}
	phase := 1 - float64(total)/float64(2*openingNonPawn)
	if phase < 0 {
		phase = 0
	}
	if phase > 1 {
		phase = 1
	}
	return phase
}

// quiescence resolves captures (and, at the first quiescence ply only,
// checks) until the position is "quiet", standing pat on the static
// evaluation in between. qdepth counts plies since quiescence was
// entered, capped at MAX_Q_PLY regardless of the overall search ply.
func (s *Searcher) quiescence(pos *position.Position, alpha, beta int32, ply int) int32 {
	return s.quiescenceAt(pos, alpha, beta, ply, 0)
}

func (s *Searcher) quiescenceAt(pos *position.Position, alpha, beta int32, ply, qdepth int) int32 {
	if s.checkStop() {
		return interrupted
	}
	s.nodes++

	us := pos.SideToMove
	inCheck := pos.IsChecked(us)

	var static int32
	if !inCheck {
		static = evaluate(s.Net, pos)
		if static >= beta {
			return static
		}
		if static > alpha {
			alpha = static
		}
	}

	if qdepth >= maxQuiescence {
		return static
	}

	kind := position.Violent
	if inCheck || qdepth == 0 {
		kind = position.All
	}
	var moves []board.Move
	pos.GenerateLegal(kind, &moves)

	if len(moves) == 0 {
		if inCheck {
			return matedIn(ply)
		}
		return static
	}

	lateEndgame := gamePhase(pos) >= 0.7
	ordered := s.orderMoves(pos, moves, ply, board.NullMove, board.NullMove)

	best := static
	for _, sm := range ordered {
		m := sm.m
		violent := m.IsCapture()
		checkingQuiet := !violent && qdepth == 0 && !inCheck && pos.IsCheck(m)
		if !violent && !checkingQuiet && !inCheck {
			continue
		}

		if violent && !lateEndgame && !inCheck {
			gain := qSeeValue[m.Capture.Figure()]
			if m.MoveType == board.Promotion {
				gain += queenMinusPawnBonus
			}
			if static+gain+deltaMargin < alpha {
				continue
			}
		}
		if violent && !inCheck && pos.SEE(m.To, us) < 0 {
			continue
		}

		pos.DoMove(m)
		score := -s.quiescenceAt(pos, -beta, -alpha, ply+1, qdepth+1)
		pos.UndoMove(m)

		if score == -interrupted {
			return interrupted
		}
		if score > best {
			best = score
			if score > alpha {
				alpha = score
			}
		}
		if alpha >= beta {
			return best
		}
	}

	return best
}
