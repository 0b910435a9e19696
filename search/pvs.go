package search

import (
	"math"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/position"
	"github.com/corvidchess/corvid/tt"
)

// negamax implements principal variation search: a fail-soft negamax
// alpha-beta search with null-move, razoring, reverse-futility and
// futility pruning, late-move reduction, and transposition-table
// cutoffs/hints. It returns the interrupted sentinel if the external
// stop flag fires anywhere in the subtree.
func (s *Searcher) negamax(pos *position.Position, alpha, beta int32, depth, ply int) int32 {
	if s.checkStop() {
		return interrupted
	}
	s.nodes++
	s.pvLen[ply] = 0

	pvNode := beta-alpha > 1

	if pos.FiftyMoveRule() {
		return 0
	}
	if ply > 1 && ply <= 6 && pos.IsSearchRepetition() {
		return 0
	}

	us := pos.SideToMove
	inCheck := pos.IsChecked(us)
	key := pos.Zobrist()

	var ttMove board.Move
	if entry, ok := s.Table.Probe(key); ok {
		ttMove = entry.Best
		if int(entry.Depth) >= depth {
			score := fromTT(entry.Eval, ply)
			useEntry := !pvNode || entry.Bound != tt.Exact
			if useEntry {
				switch entry.Bound {
				case tt.Exact:
					return score
				case tt.Lower:
					if score >= beta {
						return score
					}
					if score > alpha {
						alpha = score
					}
				case tt.Upper:
					if score <= alpha {
						return score
					}
					if score < beta {
						beta = score
					}
				}
				if alpha >= beta {
					return score
				}
			}
		}
	}

	if depth <= 0 {
		return s.quiescence(pos, alpha, beta, ply)
	}

	nearMate := alpha <= KnownLoss || beta >= KnownWin

	var static int32
	if !inCheck {
		static = evaluate(s.Net, pos)
	}

	if !pvNode && !inCheck && depth <= reverseFutDepth && !nearMate {
		if static-reverseFutilityMargin(depth) >= beta {
			return beta
		}
	}

	if !pvNode && !inCheck && depth >= 1 && depth <= razorDepth && !nearMate {
		if static+razoringMargin(depth) < alpha {
			score := s.quiescence(pos, alpha, beta, ply)
			if score != interrupted && score < alpha {
				return score
			}
		}
	}

	if !pvNode && !inCheck && depth >= nmpMinDepth && static >= beta &&
		nonPawnMaterial(pos, us) != 0 {
		r := 2
		if depth >= 6 {
			r = 3
		}
		pos.DoNullMove()
		score := -s.negamax(pos, -beta, -beta+1, depth-1-r, ply+1)
		pos.UndoNullMove()
		if score == -interrupted {
			return interrupted
		}
		if score >= beta {
			return beta
		}
	}

	allowFutility := !pvNode && !inCheck && depth <= 3 && !nearMate && static+futilityMargin(depth) <= alpha

	var moves []board.Move
	pos.GenerateLegal(position.All, &moves)

	if len(moves) == 0 {
		if inCheck {
			return matedIn(ply)
		}
		return 0
	}

	if s.searchMoves != nil && ply == 0 {
		filtered := moves[:0]
		for _, m := range moves {
			if s.searchMoves[m] {
				filtered = append(filtered, m)
			}
		}
		if len(filtered) > 0 {
			moves = filtered
		}
	}

	var pvMove board.Move
	if ply < s.prevPVLen {
		pvMove = s.prevPV[ply]
	}
	ordered := s.orderMoves(pos, moves, ply, pvMove, ttMove)

	origAlpha := alpha
	bestScore := int32(-Infinity)
	bestMove := board.NullMove
	legalCount := 0

	for _, sm := range ordered {
		m := sm.m
		quiet := m.IsQuiet()

		if allowFutility && quiet && legalCount >= 1 {
			continue
		}

		pos.DoMove(m)
		legalCount++
		givesCheck := pos.IsChecked(pos.SideToMove)

		var score int32
		if legalCount == 1 {
			score = -s.negamax(pos, -beta, -alpha, depth-1, ply+1)
		} else {
			moveIndex := legalCount
			if moveIndex >= lmrStart && depth >= lmrMinDepth && quiet && !inCheck && !givesCheck {
				r := int(math.Log(float64(depth)) * math.Log(float64(moveIndex)) / lmrDivisor)
				if pvNode {
					r--
				}
				if r < 1 {
					r = 1
				}
				if r > depth-1 {
					r = depth - 1
				}
				score = -s.negamax(pos, -alpha-1, -alpha, depth-1-r, ply+1)
				if score != -interrupted && score > alpha {
					score = -s.negamax(pos, -alpha-1, -alpha, depth-1, ply+1)
					if score != -interrupted && alpha < score && score < beta {
						score = -s.negamax(pos, -beta, -alpha, depth-1, ply+1)
					}
				}
			} else {
				score = -s.negamax(pos, -alpha-1, -alpha, depth-1, ply+1)
				if score != -interrupted && alpha < score && score < beta {
					score = -s.negamax(pos, -beta, -alpha, depth-1, ply+1)
				}
			}
		}
		pos.UndoMove(m)

		if score == -interrupted {
			return interrupted
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				s.pv[ply][0] = m
				copy(s.pv[ply][1:], s.pv[ply+1][:s.pvLen[ply+1]])
				s.pvLen[ply] = 1 + s.pvLen[ply+1]
			}
		}

		if alpha >= beta {
			s.recordKiller(ply, m)
			s.bumpHistory(us, m, int32(depth*depth))
			break
		}
		if quiet {
			s.bumpHistory(us, m, -int32(depth))
		}
	}

	bound := boundFor(bestScore, origAlpha, beta)
	s.Table.Store(key, int8(depth), toTT(bestScore, ply), bestMove, bound)

	return bestScore
}
