// see.go implements static exchange evaluation: the material outcome of
// repeatedly capturing on one square with the least valuable attacker
// first, from both sides.
package position

import "github.com/corvidchess/corvid/board"

// seeValue gives each figure a fixed value for exchange estimation,
// independent of the (NNUE-based) positional evaluation.
var seeValue = [board.FigureArraySize]int32{0, 100, 320, 330, 500, 900, 20000}

// SEE returns the static exchange evaluation of capturing on sq, playing
// the exchange out with the least valuable attacker on each side in turn.
// The result is a signed centipawn estimate from the perspective of the
// side initiating the exchange (by).
func (pos *Position) SEE(sq board.Square, by board.Color) int32 {
	occWhite, occBlack := pos.ByColor[board.White], pos.ByColor[board.Black]
	byFigure := pos.ByFigure // copy, mutated locally as pieces are "removed"

	var gains [32]int32
	depth := 0

	target := pos.Get(sq)
	gains[0] = seeValue[target.Figure()]
	side := by

	occOf := func(c board.Color) board.Bitboard {
		if c == board.White {
			return occWhite
		}
		return occBlack
	}
	remove := func(c board.Color, fig board.Figure, from board.Square) {
		bb := ^from.Bitboard()
		if c == board.White {
			occWhite &= bb
		} else {
			occBlack &= bb
		}
		byFigure[fig] &= bb
	}

	for {
		attackers := attackersWith(occWhite|occBlack, occOf(side), byFigure, sq, side)
		if attackers == 0 {
			break
		}
		fig, from := weakestAttacker(attackers, byFigure, side, occOf(side))
		if fig == board.NoFigure {
			break
		}
		depth++
		// gains[depth] is what the other side would win by recapturing
		// the piece that has just captured.
		gains[depth] = seeValue[fig] - gains[depth-1]
		if depth >= len(gains)-1 {
			break
		}
		remove(side, fig, from)
		side = side.Opposite()
	}

	// The last entry is speculative (no recapture followed it), so the
	// minimax back-propagation starts one below it.
	for depth--; depth > 0; depth-- {
		if -gains[depth] < gains[depth-1] {
			gains[depth-1] = -gains[depth]
		}
	}
	return gains[0]
}

// attackersWith recomputes attackers of sq among ownOcc given a (possibly
// mutated) occupancy and figure bitboard snapshot.
func attackersWith(allOcc, ownOcc board.Bitboard, byFigure [board.FigureArraySize]board.Bitboard, sq board.Square, side board.Color) board.Bitboard {
	var att board.Bitboard
	// A pawn of `side` attacks sq from one of the two squares sq's
	// opposite-coloured pawn-attack table points at.
	att |= board.PawnAttack[side.Opposite()][sq] & ownOcc & byFigure[board.Pawn]
	att |= board.KnightAttack[sq] & ownOcc & byFigure[board.Knight]
	att |= board.KingAttack[sq] & ownOcc & byFigure[board.King]
	att |= board.BishopAttack(sq, allOcc) & ownOcc & (byFigure[board.Bishop] | byFigure[board.Queen])
	att |= board.RookAttack(sq, allOcc) & ownOcc & (byFigure[board.Rook] | byFigure[board.Queen])
	return att
}

func weakestAttacker(attackers board.Bitboard, byFigure [board.FigureArraySize]board.Bitboard, side board.Color, ownOcc board.Bitboard) (board.Figure, board.Square) {
	for fig := board.FigureMinValue; fig <= board.FigureMaxValue; fig++ {
		if bb := attackers & byFigure[fig]; bb != 0 {
			return fig, bb.AsSquare()
		}
	}
	return board.NoFigure, 0
}
