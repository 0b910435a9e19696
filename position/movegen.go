// movegen.go generates pseudo-legal moves piece by piece from the attack
// tables in package board, then filters them down to legal moves by
// making each move and testing whether the mover's own king ends up in
// check.
package position

import "github.com/corvidchess/corvid/board"

// Move classification bits, used to restrict generation to a subset of
// moves (quiescence asks for Violent only, except at its first ply or in
// check, for instance).
const (
	Quiet    int = 1 << iota // no capture, no castling, no promotion
	Tactical                 // castling and underpromotions
	Violent                  // captures and queen promotions
	All      = Quiet | Tactical | Violent
)

func moveKind(capture board.Piece, mt board.MoveType, target board.Piece) int {
	switch {
	case mt == board.Castling:
		return Tactical
	case mt == board.Promotion:
		if target.Figure() == board.Queen {
			return Violent
		}
		return Tactical
	case capture != board.NoPiece:
		return Violent
	default:
		return Quiet
	}
}

// attackers returns the bitboard of `by`-coloured pieces attacking sq.
func (pos *Position) attackers(sq board.Square, by board.Color) board.Bitboard {
	occ := pos.Occupied()
	var att board.Bitboard
	att |= board.PawnAttack[by.Opposite()][sq] & pos.ByPiece(by, board.Pawn)
	att |= board.KnightAttack[sq] & pos.ByPiece(by, board.Knight)
	att |= board.KingAttack[sq] & pos.ByPiece(by, board.King)
	att |= board.BishopAttack(sq, occ) & (pos.ByPiece(by, board.Bishop) | pos.ByPiece(by, board.Queen))
	att |= board.RookAttack(sq, occ) & (pos.ByPiece(by, board.Rook) | pos.ByPiece(by, board.Queen))
	return att
}

// GetAttacker returns the weakest-first figure of `by` attacking sq, or
// board.NoFigure if none. SEE does not call it: it uses weakestAttacker
// on its own mutated occupancy.
func (pos *Position) GetAttacker(sq board.Square, by board.Color) board.Figure {
	occ := pos.Occupied()
	if board.PawnAttack[by.Opposite()][sq]&pos.ByPiece(by, board.Pawn) != 0 {
		return board.Pawn
	}
	if board.KnightAttack[sq]&pos.ByPiece(by, board.Knight) != 0 {
		return board.Knight
	}
	if board.BishopAttack(sq, occ)&pos.ByPiece(by, board.Bishop) != 0 {
		return board.Bishop
	}
	if board.RookAttack(sq, occ)&pos.ByPiece(by, board.Rook) != 0 {
		return board.Rook
	}
	if board.QueenAttack(sq, occ)&pos.ByPiece(by, board.Queen) != 0 {
		return board.Queen
	}
	if board.KingAttack[sq]&pos.ByPiece(by, board.King) != 0 {
		return board.King
	}
	return board.NoFigure
}

var promotionFigures = [...]board.Figure{board.Queen, board.Rook, board.Bishop, board.Knight}

// GeneratePseudoLegal appends every pseudo-legal move of kind to moves.
func (pos *Position) GeneratePseudoLegal(kind int, moves *[]board.Move) {
	us, them := pos.SideToMove, pos.SideToMove.Opposite()
	occ := pos.Occupied()
	ownOcc := pos.ByColor[us]

	pos.genPawnMoves(kind, moves)

	for bb := pos.ByPiece(us, board.Knight); bb != 0; {
		from := bb.Pop()
		pos.emit(us, from, board.KnightAttack[from]&^ownOcc, kind, moves)
	}
	for bb := pos.ByPiece(us, board.Bishop); bb != 0; {
		from := bb.Pop()
		pos.emit(us, from, board.BishopAttack(from, occ)&^ownOcc, kind, moves)
	}
	for bb := pos.ByPiece(us, board.Rook); bb != 0; {
		from := bb.Pop()
		pos.emit(us, from, board.RookAttack(from, occ)&^ownOcc, kind, moves)
	}
	for bb := pos.ByPiece(us, board.Queen); bb != 0; {
		from := bb.Pop()
		pos.emit(us, from, board.QueenAttack(from, occ)&^ownOcc, kind, moves)
	}
	if bb := pos.ByPiece(us, board.King); bb != 0 {
		from := bb.AsSquare()
		pos.emit(us, from, board.KingAttack[from]&^ownOcc, kind, moves)
	}
	if kind&Tactical != 0 {
		pos.genCastles(us, them, moves)
	}
}

func (pos *Position) emit(us board.Color, from board.Square, targets board.Bitboard, kind int, moves *[]board.Move) {
	for targets != 0 {
		to := targets.Pop()
		capture := pos.Get(to)
		m := board.Move{From: from, To: to, Capture: capture, Target: pos.Get(from), MoveType: board.Normal}
		if moveKind(capture, board.Normal, m.Target)&kind != 0 {
			*moves = append(*moves, m)
		}
	}
}

func (pos *Position) genPawnMoves(kind int, moves *[]board.Move) {
	us := pos.SideToMove
	pawns := pos.ByPiece(us, board.Pawn)
	occ := pos.Occupied()
	forward := 8
	startRank, promoRank := 1, 7
	if us == board.Black {
		forward, startRank, promoRank = -8, 6, 0
	}

	for bb := pawns; bb != 0; {
		from := bb.Pop()
		to := board.Square(int(from) + forward)

		// Captures (including promotions by capture).
		for att := board.PawnAttack[us][from] & pos.ByColor[us.Opposite()]; att != 0; {
			capTo := att.Pop()
			pos.emitPawnMove(us, from, capTo, promoRank, kind, moves)
		}
		// En-passant.
		if pos.epSquare != board.NoSquare && board.PawnAttack[us][from].Has(pos.epSquare) {
			captured := board.RankFile(from.Rank(), pos.epSquare.File())
			m := board.Move{From: from, To: pos.epSquare, Capture: pos.Get(captured),
				Target: board.ColorFigure(us, board.Pawn), MoveType: board.Enpassant}
			if Violent&kind != 0 {
				*moves = append(*moves, m)
			}
		}
		// Single push.
		if !occ.Has(to) {
			pos.emitPawnMove(us, from, to, promoRank, kind, moves)
			// Double push.
			if from.Rank() == startRank {
				to2 := board.Square(int(to) + forward)
				if !occ.Has(to2) {
					m := board.Move{From: from, To: to2, Target: board.ColorFigure(us, board.Pawn), MoveType: board.Normal}
					if Quiet&kind != 0 {
						*moves = append(*moves, m)
					}
				}
			}
		}
	}
}

func (pos *Position) emitPawnMove(us board.Color, from, to board.Square, promoRank int, kind int, moves *[]board.Move) {
	capture := pos.Get(to)
	if to.Rank() == promoRank {
		for _, fig := range promotionFigures {
			m := board.Move{From: from, To: to, Capture: capture, Target: board.ColorFigure(us, fig), MoveType: board.Promotion}
			if moveKind(capture, board.Promotion, m.Target)&kind != 0 {
				*moves = append(*moves, m)
			}
		}
		return
	}
	m := board.Move{From: from, To: to, Capture: capture, Target: board.ColorFigure(us, board.Pawn), MoveType: board.Normal}
	if moveKind(capture, board.Normal, m.Target)&kind != 0 {
		*moves = append(*moves, m)
	}
}

func (pos *Position) genCastles(us, them board.Color, moves *[]board.Move) {
	occ := pos.Occupied()
	rank := us.KingHomeRank()
	kingSq := board.RankFile(rank, 4)
	if pos.ByPiece(us, board.King)&kingSq.Bitboard() == 0 {
		return // king not on its home square; castling impossible regardless of rights
	}

	type castleSpec struct {
		right     board.Castle
		kingEnd   int
		transit   []int // squares (by file) that must be empty and unattacked, excluding king start
		emptyOnly []int // additional squares that must be empty but need not be unattacked (b-file on queen side)
	}
	kingSideRight, queenSideRight := board.WhiteOO, board.WhiteOOO
	if us == board.Black {
		kingSideRight, queenSideRight = board.BlackOO, board.BlackOOO
	}
	specs := []castleSpec{
		{right: kingSideRight, kingEnd: 6, transit: []int{5, 6}},
		{right: queenSideRight, kingEnd: 2, transit: []int{3, 2}, emptyOnly: []int{1}},
	}

	for _, spec := range specs {
		if pos.castling&spec.right == 0 {
			continue
		}
		blocked := false
		for _, f := range spec.transit {
			if occ.Has(board.RankFile(rank, f)) {
				blocked = true
				break
			}
		}
		for _, f := range spec.emptyOnly {
			if occ.Has(board.RankFile(rank, f)) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		if pos.attackers(kingSq, them) != 0 {
			continue // king currently in check
		}
		safe := true
		for _, f := range spec.transit {
			if pos.attackers(board.RankFile(rank, f), them) != 0 {
				safe = false
				break
			}
		}
		if !safe {
			continue
		}
		kingEnd := board.RankFile(rank, spec.kingEnd)
		*moves = append(*moves, board.Move{
			From: kingSq, To: kingEnd, Target: board.ColorFigure(us, board.King), MoveType: board.Castling,
		})
	}
}

// GenerateLegal appends every legal move of kind to moves. Illegal
// pseudo-legal moves (those leaving the mover's own king in check) are
// filtered by making and unmaking each candidate.
func (pos *Position) GenerateLegal(kind int, moves *[]board.Move) {
	us := pos.SideToMove
	pseudo := make([]board.Move, 0, 256)
	pos.GeneratePseudoLegal(kind, &pseudo)
	for _, m := range pseudo {
		pos.DoMove(m)
		legal := !pos.IsChecked(us)
		pos.UndoMove(m)
		if legal {
			*moves = append(*moves, m)
		}
	}
}

// IsCheck reports whether m, if played, would check the opponent. It is
// expensive (it plays the move); callers cache the result where they can.
func (pos *Position) IsCheck(m board.Move) bool {
	them := pos.SideToMove.Opposite()
	pos.DoMove(m)
	check := pos.IsChecked(them)
	pos.UndoMove(m)
	return check
}
