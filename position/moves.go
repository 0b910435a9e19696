package position

import (
	"fmt"

	"github.com/corvidchess/corvid/board"
)

// DoMove applies m, pushing enough state onto the undo stack that
// UndoMove restores every field bit-for-bit.
func (pos *Position) DoMove(m board.Move) {
	pos.undo = append(pos.undo, undoState{
		castling:        pos.castling,
		epSquare:        pos.epSquare,
		halfMoveClock:   pos.HalfMoveClock,
		irreversiblePly: pos.irreversiblePly,
		zobrist:         pos.zobrist,
	})
	pos.Ply++

	pi := m.Piece()
	pos.setCastling(pos.castling &^ lostCastleRights[m.From] &^ lostCastleRights[m.To])

	if m.Capture != board.NoPiece || pi.Figure() == board.Pawn {
		pos.irreversiblePly = pos.Ply
		pos.HalfMoveClock = 0
	} else {
		pos.HalfMoveClock++
	}

	if m.MoveType == board.Castling {
		rook, start, end := board.CastlingRook(m.To)
		pos.remove(start, rook)
		pos.put(end, rook)
	}

	if pi.Figure() == board.Pawn && abs(int(m.To)-int(m.From)) == 16 {
		pos.setEnpassant(board.RankFile((m.From.Rank()+m.To.Rank())/2, m.From.File()))
	} else {
		pos.setEnpassant(board.NoSquare)
	}

	pos.remove(m.From, pi)
	pos.remove(m.CaptureSquare(), m.Capture)
	pos.put(m.To, m.Target)

	if pos.SideToMove == board.Black {
		pos.FullMoveNumber++
	}
	pos.flipSideToMove()

	pos.keys = append(pos.keys, pos.zobrist)
}

// UndoMove reverses the most recently applied move.
func (pos *Position) UndoMove(m board.Move) {
	pos.keys = pos.keys[:len(pos.keys)-1]

	if pos.SideToMove == board.White {
		pos.FullMoveNumber--
	}
	pos.flipSideToMove()

	pi := m.Piece()
	pos.put(m.From, pi)
	pos.remove(m.To, m.Target)
	pos.put(m.CaptureSquare(), m.Capture)

	if m.MoveType == board.Castling {
		rook, start, end := board.CastlingRook(m.To)
		pos.put(start, rook)
		pos.remove(end, rook)
	}

	u := pos.undo[len(pos.undo)-1]
	pos.undo = pos.undo[:len(pos.undo)-1]
	// Restore the exact prior Zobrist rather than re-deriving it through
	// setCastling/setEnpassant, which both assume a still-consistent key.
	pos.castling = u.castling
	pos.epSquare = u.epSquare
	pos.HalfMoveClock = u.halfMoveClock
	pos.irreversiblePly = u.irreversiblePly
	pos.zobrist = u.zobrist
	pos.Ply--
}

// DoNullMove plays a null move: flips side to move and clears the
// en-passant target, used by null-move pruning. UndoNullMove reverses it.
func (pos *Position) DoNullMove() {
	pos.undo = append(pos.undo, undoState{
		castling:        pos.castling,
		epSquare:        pos.epSquare,
		halfMoveClock:   pos.HalfMoveClock,
		irreversiblePly: pos.irreversiblePly,
		zobrist:         pos.zobrist,
	})
	pos.Ply++
	pos.setEnpassant(board.NoSquare)
	pos.flipSideToMove()
	pos.keys = append(pos.keys, pos.zobrist)
}

func (pos *Position) UndoNullMove() {
	pos.keys = pos.keys[:len(pos.keys)-1]
	u := pos.undo[len(pos.undo)-1]
	pos.undo = pos.undo[:len(pos.undo)-1]
	pos.castling = u.castling
	pos.epSquare = u.epSquare
	pos.HalfMoveClock = u.halfMoveClock
	pos.irreversiblePly = u.irreversiblePly
	pos.zobrist = u.zobrist
	pos.SideToMove = pos.SideToMove.Opposite()
	pos.Ply--
}

// FiftyMoveRule reports whether the fifty-move (100 half-move) rule has
// triggered.
func (pos *Position) FiftyMoveRule() bool { return pos.HalfMoveClock >= 100 }

// RepetitionCount returns how many times the current Zobrist key has
// occurred since the last irreversible move, current position included.
func (pos *Position) RepetitionCount() int {
	count := 0
	z := pos.zobrist
	for i := len(pos.keys) - 1; i >= pos.irreversiblePly && i >= 0; i -= 2 {
		if pos.keys[i] == z {
			count++
		}
	}
	return count
}

// IsThreefoldRepetition reports whether the current position has
// occurred at least three times (counting the current occurrence),
// the FIDE rule a caller would query outside of search (e.g. "claim
// draw").
func (pos *Position) IsThreefoldRepetition() bool { return pos.RepetitionCount() >= 3 }

// IsSearchRepetition reports whether the current position has occurred at
// least twice (counting the current occurrence). Per spec.md §3, search
// treats any repeat as a draw rather than waiting for the third
// occurrence: a two-fold repeat inside the search tree already signals
// that a side can force (or is forced into) a draw from here, and scoring
// it as anything else would misjudge draw avoidance/pursuit.
func (pos *Position) IsSearchRepetition() bool { return pos.RepetitionCount() >= 2 }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MoveFromUCI resolves a long-algebraic move string (e.g. "e2e4",
// "e7e8q") against the current position's legal move set. Castling is
// expected encoded as the king's move, matching board.Move.UCI's own
// output, so this is always the exact inverse of that formatting.
func (pos *Position) MoveFromUCI(s string) (board.Move, error) {
	var moves []board.Move
	pos.GenerateLegal(All, &moves)
	for _, m := range moves {
		if m.UCI() == s {
			return m, nil
		}
	}
	return board.NullMove, fmt.Errorf("position: illegal or unknown move %q", s)
}
