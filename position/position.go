// Package position implements the live chess board: piece placement,
// make/unmake with incrementally maintained Zobrist hash and NNUE
// accumulators, FEN parsing/formatting, and repetition tracking.
package position

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/nnue"
)

// FENStartPos is the standard chess starting position.
const FENStartPos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// lostCastleRights[sq] is the mask of castling rights lost the moment a
// king or rook moves away from or is captured on sq.
var lostCastleRights [board.SquareArraySize]board.Castle

func init() {
	lostCastleRights[board.SquareA1] = board.WhiteOOO
	lostCastleRights[board.SquareE1] = board.WhiteOOO | board.WhiteOO
	lostCastleRights[board.SquareH1] = board.WhiteOO
	lostCastleRights[board.SquareA8] = board.BlackOOO
	lostCastleRights[board.SquareE8] = board.BlackOOO | board.BlackOO
	lostCastleRights[board.SquareH8] = board.BlackOO
}

// undoState is everything DoMove mutates that UndoMove must restore,
// beyond the piece placement (which is reconstructed from the move
// itself).
type undoState struct {
	castling        board.Castle
	epSquare        board.Square // board.NoSquare if none
	halfMoveClock   int
	irreversiblePly int
	zobrist         uint64
}

// Position is a complete, mutable board state.
type Position struct {
	pieces   [board.SquareArraySize]board.Piece
	ByColor  [board.ColorArraySize]board.Bitboard
	ByFigure [board.FigureArraySize]board.Bitboard

	SideToMove     board.Color
	HalfMoveClock  int
	FullMoveNumber int
	Ply            int

	castling        board.Castle
	epSquare        board.Square
	irreversiblePly int
	zobrist         uint64

	undo []undoState
	keys []uint64 // ordered Zobrist log, one per ply played, for repetition

	net *nnue.Network
	acc [board.ColorArraySize]nnue.Accumulator
}

// New returns an empty position with no network attached; callers
// typically follow with FromFEN and SetNetwork.
func New() *Position {
	return &Position{epSquare: board.NoSquare, FullMoveNumber: 1}
}

// Clone returns a deep copy that shares no mutable state with pos: a
// search worker given its own clone can DoMove/UndoMove freely while the
// controller's copy is read or replaced from another goroutine, matching
// spec.md §5's "search worker owns a cloned position" concurrency model.
func (pos *Position) Clone() *Position {
	c := *pos
	c.undo = append([]undoState(nil), pos.undo...)
	c.keys = append([]uint64(nil), pos.keys...)
	return &c
}

// SetNetwork attaches the NNUE network used to maintain the accumulators
// and rebuilds them from scratch from the current piece placement. This
// is the copy-based fallback permitted by spec.md's design notes; DoMove
// and UndoMove maintain the accumulators incrementally from this point on.
func (pos *Position) SetNetwork(n *nnue.Network) {
	pos.net = n
	pos.rebuildAccumulators()
}

func (pos *Position) rebuildAccumulators() {
	if pos.net == nil {
		return
	}
	pos.acc[board.White].Init(pos.net)
	pos.acc[board.Black].Init(pos.net)
	for sq := board.SquareMinValue; sq <= board.SquareMaxValue; sq++ {
		pi := pos.pieces[sq]
		if pi == board.NoPiece {
			continue
		}
		pos.acc[board.White].Add(pos.net, board.White, pi, sq)
		pos.acc[board.Black].Add(pos.net, board.Black, pi, sq)
	}
}

// Accumulator returns the perspective-relative accumulator for side.
func (pos *Position) Accumulator(side board.Color) *nnue.Accumulator { return &pos.acc[side] }

// Zobrist returns the position's incrementally maintained hash.
func (pos *Position) Zobrist() uint64 { return pos.zobrist }

// CastlingAbility returns the remaining castling rights.
func (pos *Position) CastlingAbility() board.Castle { return pos.castling }

// EnpassantSquare returns the current en-passant target, or board.NoSquare.
func (pos *Position) EnpassantSquare() board.Square { return pos.epSquare }

// ByPiece is shorthand for ByColor[c] & ByFigure[f].
func (pos *Position) ByPiece(c board.Color, f board.Figure) board.Bitboard {
	return pos.ByColor[c] & pos.ByFigure[f]
}

// Get returns the piece occupying sq, or board.NoPiece.
func (pos *Position) Get(sq board.Square) board.Piece { return pos.pieces[sq] }

// Occupied is the union of all occupied squares.
func (pos *Position) Occupied() board.Bitboard { return pos.ByColor[board.White] | pos.ByColor[board.Black] }

// put places pi on sq, updating bitboards, piece array, Zobrist key and
// accumulators. Does nothing for board.NoPiece.
func (pos *Position) put(sq board.Square, pi board.Piece) {
	if pi == board.NoPiece {
		return
	}
	pos.pieces[sq] = pi
	bb := sq.Bitboard()
	pos.ByColor[pi.Color()] |= bb
	pos.ByFigure[pi.Figure()] |= bb
	pos.zobrist ^= board.ZobristPiece[pi][sq]
	if pos.net != nil {
		pos.acc[board.White].Add(pos.net, board.White, pi, sq)
		pos.acc[board.Black].Add(pos.net, board.Black, pi, sq)
	}
}

// remove clears sq, which must currently hold pi.
func (pos *Position) remove(sq board.Square, pi board.Piece) {
	if pi == board.NoPiece {
		return
	}
	pos.pieces[sq] = board.NoPiece
	bb := ^sq.Bitboard()
	pos.ByColor[pi.Color()] &= bb
	pos.ByFigure[pi.Figure()] &= bb
	pos.zobrist ^= board.ZobristPiece[pi][sq]
	if pos.net != nil {
		pos.acc[board.White].Remove(pos.net, board.White, pi, sq)
		pos.acc[board.Black].Remove(pos.net, board.Black, pi, sq)
	}
}

func (pos *Position) setCastling(c board.Castle) {
	if c == pos.castling {
		return
	}
	pos.zobrist ^= board.ZobristCastle[pos.castling]
	pos.castling = c
	pos.zobrist ^= board.ZobristCastle[pos.castling]
}

func (pos *Position) setEnpassant(sq board.Square) {
	if sq == pos.epSquare {
		return
	}
	pos.zobrist ^= zobristEpKey(pos.epSquare)
	pos.epSquare = sq
	pos.zobrist ^= zobristEpKey(pos.epSquare)
}

func zobristEpKey(sq board.Square) uint64 {
	if sq == board.NoSquare {
		return board.ZobristEnpassant[0]
	}
	return board.ZobristEnpassant[sq.File()+1]
}

func (pos *Position) flipSideToMove() {
	pos.zobrist ^= board.ZobristSideToMove
	pos.SideToMove = pos.SideToMove.Opposite()
}

// IsChecked reports whether side's king is currently attacked.
func (pos *Position) IsChecked(side board.Color) bool {
	kingBB := pos.ByPiece(side, board.King)
	if kingBB == 0 {
		return false
	}
	return pos.attackers(kingBB.AsSquare(), side.Opposite()) != 0
}

// Verify checks the bitboard/piece-array invariants of spec.md §3. It is
// meant for tests and debugging, not the hot path.
func (pos *Position) Verify() error {
	if pos.ByColor[board.White]&pos.ByColor[board.Black] != 0 {
		return fmt.Errorf("position: white/black occupancy overlap")
	}
	var union board.Bitboard
	for f := board.FigureMinValue; f <= board.FigureMaxValue; f++ {
		union |= pos.ByFigure[f]
		for f2 := f + 1; f2 <= board.FigureMaxValue; f2++ {
			if pos.ByFigure[f]&pos.ByFigure[f2] != 0 {
				return fmt.Errorf("position: figure %v and %v overlap", f, f2)
			}
		}
	}
	if union != pos.ByColor[board.White]|pos.ByColor[board.Black] {
		return fmt.Errorf("position: figure union does not match colour union")
	}
	for sq := board.SquareMinValue; sq <= board.SquareMaxValue; sq++ {
		pi := pos.pieces[sq]
		onWhite := pos.ByColor[board.White].Has(sq)
		onBlack := pos.ByColor[board.Black].Has(sq)
		if pi == board.NoPiece {
			if onWhite || onBlack {
				return fmt.Errorf("position: square %v occupied in bitboards but empty in piece array", sq)
			}
			continue
		}
		want := pi.Color() == board.White
		if want != onWhite || want == onBlack {
			return fmt.Errorf("position: square %v colour mismatch for piece %v", sq, pi)
		}
	}
	return nil
}

// String renders the position as FEN.
func (pos *Position) String() string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			sq := board.RankFile(r, f)
			pi := pos.pieces[sq]
			if pi == board.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pieceToFEN(pi))
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r > 0 {
			sb.WriteByte('/')
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(pos.SideToMove.String())
	sb.WriteByte(' ')
	sb.WriteString(pos.castling.String())
	sb.WriteByte(' ')
	if pos.epSquare == board.NoSquare {
		sb.WriteByte('-')
	} else {
		sb.WriteString(pos.epSquare.String())
	}
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(pos.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(pos.FullMoveNumber))
	return sb.String()
}

var pieceFromFEN = map[byte]board.Figure{
	'p': board.Pawn, 'n': board.Knight, 'b': board.Bishop,
	'r': board.Rook, 'q': board.Queen, 'k': board.King,
}

func pieceToFEN(pi board.Piece) string {
	sym := map[board.Figure]string{
		board.Pawn: "p", board.Knight: "n", board.Bishop: "b",
		board.Rook: "r", board.Queen: "q", board.King: "k",
	}[pi.Figure()]
	if pi.Color() == board.White {
		return strings.ToUpper(sym)
	}
	return sym
}

// FromFEN parses fen (standard six-field Forsyth-Edwards Notation; the
// last two fields default to "0 1" if omitted) into a fresh Position. The
// caller is expected to SetNetwork afterwards.
func FromFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("position: fen has too few fields: %q", fen)
	}
	for len(fields) < 6 {
		if len(fields) == 4 {
			fields = append(fields, "0")
		} else {
			fields = append(fields, "1")
		}
	}

	pos := New()
	rank, file := 7, 0
	for _, c := range fields[0] {
		switch {
		case c == '/':
			rank--
			file = 0
		case c >= '1' && c <= '8':
			file += int(c - '0')
		default:
			col := board.Black
			lower := byte(c)
			if c >= 'A' && c <= 'Z' {
				col = board.White
				lower = byte(c) + ('a' - 'A')
			}
			fig, ok := pieceFromFEN[lower]
			if !ok {
				return nil, fmt.Errorf("position: bad piece placement symbol %q", c)
			}
			if rank < 0 || file > 7 {
				return nil, fmt.Errorf("position: piece placement overflows the board")
			}
			pos.put(board.RankFile(rank, file), board.ColorFigure(col, fig))
			file++
		}
	}

	switch fields[1] {
	case "w":
		pos.SideToMove = board.White
	case "b":
		pos.SideToMove = board.Black
		pos.zobrist ^= board.ZobristSideToMove
	default:
		return nil, fmt.Errorf("position: bad side to move %q", fields[1])
	}

	var castling board.Castle
	if fields[2] != "-" {
		for _, c := range fields[2] {
			switch c {
			case 'K':
				castling |= board.WhiteOO
			case 'Q':
				castling |= board.WhiteOOO
			case 'k':
				castling |= board.BlackOO
			case 'q':
				castling |= board.BlackOOO
			default:
				return nil, fmt.Errorf("position: bad castling field %q", fields[2])
			}
		}
	}
	pos.castling = castling
	pos.zobrist ^= board.ZobristCastle[pos.castling]

	if fields[3] != "-" {
		sq, err := board.SquareFromString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("position: bad en passant field %q: %w", fields[3], err)
		}
		pos.epSquare = sq
	}
	pos.zobrist ^= zobristEpKey(pos.epSquare)

	hm, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("position: bad halfmove clock %q: %w", fields[4], err)
	}
	pos.HalfMoveClock = hm

	fm, err := strconv.Atoi(fields[5])
	if err != nil {
		return nil, fmt.Errorf("position: bad fullmove number %q: %w", fields[5], err)
	}
	pos.FullMoveNumber = fm

	// Allocate the undo stack up front so a make/unmake round trip on a
	// fresh position leaves it exactly as it was (empty, not nil).
	pos.undo = make([]undoState, 0, 64)
	pos.keys = append(pos.keys, pos.zobrist)
	return pos, nil
}
