package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankFileAndSquareRoundTrip(t *testing.T) {
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			sq := RankFile(r, f)
			require.Equal(t, r, sq.Rank())
			require.Equal(t, f, sq.File())
		}
	}
}

func TestSquareFromStringRoundTripsWithString(t *testing.T) {
	for sq := SquareMinValue; sq <= SquareMaxValue; sq++ {
		got, err := SquareFromString(sq.String())
		require.NoError(t, err)
		require.Equal(t, sq, got)
	}
}

func TestSquareFromStringRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "e", "e9", "i4", "e44"} {
		_, err := SquareFromString(s)
		require.Error(t, err, "expected error for %q", s)
	}
}

func TestSquareMirrorIsAnInvolution(t *testing.T) {
	for sq := SquareMinValue; sq <= SquareMaxValue; sq++ {
		require.Equal(t, sq, sq.Mirror().Mirror())
		require.Equal(t, 7-sq.Rank(), sq.Mirror().Rank())
		require.Equal(t, sq.File(), sq.Mirror().File())
	}
}

func TestColorOppositeIsAnInvolution(t *testing.T) {
	require.Equal(t, Black, White.Opposite())
	require.Equal(t, White, Black.Opposite())
}

func TestColorMultiplier(t *testing.T) {
	require.EqualValues(t, 1, White.Multiplier())
	require.EqualValues(t, -1, Black.Multiplier())
}

func TestColorFigurePacksAndUnpacks(t *testing.T) {
	for _, c := range []Color{White, Black} {
		for f := FigureMinValue; f <= FigureMaxValue; f++ {
			pi := ColorFigure(c, f)
			require.Equal(t, c, pi.Color())
			require.Equal(t, f, pi.Figure())
		}
	}
}

func TestBitboardPopVisitsEverySetBitOnce(t *testing.T) {
	bb := SquareA1.Bitboard() | SquareH8.Bitboard() | SquareE4.Bitboard()
	require.Equal(t, 3, bb.Count())

	seen := map[Square]bool{}
	for bb != 0 {
		seen[bb.Pop()] = true
	}
	require.Len(t, seen, 3)
	require.True(t, seen[SquareA1])
	require.True(t, seen[SquareH8])
	require.True(t, seen[SquareE4])
}

func TestBitboardHas(t *testing.T) {
	bb := SquareD4.Bitboard()
	require.True(t, bb.Has(SquareD4))
	require.False(t, bb.Has(SquareD5))
}

func TestBitboardAsSquareOnSingleBit(t *testing.T) {
	require.Equal(t, SquareG6, SquareG6.Bitboard().AsSquare())
}

func TestRankBbAndFileBbCoverEightSquares(t *testing.T) {
	for r := 0; r < 8; r++ {
		require.Equal(t, 8, RankBb(r).Count())
	}
	for f := 0; f < 8; f++ {
		require.Equal(t, 8, FileBb(f).Count())
	}
}

func TestCastleString(t *testing.T) {
	require.Equal(t, "-", NoCastle.String())
	require.Equal(t, "KQkq", AnyCastle.String())
	require.Equal(t, "Kq", (WhiteOO | BlackOOO).String())
}

func TestCastlingRookKingAndQueenSide(t *testing.T) {
	piece, start, end := CastlingRook(SquareG1)
	require.Equal(t, ColorFigure(White, Rook), piece)
	require.Equal(t, SquareH1, start)
	require.Equal(t, SquareF1, end)

	piece, start, end = CastlingRook(SquareC8)
	require.Equal(t, ColorFigure(Black, Rook), piece)
	require.Equal(t, SquareA8, start)
	require.Equal(t, SquareD8, end)
}

func TestMoveUCIRendersPromotionAndCastling(t *testing.T) {
	promo := Move{From: SquareE7, To: SquareE8, Target: ColorFigure(White, Queen), MoveType: Promotion}
	require.Equal(t, "e7e8q", promo.UCI())

	castle := Move{From: SquareE1, To: SquareG1, Target: ColorFigure(White, King), MoveType: Castling}
	require.Equal(t, "e1g1", castle.UCI())

	require.Equal(t, "0000", NullMove.UCI())
}

func TestMoveIsQuietAndIsCapture(t *testing.T) {
	quiet := Move{From: SquareE2, To: SquareE4, Target: ColorFigure(White, Pawn)}
	require.True(t, quiet.IsQuiet())
	require.False(t, quiet.IsCapture())

	capture := Move{From: SquareE4, To: SquareD5, Capture: ColorFigure(Black, Pawn), Target: ColorFigure(White, Pawn)}
	require.False(t, capture.IsQuiet())
	require.True(t, capture.IsCapture())

	ep := Move{From: SquareE5, To: SquareD6, Capture: ColorFigure(Black, Pawn), Target: ColorFigure(White, Pawn), MoveType: Enpassant}
	require.True(t, ep.IsCapture())
	require.Equal(t, SquareD5, ep.CaptureSquare())
}
