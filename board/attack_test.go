package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnightAttackFromCorner(t *testing.T) {
	att := KnightAttack[SquareA1]
	require.Equal(t, 2, att.Count())
	require.True(t, att.Has(SquareB3))
	require.True(t, att.Has(SquareC2))
}

func TestKingAttackFromCenter(t *testing.T) {
	att := KingAttack[SquareD4]
	require.Equal(t, 8, att.Count())
}

func TestPawnAttackIsColorAsymmetric(t *testing.T) {
	white := PawnAttack[White][SquareE4]
	black := PawnAttack[Black][SquareE4]
	require.True(t, white.Has(SquareD5))
	require.True(t, white.Has(SquareF5))
	require.True(t, black.Has(SquareD3))
	require.True(t, black.Has(SquareF3))
	require.False(t, white.Has(SquareD3))
}

func TestRookAttackOnEmptyBoardCoversRankAndFile(t *testing.T) {
	att := RookAttack(SquareD4, 0)
	require.Equal(t, 14, att.Count()) // 7 on the d-file + 7 on the 4th rank
	require.True(t, att.Has(SquareD1))
	require.True(t, att.Has(SquareD8))
	require.True(t, att.Has(SquareA4))
	require.True(t, att.Has(SquareH4))
	require.False(t, att.Has(SquareE5))
}

func TestRookAttackStopsAtBlocker(t *testing.T) {
	occ := SquareD6.Bitboard()
	att := RookAttack(SquareD4, occ)
	require.True(t, att.Has(SquareD5))
	require.True(t, att.Has(SquareD6)) // the blocker itself is a legal capture target
	require.False(t, att.Has(SquareD7))
}

func TestBishopAttackOnEmptyBoard(t *testing.T) {
	att := BishopAttack(SquareD4, 0)
	require.True(t, att.Has(SquareA1))
	require.True(t, att.Has(SquareH8))
	require.True(t, att.Has(SquareA7))
	require.True(t, att.Has(SquareG1))
	require.False(t, att.Has(SquareD5))
}

func TestQueenAttackIsUnionOfRookAndBishop(t *testing.T) {
	occ := SquareF6.Bitboard() | SquareB2.Bitboard()
	want := RookAttack(SquareD4, occ) | BishopAttack(SquareD4, occ)
	require.Equal(t, want, QueenAttack(SquareD4, occ))
}

func TestMagicTablesAgreeWithSlidingAttackForEverySquare(t *testing.T) {
	occupancies := []Bitboard{
		0,
		SquareD6.Bitboard() | SquareD2.Bitboard(),
		SquareB2.Bitboard() | SquareF6.Bitboard() | SquareA7.Bitboard(),
		0xFFFFFFFFFFFFFFFF,
	}
	for sq := SquareMinValue; sq <= SquareMaxValue; sq++ {
		for _, occ := range occupancies {
			require.Equal(t, slidingAttack(sq, rookDeltas, occ), RookAttack(sq, occ), "rook sq=%v occ=%x", sq, occ)
			require.Equal(t, slidingAttack(sq, bishopDeltas, occ), BishopAttack(sq, occ), "bishop sq=%v occ=%x", sq, occ)
		}
	}
}
