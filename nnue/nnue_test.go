package nnue

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidchess/corvid/board"
)

func TestFileSizeMatchesSpecFormula(t *testing.T) {
	require.Equal(t, numFeatures*H*2+H*2+2*H*2+2, FileSize)
}

func TestDefaultNetworkParsesToEmbeddedFileSize(t *testing.T) {
	require.Len(t, defaultNetworkBytes, FileSize)
	require.NotNil(t, Default())
}

func TestDefaultIsASingleton(t *testing.T) {
	require.Same(t, Default(), Default())
}

func TestParseRejectsWrongSize(t *testing.T) {
	_, err := parse(make([]byte, FileSize-2))
	require.Error(t, err)
}

func TestLoadRefusesASecondLoad(t *testing.T) {
	data := make([]byte, FileSize)
	_, err := Load(data)
	require.NoError(t, err, "Default does not count as a load, so the first Load succeeds")
	_, err = Load(data)
	require.Error(t, err, "a second Load in the same process must be refused")
}

func TestFeatureIndexSeparatesOwnFromEnemy(t *testing.T) {
	own := FeatureIndex(board.White, board.ColorFigure(board.White, board.Pawn), board.SquareE4)
	enemy := FeatureIndex(board.White, board.ColorFigure(board.Black, board.Pawn), board.SquareE4)
	require.Less(t, own, 6*64)
	require.GreaterOrEqual(t, enemy, 6*64)
	require.Less(t, enemy, 2*6*64)
}

func TestFeatureIndexMirrorsForBlackPerspective(t *testing.T) {
	whitePerspective := FeatureIndex(board.White, board.ColorFigure(board.White, board.Knight), board.SquareB1)
	blackPerspective := FeatureIndex(board.Black, board.ColorFigure(board.Black, board.Knight), board.SquareB8)
	require.Equal(t, whitePerspective, blackPerspective, "a piece on its home rank looks identical from its own perspective regardless of colour")
}

func TestFeatureIndexIsWithinRange(t *testing.T) {
	for _, c := range []board.Color{board.White, board.Black} {
		for _, pc := range []board.Color{board.White, board.Black} {
			for fig := board.FigureMinValue; fig <= board.FigureMaxValue; fig++ {
				for sq := board.SquareMinValue; sq <= board.SquareMaxValue; sq++ {
					idx := FeatureIndex(c, board.ColorFigure(pc, fig), sq)
					require.GreaterOrEqual(t, idx, 0)
					require.Less(t, idx, numFeatures)
				}
			}
		}
	}
}

func TestAccumulatorAddThenRemoveIsIdentity(t *testing.T) {
	n := Default()
	var acc Accumulator
	acc.Init(n)
	before := acc

	acc.Add(n, board.White, board.ColorFigure(board.White, board.Queen), board.SquareD4)
	require.NotEqual(t, before, acc)

	acc.Remove(n, board.White, board.ColorFigure(board.White, board.Queen), board.SquareD4)
	require.Equal(t, before, acc)
}

func TestScreluClampsToZeroAndQA(t *testing.T) {
	require.EqualValues(t, 0, screlu(-50))
	require.EqualValues(t, QA*QA, screlu(QA+100))
	require.EqualValues(t, 100*100, screlu(100))
}

func TestEvaluateRepeatsForSameAccumulatorPair(t *testing.T) {
	n := &Network{}
	for i := 0; i < 2*H; i++ {
		n.outputWeights[i] = int16(i%7 - 3)
	}
	n.outputBias = 5

	var a, b Accumulator
	for i := 0; i < H; i++ {
		a.values[i] = int16(i)
		b.values[i] = int16(H - i)
	}

	// Evaluate treats its first argument as the side to move; swapping
	// which accumulator plays which role should generally change the
	// score (the two halves use different weight slices), but evaluating
	// the same pair twice must be deterministic.
	first := Evaluate(n, &a, &b)
	second := Evaluate(n, &a, &b)
	require.Equal(t, first, second)
}

func TestEvaluateIsDeterministicGivenWeights(t *testing.T) {
	data := make([]byte, FileSize)
	for i := range data {
		data[i] = byte(i * 7 % 251)
	}
	// Keep values within int16 range by construction (single bytes), then
	// round-trip through the real little-endian parser.
	n, err := parse(data)
	require.NoError(t, err)

	var a, b Accumulator
	a.Init(n)
	b.Init(n)
	require.Equal(t, Evaluate(n, &a, &b), Evaluate(n, &a, &b))
}

func TestLittleEndianByteOrderIsRespectedByParse(t *testing.T) {
	data := make([]byte, FileSize)
	v := int16(-5)
	binary.LittleEndian.PutUint16(data[0:], uint16(v))
	n, err := parse(data)
	require.NoError(t, err)
	require.EqualValues(t, -5, n.featureWeights[0][0])
}
