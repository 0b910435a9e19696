package perft

import (
	"testing"

	"github.com/corvidchess/corvid/nnue"
	"github.com/corvidchess/corvid/position"
	"github.com/stretchr/testify/require"
)

func perftPosition(t *testing.T, fen string) *position.Position {
	t.Helper()
	pos, err := position.FromFEN(fen)
	require.NoError(t, err)
	pos.SetNetwork(nnue.Default())
	return pos
}

// The seed corpus from spec.md §8: for each (fen, depth) the total leaf
// count produced by legal move generation must equal the published
// value, exercised once with the cache enabled and once without.
var corpus = []struct {
	name  string
	fen   string
	depth int
	want  uint64
}{
	{"startpos", position.FENStartPos, 1, 20},
	{"startpos", position.FENStartPos, 2, 400},
	{"startpos", position.FENStartPos, 3, 8902},
	{"startpos", position.FENStartPos, 4, 197281},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", 3, 97862},
	{"duplain", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - -", 4, 43238},
	{"promotion-heavy", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq -", 3, 89890},
	{"mixed-tactics", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", 3, 62379},
}

func TestCountMatchesPublishedCorpus(t *testing.T) {
	for _, c := range corpus {
		t.Run(c.name, func(t *testing.T) {
			pos := perftPosition(t, c.fen)
			got := Count(pos, c.depth, nil)
			require.Equal(t, c.want, got)
		})
	}
}

func TestCountMatchesWithCacheEnabled(t *testing.T) {
	for _, c := range corpus {
		t.Run(c.name, func(t *testing.T) {
			pos := perftPosition(t, c.fen)
			got := Count(pos, c.depth, NewCache())
			require.Equal(t, c.want, got)
		})
	}
}

func TestPerRootMoveSumsToTotal(t *testing.T) {
	pos := perftPosition(t, position.FENStartPos)
	counts, total := PerRootMove(pos, 4, NewCache())
	require.Len(t, counts, 20)

	var sum uint64
	for _, c := range counts {
		sum += c.Nodes
	}
	require.Equal(t, total, sum)
	require.EqualValues(t, 197281, total)
}

func TestPositionUnchangedAfterCount(t *testing.T) {
	pos := perftPosition(t, position.FENStartPos)
	before := pos.Zobrist()
	Count(pos, 4, nil)
	require.Equal(t, before, pos.Zobrist())
}
