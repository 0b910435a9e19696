package controller

import (
	"testing"
	"time"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/nnue"
	"github.com/stretchr/testify/require"
)

func newTestController() *Controller {
	return New(nil, nnue.Default(), DefaultOptions())
}

func TestSetPositionAppliesMoves(t *testing.T) {
	c := newTestController()
	err := c.SetPosition("startpos", nil)
	require.Error(t, err) // "startpos" is not a FEN; callers resolve it before calling SetPosition

	err = c.SetPosition(`rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1`, []string{"e2e4", "e7e5"})
	require.NoError(t, err)
	require.Equal(t, board.White, c.Position().SideToMove)
}

func TestPlayMoveRejectsIllegalMove(t *testing.T) {
	c := newTestController()
	err := c.PlayMove("e2e5")
	require.Error(t, err)
}

func TestSearchReportsBestMoveAndStops(t *testing.T) {
	c := newTestController()

	done := make(chan board.Move, 1)
	c.OnBestMove = func(best, ponder board.Move) { done <- best }

	c.Search(SearchParams{Depth: 4})
	select {
	case best := <-done:
		require.NotEqual(t, board.NullMove, best)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not report a best move in time")
	}
	c.Wait()
}

func TestStopInterruptsInfiniteSearch(t *testing.T) {
	c := newTestController()

	done := make(chan board.Move, 1)
	c.OnBestMove = func(best, ponder board.Move) { done <- best }

	c.Search(SearchParams{Infinite: true})
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not cause the search to return")
	}
	c.Wait()
}

func TestPonderHitArmsStoredBudget(t *testing.T) {
	c := newTestController()

	done := make(chan board.Move, 1)
	c.OnBestMove = func(best, ponder board.Move) { done <- best }

	c.Search(SearchParams{Ponder: true, WTime: 50 * time.Millisecond, MovesToGo: 30})
	time.Sleep(5 * time.Millisecond)
	c.PonderHit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ponderhit never caused the search to respect its budget")
	}
	c.Wait()
}

func TestPerftMatchesKnownStartposCounts(t *testing.T) {
	c := newTestController()
	counts, total := c.Perft(3)
	require.Len(t, counts, 20)
	require.EqualValues(t, 8902, total)
}

func TestComputeBudgetHonoursMoveTime(t *testing.T) {
	budget, unlimited := computeBudget(SearchParams{MoveTime: 200 * time.Millisecond}, 30*time.Millisecond, board.White)
	require.False(t, unlimited)
	require.Equal(t, 170*time.Millisecond, budget)
}

func TestComputeBudgetUnlimitedOnlyForInfinite(t *testing.T) {
	_, unlimited := computeBudget(SearchParams{Infinite: true}, 30*time.Millisecond, board.White)
	require.True(t, unlimited)

	// Ponder still computes a real budget: Search just defers applying
	// it as a deadline until PonderHit.
	budget, unlimited := computeBudget(SearchParams{Ponder: true, WTime: 60 * time.Second, MovesToGo: 30}, 0, board.White)
	require.False(t, unlimited)
	require.Equal(t, 2*time.Second, budget)
}

func TestComputeBudgetFloorsAtTenMillis(t *testing.T) {
	budget, unlimited := computeBudget(SearchParams{WTime: 50 * time.Millisecond, MovesToGo: 30}, 0, board.White)
	require.False(t, unlimited)
	require.Equal(t, 10*time.Millisecond, budget)
}

func TestComputeBudgetUsesSideToMoveClock(t *testing.T) {
	params := SearchParams{
		WTime: 60 * time.Second, WInc: 0,
		BTime: 6 * time.Second, BInc: 0,
		MovesToGo: 30,
	}
	white, _ := computeBudget(params, 0, board.White)
	black, _ := computeBudget(params, 0, board.Black)
	require.Greater(t, white, black)
}
