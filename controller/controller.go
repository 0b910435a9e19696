// Package controller owns the live position, repetition history, shared
// transposition table, and the lifecycle of at most one search worker. It
// is the single point where the protocol layer's commands turn into calls
// against position/search, decoupling the UCI line-reader from whatever a
// search happens to be doing.
package controller

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/nnue"
	"github.com/corvidchess/corvid/perft"
	"github.com/corvidchess/corvid/position"
	"github.com/corvidchess/corvid/search"
	"github.com/corvidchess/corvid/tt"
)

const (
	minHashMB = 1
	maxHashMB = 33554432

	minMoveOverhead = 0 * time.Millisecond
	maxMoveOverhead = 5000 * time.Millisecond

	minThreads = 1
	maxThreads = 1024

	defaultMovesToGo = 30
	minBudget        = 10 * time.Millisecond
)

// Options holds the UCI-settable engine-wide settings, seeded by config
// and mutated by setoption.
type Options struct {
	HashMB       int
	MoveOverhead time.Duration
	Threads      int // advertised only; the engine always searches single-threaded
	PerftHash    bool
	NNUEPath     string
}

// DefaultOptions mirrors the values advertised by the uci command.
func DefaultOptions() Options {
	return Options{
		HashMB:       16,
		MoveOverhead: 30 * time.Millisecond,
		Threads:      1,
		PerftHash:    true,
	}
}

// SearchParams mirrors the parameters of a UCI go command.
type SearchParams struct {
	Depth       int
	MoveTime    time.Duration
	WTime, BTime time.Duration
	WInc, BInc  time.Duration
	MovesToGo   int
	Infinite    bool
	Ponder      bool
	SearchMoves []board.Move
}

// Controller serialises access to the position and transposition table
// between the command-reading goroutine and a single in-flight search
// worker, matching spec.md's two-thread concurrency model.
type Controller struct {
	log *zap.SugaredLogger

	mu   sync.Mutex
	pos  *position.Position
	net  *nnue.Network
	opts Options

	table    *tt.Table
	searcher *search.Searcher

	stopFlag             search.AtomicStopper
	group                *errgroup.Group
	running              atomic.Bool
	pendingPonderBudget  time.Duration

	// OnBestMove is invoked exactly once per search, from the worker
	// goroutine, when the search finishes: it carries the
	// "bestmove <m> [ponder <m'>]" payload up to the protocol layer.
	OnBestMove func(best, ponder board.Move)
	// OnInfo is invoked after every completed iterative-deepening
	// iteration, from the worker goroutine.
	OnInfo func(search.Info)
}

// New builds a Controller at the standard starting position, using net
// for evaluation (nnue.Default() unless an NNUE option overrides it) and
// a transposition table sized per opts.HashMB.
func New(log *zap.SugaredLogger, net *nnue.Network, opts Options) *Controller {
	pos, _ := position.FromFEN(position.FENStartPos)
	pos.SetNetwork(net)
	table := tt.New(opts.HashMB)
	c := &Controller{
		log:      log,
		pos:      pos,
		net:      net,
		opts:     opts,
		table:    table,
		searcher: search.New(net, table),
	}
	return c
}

// NewGame resets the position to the start position and ages the shared
// transposition table rather than clearing it outright, per spec.md §6's
// "TT may persist but should be aged" for ucinewgame.
func (c *Controller) NewGame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos, _ = position.FromFEN(position.FENStartPos)
	c.pos.SetNetwork(c.net)
	c.table.NewSearch()
	c.table.PruneOldEntries()
}

// SetPosition replaces the current position with one parsed from fen,
// then applies moves (in UCI long-algebraic form) in order.
func (c *Controller) SetPosition(fen string, moves []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, err := position.FromFEN(fen)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	pos.SetNetwork(c.net)

	for _, u := range moves {
		m, err := pos.MoveFromUCI(u)
		if err != nil {
			return fmt.Errorf("controller: applying move %q: %w", u, err)
		}
		pos.DoMove(m)
	}

	c.pos = pos
	return nil
}

// PlayMove applies a single UCI move to the current position, e.g. in
// response to an opponent's move arriving outside of a "position ...
// moves" line.
func (c *Controller) PlayMove(uciMove string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.pos.MoveFromUCI(uciMove)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	c.pos.DoMove(m)
	return nil
}

// ResetTT clears every entry of the existing transposition table in place,
// keeping its size.
func (c *Controller) ResetTT() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.Clear()
}

// SetOption applies a single setoption name/value pair, clamping
// out-of-range numeric values rather than rejecting them, per spec.md §7.
func (c *Controller) SetOption(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case "Hash":
		mb, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("controller: Hash value %q: %w", value, err)
		}
		mb = clampInt(mb, minHashMB, maxHashMB)
		c.opts.HashMB = mb
		c.table = tt.New(mb)
		c.searcher = search.New(c.net, c.table)
	case "Move Overhead":
		ms, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("controller: Move Overhead value %q: %w", value, err)
		}
		d := time.Duration(clampInt(ms, int(minMoveOverhead/time.Millisecond), int(maxMoveOverhead/time.Millisecond))) * time.Millisecond
		c.opts.MoveOverhead = d
	case "Threads":
		n, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("controller: Threads value %q: %w", value, err)
		}
		c.opts.Threads = clampInt(n, minThreads, maxThreads)
	case "PerftHash":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("controller: PerftHash value %q: %w", value, err)
		}
		c.opts.PerftHash = b
	case "NNUE":
		net, err := loadNetworkFile(value)
		if err != nil {
			return fmt.Errorf("controller: NNUE: %w", err)
		}
		c.net = net
		c.pos.SetNetwork(net)
		c.searcher = search.New(net, c.table)
		c.opts.NNUEPath = value
	default:
		return fmt.Errorf("controller: unhandled option %q", name)
	}
	return nil
}

// Search parses time-control parameters, computes the time budget, arms
// the stop flag, and spawns the search worker. It returns immediately;
// the worker reports progress via OnInfo and its result via OnBestMove.
func (c *Controller) Search(params SearchParams) {
	c.mu.Lock()
	pos := c.pos.Clone()
	searcher := c.searcher
	overhead := c.opts.MoveOverhead
	side := pos.SideToMove
	c.mu.Unlock()

	budget, unlimited := computeBudget(params, overhead, side)

	limits := search.Limits{
		MaxDepth:    params.Depth,
		Ponder:      params.Ponder,
		SearchMoves: params.SearchMoves,
		Exact:       params.MoveTime > 0,
	}
	switch {
	case params.Ponder:
		// No deadline while pondering; PonderHit arms one from the
		// budget computed from this same go command's clock fields.
	case !unlimited:
		limits.Deadline = time.Now().Add(budget)
	}

	c.mu.Lock()
	c.pendingPonderBudget = budget
	c.stopFlag = search.AtomicStopper{}
	var group errgroup.Group
	c.group = &group
	c.mu.Unlock()
	c.running.Store(true)
	group.Go(func() error {
		defer c.running.Store(false)
		result := searcher.Run(pos, &c.stopFlag, limits, func(info search.Info) {
			if c.OnInfo != nil {
				c.OnInfo(info)
			}
		})
		if c.OnBestMove != nil {
			c.OnBestMove(result.BestMove, result.PonderMove)
		}
		return nil
	})
}

// Stop signals the in-flight search to return its best move immediately.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopFlag.Stop()
}

// PonderHit tells the in-flight search that the pondered move was played:
// from this point on, the budget computed from the go command's own
// clock fields governs when it must return, per spec.md §5's "ponderhit
// clears it and resets the search start time."
func (c *Controller) PonderHit() {
	c.mu.Lock()
	searcher := c.searcher
	budget := c.pendingPonderBudget
	c.mu.Unlock()
	searcher.SetDeadline(time.Now().Add(budget))
}

// Wait blocks until the current (or most recently started) search worker
// has returned.
func (c *Controller) Wait() {
	c.mu.Lock()
	group := c.group
	c.mu.Unlock()
	if group != nil {
		group.Wait()
	}
}

// Running reports whether a search worker is currently in flight.
func (c *Controller) Running() bool { return c.running.Load() }

// Position returns the controller's current position, for read-only use
// by the protocol layer (e.g. the eval command).
func (c *Controller) Position() *position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Network returns the active NNUE network.
func (c *Controller) Network() *nnue.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net
}

// Perft returns the per-root-move leaf counts (and their total) for the
// current position at the given depth, using the zobrist-XOR-depth cache
// unless the PerftHash option disabled it.
func (c *Controller) Perft(depth int) ([]perft.RootCount, uint64) {
	c.mu.Lock()
	pos := c.pos.Clone()
	useCache := c.opts.PerftHash
	c.mu.Unlock()

	var cache *perft.Cache
	if useCache {
		cache = perft.NewCache()
	}
	return perft.PerRootMove(pos, depth, cache)
}

// computeBudget implements spec.md §4.7's time-management formula
// exactly: movetime takes precedence, an infinite search carries no
// budget at all, and otherwise the remaining clock is divided across the
// expected remaining moves, with the increment credited at 80% and the
// move overhead subtracted twice (once from the clock, once from the
// final budget). A ponder search still computes this budget — Search
// just defers applying it as a deadline until PonderHit — since per
// spec.md §5 the go command's own clock fields are what PonderHit later
// arms the deadline from.
func computeBudget(p SearchParams, moveOverhead time.Duration, side board.Color) (budget time.Duration, unlimited bool) {
	if p.MoveTime > 0 {
		b := p.MoveTime - moveOverhead
		if b < 0 {
			b = 0
		}
		return b, false
	}
	if p.Infinite {
		return 0, true
	}

	t, inc := p.WTime, p.WInc
	if side == board.Black {
		t, inc = p.BTime, p.BInc
	}

	movesRemaining := p.MovesToGo
	if movesRemaining <= 0 {
		movesRemaining = defaultMovesToGo
	}

	b := (t - moveOverhead) / time.Duration(maxInt(movesRemaining, 1))
	b += time.Duration(float64(inc) * 0.8)
	if b < minBudget {
		b = minBudget
	}

	reduction := moveOverhead
	if half := b / 2; half < reduction {
		reduction = half
	}
	b -= reduction
	return b, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func parseInt(s string) (int, error) {
	var v int
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "True", "TRUE":
		return true, nil
	case "false", "False", "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("not a bool: %q", s)
	}
}

// loadNetworkFile reads and parses an NNUE network from disk. A missing
// file, wrong size, or second load attempt comes back as a plain error.
// Its only caller is SetOption("NNUE", ...): on error the previous network
// stays in place, and the protocol loop logs the error as a warning and
// keeps running. The process does not exit on it (only cmd/corvid's own
// startup load from the config file is fatal).
func loadNetworkFile(path string) (*nnue.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return nnue.Load(data)
}
