// Package protocol implements the UCI (Universal Chess Interface) line
// protocol: parsing commands off stdin and formatting info/bestmove
// lines to stdout, dispatching everything else to a controller.Controller.
// Grounded on the teacher's cmd_ref_zurichess/uci.go regexp-and-strings
// line dispatch, generalized to this engine's controller/search types.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corvidchess/corvid/board"
	"github.com/corvidchess/corvid/controller"
	"github.com/corvidchess/corvid/nnue"
	"github.com/corvidchess/corvid/position"
	"github.com/corvidchess/corvid/search"
)

const (
	engineName   = "Corvid"
	engineAuthor = "Corvid Authors"
)

// jokes is a small, fixed table cycled deterministically by the joke
// command; it exists purely as a harmless leaf. Grounded on original_source/src/utils/cli.rs's joke
// table (SUPPLEMENTED FEATURES).
var jokes = []string{
	"Why did the pawn refuse the en passant? It wasn't that kind of pawn.",
	"A bishop walks into a corner and stays there forever.",
	"I'd tell you a knight joke, but it would go right over your head.",
	"Castling: the only time a king hides behind a rook and calls it strategy.",
}

var reCmd = regexp.MustCompile(`^[[:word:]]+\b`)
var reOption = regexp.MustCompile(`^setoption\s+name\s+(.+?)(\s+value\s+(.*))?$`)

// UCI drives one controller.Controller from a line-oriented UCI stream.
type UCI struct {
	ctrl      *controller.Controller
	out       io.Writer
	log       *zap.SugaredLogger
	jokeIndex int
}

// New wires up ctrl's progress callbacks to print info/bestmove lines to
// out as they arrive from the search worker.
func New(ctrl *controller.Controller, out io.Writer, log *zap.SugaredLogger) *UCI {
	u := &UCI{ctrl: ctrl, out: out, log: log}
	ctrl.OnInfo = u.printInfo
	ctrl.OnBestMove = u.printBestMove
	return u
}

// Run reads lines from r until EOF or a quit command, dispatching each
// to Execute. Malformed input is logged and does not stop the loop.
func (u *UCI) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		quit, err := u.Execute(scanner.Text())
		if err != nil && u.log != nil {
			u.log.Warnw("malformed input", "error", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute dispatches a single line. It reports quit=true on the quit
// command, instructing Run to stop reading.
func (u *UCI) Execute(line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	cmd := reCmd.FindString(line)
	if cmd == "" {
		return false, fmt.Errorf("protocol: invalid command line %q", line)
	}

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		fmt.Fprintln(u.out, "readyok")
	case "ucinewgame":
		u.ctrl.NewGame()
	case "position":
		return false, u.handlePosition(line)
	case "setoption":
		return false, u.handleSetOption(line)
	case "go":
		return false, u.handleGo(line)
	case "stop":
		u.ctrl.Stop()
		u.ctrl.Wait()
	case "ponderhit":
		u.ctrl.PonderHit()
	case "eval":
		u.handleEval()
	case "joke":
		u.handleJoke()
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("protocol: unhandled command %q", cmd)
	}
	return false, nil
}

func (u *UCI) handleUCI() {
	fmt.Fprintf(u.out, "id name %s\n", engineName)
	fmt.Fprintf(u.out, "id author %s\n", engineAuthor)
	fmt.Fprintln(u.out, "option name Hash type spin default 16 min 1 max 33554432")
	fmt.Fprintln(u.out, "option name Move Overhead type spin default 30 min 0 max 5000")
	fmt.Fprintln(u.out, "option name Threads type spin default 1 min 1 max 1024")
	fmt.Fprintln(u.out, "option name PerftHash type check default true")
	fmt.Fprintln(u.out, "option name NNUE type string default <empty>")
	fmt.Fprintln(u.out, "uciok")
}

// handlePosition parses "position startpos [moves …]" or
// "position fen <fen> [moves …]".
func (u *UCI) handlePosition(line string) error {
	args := strings.Fields(line)[1:]
	if len(args) == 0 {
		return fmt.Errorf("protocol: expected argument for 'position'")
	}

	var fen string
	i := 0
	switch args[0] {
	case "startpos":
		fen = position.FENStartPos
		i = 1
	case "fen":
		i = 1
		for i < len(args) && args[i] != "moves" {
			i++
		}
		fen = strings.Join(args[1:i], " ")
	default:
		return fmt.Errorf("protocol: unknown position command %q", args[0])
	}

	var moves []string
	if i < len(args) {
		if args[i] != "moves" {
			return fmt.Errorf("protocol: expected 'moves', got %q", args[i])
		}
		moves = args[i+1:]
	}

	return u.ctrl.SetPosition(fen, moves)
}

func (u *UCI) handleSetOption(line string) error {
	m := reOption.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("protocol: invalid setoption arguments %q", line)
	}
	return u.ctrl.SetOption(strings.TrimSpace(m[1]), strings.TrimSpace(m[3]))
}

var validGoArgs = map[string]bool{
	"searchmoves": true, "ponder": true, "wtime": true, "btime": true,
	"winc": true, "binc": true, "movestogo": true, "depth": true,
	"nodes": true, "mate": true, "movetime": true, "infinite": true,
	"perft": true,
}

func (u *UCI) handleGo(line string) error {
	args := strings.Fields(line)[1:]
	params := controller.SearchParams{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "perft":
			i++
			d, err := strconv.Atoi(args[i])
			if err != nil {
				return fmt.Errorf("protocol: go perft depth: %w", err)
			}
			u.handlePerft(d)
			return nil
		case "searchmoves":
			pos := u.ctrl.Position()
			for j := i + 1; j < len(args) && !validGoArgs[args[j]]; j++ {
				m, err := pos.MoveFromUCI(args[j])
				if err != nil {
					return fmt.Errorf("protocol: go searchmoves: %w", err)
				}
				params.SearchMoves = append(params.SearchMoves, m)
				i++
			}
		case "ponder":
			params.Ponder = true
		case "infinite":
			params.Infinite = true
		case "wtime":
			i++
			params.WTime = millis(args[i])
		case "btime":
			i++
			params.BTime = millis(args[i])
		case "winc":
			i++
			params.WInc = millis(args[i])
		case "binc":
			i++
			params.BInc = millis(args[i])
		case "movestogo":
			i++
			params.MovesToGo, _ = strconv.Atoi(args[i])
		case "movetime":
			i++
			params.MoveTime = millis(args[i])
		case "depth":
			i++
			params.Depth, _ = strconv.Atoi(args[i])
		case "nodes", "mate":
			i++ // advertised only, not implemented
		default:
			return fmt.Errorf("protocol: invalid go argument %q", args[i])
		}
	}

	u.ctrl.Search(params)
	return nil
}

func millis(s string) time.Duration {
	n, _ := strconv.Atoi(s)
	return time.Duration(n) * time.Millisecond
}

func (u *UCI) handlePerft(depth int) {
	counts, total := u.ctrl.Perft(depth)
	for _, c := range counts {
		fmt.Fprintf(u.out, "%s: %d\n", c.Move.UCI(), c.Nodes)
	}
	fmt.Fprintf(u.out, "Nodes: %d\n", total)
}

// handleEval prints the static NNUE evaluation of the current position
// in centipawns, side-relative then White-relative, mirroring
// original_source/src/game/evaluate.rs's debug dump (SUPPLEMENTED
// FEATURES).
func (u *UCI) handleEval() {
	pos := u.ctrl.Position()
	net := u.ctrl.Network()
	us := pos.SideToMove
	sideRelative := nnue.Evaluate(net, pos.Accumulator(us), pos.Accumulator(us.Opposite()))
	whiteRelative := sideRelative * us.Multiplier()
	fmt.Fprintf(u.out, "info string eval side %d white %d\n", sideRelative, whiteRelative)
}

func (u *UCI) handleJoke() {
	fmt.Fprintf(u.out, "info string %s\n", jokes[u.jokeIndex])
	u.jokeIndex = (u.jokeIndex + 1) % len(jokes)
}

// printBestMove is the controller's OnBestMove callback.
func (u *UCI) printBestMove(best, ponder board.Move) {
	if ponder == board.NullMove {
		fmt.Fprintf(u.out, "bestmove %s\n", best.UCI())
	} else {
		fmt.Fprintf(u.out, "bestmove %s ponder %s\n", best.UCI(), ponder.UCI())
	}
}

// printInfo is the controller's OnInfo callback, formatted per spec.md
// §6: "info depth <d> score (cp <c>|mate <n>) nodes <n> nps <n> time
// <ms> hashfull <permille> [tbhits <%>] [pv <m1> <m2> …]".
func (u *UCI) printInfo(info search.Info) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d", info.Depth)
	if info.Mate {
		fmt.Fprintf(&sb, " score mate %d", info.MateIn)
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}
	fmt.Fprintf(&sb, " nodes %d nps %d time %d hashfull %d tbhits %d",
		info.Nodes, info.NPS, info.TimeMs, info.HashFull, info.TTHitPct)
	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.UCI())
		}
	}
	fmt.Fprintln(u.out, sb.String())
}
