// Command corvid is a UCI chess engine: it reads commands from stdin and
// writes the UCI protocol stream to stdout, keeping stderr free for
// diagnostics so the two never interleave.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/corvidchess/corvid/config"
	"github.com/corvidchess/corvid/controller"
	"github.com/corvidchess/corvid/nnue"
	"github.com/corvidchess/corvid/protocol"
)

var (
	buildVersion = "(devel)"

	configPath = flag.String("config", "corvid.toml", "path to an optional TOML config file")
	version    = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("corvid %s, built with %s\n", buildVersion, runtime.Version())
		return
	}

	logger := newLogger()
	defer logger.Sync()

	opts, err := config.Load(*configPath, controller.DefaultOptions())
	if err != nil {
		logger.Warnw("malformed config, using defaults", "path", *configPath, "error", err)
		opts = controller.DefaultOptions()
	}

	net := nnue.Default()
	if opts.NNUEPath != "" {
		data, err := os.ReadFile(opts.NNUEPath)
		if err != nil {
			logger.Fatalw("NNUE file missing", "path", opts.NNUEPath, "error", err)
		}
		loaded, err := nnue.Load(data)
		if err != nil {
			logger.Fatalw("NNUE file rejected", "path", opts.NNUEPath, "error", err)
		}
		net = loaded
	}

	ctrl := controller.New(logger, net, opts)
	uci := protocol.New(ctrl, os.Stdout, logger)

	if err := uci.Run(os.Stdin); err != nil {
		logger.Errorw("stdin read failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds a zap logger writing structured, human-readable lines
// to stderr, leaving stdout reserved for the UCI stream.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), zap.InfoLevel)
	return zap.New(core).Sugar()
}
