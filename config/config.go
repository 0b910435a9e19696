// Package config loads an optional corvid.toml file that seeds the
// initial values of the UCI-settable options before setoption can
// override them at runtime. Grounded on the TOML-based settings
// convention shared by Mgrdich-TermChess and frankkopp-FrankyGo
// (AMBIENT STACK), using github.com/BurntSushi/toml.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/corvidchess/corvid/controller"
)

// File is the corvid.toml schema. Every field is optional; an absent
// field leaves the corresponding controller.Options default untouched.
type File struct {
	HashMB          *int    `toml:"hash_mb"`
	MoveOverheadMs  *int    `toml:"move_overhead_ms"`
	Threads         *int    `toml:"threads"`
	PerftHash       *bool   `toml:"perft_hash"`
	NNUEPath        *string `toml:"nnue_path"`
}

// Load reads and parses path, applying any present fields on top of
// base. A missing file is not an error: base is returned unchanged,
// since corvid.toml is entirely optional. A malformed file is a
// non-fatal "malformed input" error per spec.md §7: the caller should
// log it and keep using base.
func Load(path string, base controller.Options) (controller.Options, error) {
	opts := base

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return base, err
	}

	if f.HashMB != nil {
		opts.HashMB = *f.HashMB
	}
	if f.MoveOverheadMs != nil {
		opts.MoveOverhead = time.Duration(*f.MoveOverheadMs) * time.Millisecond
	}
	if f.Threads != nil {
		opts.Threads = *f.Threads
	}
	if f.PerftHash != nil {
		opts.PerftHash = *f.PerftHash
	}
	if f.NNUEPath != nil {
		opts.NNUEPath = *f.NNUEPath
	}
	return opts, nil
}
