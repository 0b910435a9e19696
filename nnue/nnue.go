// Package nnue implements the side-relative quantised evaluation network:
// a (768 -> H) x2 -> 1 network with incrementally maintained per-side
// accumulators. See the package-level constants for the exact
// quantisation scheme.
package nnue

import (
	"encoding/binary"
	_ "embed"
	"fmt"
	"sync"

	"github.com/corvidchess/corvid/board"
	"golang.org/x/sync/singleflight"
)

// H is the accumulator width (hidden layer size per perspective).
const H = 128

// Quantisation constants. QA scales feature weights/accumulators, QB
// scales output weights, S is the final centipawn scale.
const (
	QA = 255
	QB = 64
	S  = 400
)

// numFeatures is the 768-wide input: 2 colours (own/enemy relative to the
// perspective) x 6 figures x 64 squares.
const numFeatures = 2 * 6 * 64

//go:embed default.nnue
var defaultNetworkBytes []byte

// FileSize is the exact expected size of a network file, derived from the
// in-memory layout: feature weights, feature bias, output weights, output
// bias, each a little-endian int16.
const FileSize = numFeatures*H*2 + H*2 + 2*H*2 + 2

// Network holds the quantised weights. It is process-wide and immutable
// once loaded.
type Network struct {
	featureWeights [numFeatures][H]int16
	featureBias    [H]int16
	outputWeights  [2 * H]int16
	outputBias     int16
}

var (
	active     *Network
	defaultNet *Network
	loadOnce   sync.Once
	loadGroup  singleflight.Group
	hasLoaded  bool
)

// Default returns the embedded default network, parsing it exactly once.
func Default() *Network {
	loadOnce.Do(func() {
		n, err := parse(defaultNetworkBytes)
		if err != nil {
			// The embedded network is baked in at build time; a parse
			// failure here means the binary itself is broken.
			panic(fmt.Sprintf("nnue: embedded default network is corrupt: %v", err))
		}
		defaultNet = n
		active = n
	})
	return defaultNet
}

// Load reads a network from a file's contents, replacing the process-wide
// active network. Per spec.md this may happen at most once per process: a
// second call is a fatal error, and a file-size mismatch is fatal.
// Concurrent callers (e.g. a setoption racing controller startup) collapse
// onto a single parse via singleflight.
func Load(data []byte) (*Network, error) {
	v, err, _ := loadGroup.Do("load", func() (interface{}, error) {
		if hasLoaded {
			return nil, fmt.Errorf("nnue: network already loaded once this process, refusing a second load")
		}
		n, err := parse(data)
		if err != nil {
			return nil, err
		}
		hasLoaded = true
		active = n
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Network), nil
}

func parse(data []byte) (*Network, error) {
	if len(data) != FileSize {
		return nil, fmt.Errorf("nnue: expected %d bytes, got %d", FileSize, len(data))
	}
	n := &Network{}
	off := 0
	for f := 0; f < numFeatures; f++ {
		for h := 0; h < H; h++ {
			n.featureWeights[f][h] = int16(binary.LittleEndian.Uint16(data[off:]))
			off += 2
		}
	}
	for h := 0; h < H; h++ {
		n.featureBias[h] = int16(binary.LittleEndian.Uint16(data[off:]))
		off += 2
	}
	for i := 0; i < 2*H; i++ {
		n.outputWeights[i] = int16(binary.LittleEndian.Uint16(data[off:]))
		off += 2
	}
	n.outputBias = int16(binary.LittleEndian.Uint16(data[off:]))
	return n, nil
}

// FeatureIndex computes the 0..767 feature slot for a piece sitting on sq,
// as seen from perspective. Own pieces (relative to perspective) occupy
// the first 384 features, enemy pieces the second 384; squares are
// mirrored vertically for the Black perspective so both sides share a
// White-relative orientation.
func FeatureIndex(perspective board.Color, pi board.Piece, sq board.Square) int {
	relSq := sq
	if perspective == board.Black {
		relSq = sq.Mirror()
	}
	relColor := 0
	if pi.Color() != perspective {
		relColor = 1
	}
	fig := int(pi.Figure()) - int(board.Pawn) // 0..5
	return relColor*6*64 + fig*64 + int(relSq)
}

// Accumulator is one perspective's incrementally maintained hidden layer.
type Accumulator struct {
	values [H]int16
}

// Init resets the accumulator to the network's bias.
func (a *Accumulator) Init(n *Network) {
	a.values = n.featureBias
}

// Add applies add_feature for a piece appearing on sq, from perspective.
func (a *Accumulator) Add(n *Network, perspective board.Color, pi board.Piece, sq board.Square) {
	idx := FeatureIndex(perspective, pi, sq)
	w := &n.featureWeights[idx]
	for i := 0; i < H; i++ {
		a.values[i] += w[i]
	}
}

// Remove applies remove_feature for a piece disappearing from sq.
func (a *Accumulator) Remove(n *Network, perspective board.Color, pi board.Piece, sq board.Square) {
	idx := FeatureIndex(perspective, pi, sq)
	w := &n.featureWeights[idx]
	for i := 0; i < H; i++ {
		a.values[i] -= w[i]
	}
}

func screlu(x int16) int32 {
	c := int32(x)
	if c < 0 {
		c = 0
	}
	if c > QA {
		c = QA
	}
	return c * c
}

// Evaluate returns the side-to-move-relative centipawn score given the
// accumulators for the side to move (us) and the waiting side (them).
func Evaluate(n *Network, us, them *Accumulator) int32 {
	var acc int64
	for i := 0; i < H; i++ {
		acc += int64(screlu(us.values[i])) * int64(n.outputWeights[i])
	}
	for i := 0; i < H; i++ {
		acc += int64(screlu(them.values[i])) * int64(n.outputWeights[H+i])
	}
	acc /= QA
	acc += int64(n.outputBias)
	acc *= S
	acc /= QA * QB
	return int32(acc)
}
