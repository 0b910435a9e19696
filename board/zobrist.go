// zobrist.go holds the random constants used to incrementally hash a
// position, as described in Zobrist's 1970 hashing paper.
package board

import "math/rand"

var (
	ZobristPiece     [PieceArraySize][SquareArraySize]uint64
	ZobristEnpassant [9]uint64 // index 0 = no en-passant file, 1..8 = file a..h
	ZobristCastle    [CastleArraySize]uint64
	ZobristSideToMove uint64 // XORed in exactly when it is Black to move
)

func rand64(r *rand.Rand) uint64 {
	return uint64(r.Int63())<<32 ^ uint64(r.Int63())
}

func init() {
	r := rand.New(rand.NewSource(1))
	for pi := 0; pi < PieceArraySize; pi++ {
		for sq := SquareMinValue; sq <= SquareMaxValue; sq++ {
			ZobristPiece[pi][sq] = rand64(r)
		}
	}
	for i := range ZobristEnpassant {
		ZobristEnpassant[i] = rand64(r)
	}
	for c := Castle(0); int(c) < CastleArraySize; c++ {
		ZobristCastle[c] = rand64(r)
	}
	ZobristSideToMove = rand64(r)
}
