package engine

import (
	"github.com/mkenney/chesscore/internal/board"
)

// Bound describes what a stored score says relative to the window it
// was produced with.
type Bound uint8

const (
	BoundNone Bound = iota
	BoundUpper
	BoundLower
	BoundExact
)

// TTSize is deliberately not a power of two: it is chosen to be coprime
// with common hash lower-bit patterns (spec.md design notes).
const TTSize = (1 << 19) - 1

// TTEntry is one slot of the transposition table. An empty entry has
// Key 0, Bound BoundNone, Score NoScore, Move the null move.
type TTEntry struct {
	Key   uint64
	Depth int
	Bound Bound
	Score Score
	Move  board.Move
}

// TranspositionTable is a fixed-size, direct-mapped cache keyed by
// position hash: one slot per key%TTSize, never a hashmap.
type TranspositionTable struct {
	entries []TTEntry
}

// NewTranspositionTable allocates a table with TTSize slots.
func NewTranspositionTable() *TranspositionTable {
	tt := &TranspositionTable{entries: make([]TTEntry, TTSize)}
	tt.Clear()
	return tt
}

// Probe returns the slot at key%TTSize unchanged; the caller recognizes
// a hit by comparing entry.Key == key.
func (tt *TranspositionTable) Probe(key uint64) TTEntry {
	return tt.entries[key%TTSize]
}

// Store saves a search result, applying two independent replacement
// decisions against the slot currently at key%TTSize.
func (tt *TranspositionTable) Store(key uint64, depth int, bound Bound, score Score, move board.Move, ply int) {
	e := &tt.entries[key%TTSize]

	// Move replacement: always refresh when identity changes or a
	// different move was found; never overwrite with a null move when
	// the position is the same one already stored.
	if e.Key != key || move != board.NoMove {
		e.Move = move
	}

	// Payload replacement: always replace on collision or an exact
	// bound, otherwise depth-preferred with a 4-ply hysteresis.
	if e.Key != key || bound == BoundExact || depth+4 > e.Depth {
		e.Depth = depth
		e.Score = scoreToTT(score, ply)
		e.Key = key
		e.Bound = bound
	}
}

// Clear empties every slot. Called on ucinewgame, never on a per-move
// Reset (the TT is meant to survive across searches within one game).
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{Score: NoScore}
	}
}

// scoreToTT re-anchors a mate-distance score to be relative to the node
// it is stored at, rather than to the root.
func scoreToTT(s Score, ply int) Score {
	switch {
	case s >= TBWinInMaxPly:
		return s + ply
	case s <= TBLossInMaxPly:
		return s - ply
	default:
		return s
	}
}

// scoreFromTT is the inverse of scoreToTT, re-anchoring a stored score
// to the ply it is being read at.
func scoreFromTT(s Score, ply int) Score {
	switch {
	case s >= TBWinInMaxPly:
		return s - ply
	case s <= TBLossInMaxPly:
		return s + ply
	default:
		return s
	}
}
