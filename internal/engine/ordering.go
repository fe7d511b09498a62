package engine

import (
	"github.com/mkenney/chesscore/internal/board"
)

// Move ordering priorities, per spec: TT move first, then captures
// scored by MVV-LVA, then quiet moves scored by history.
const (
	TTMoveScore   = 1_000_000
	CaptureBase   = 32_000
)

// mvvLva[victim][attacker] = 100*victim + (6-attacker+1), a 7x7 table
// indexed by board.PieceType (victim row dominates; attacker column
// tiebreaks toward capturing with the least valuable piece).
var mvvLva [7][7]int

func init() {
	for v := 0; v < 7; v++ {
		for a := 0; a < 7; a++ {
			mvvLva[v][a] = 100*v + (6 - a + 1)
		}
	}
}

// History is the history heuristic table, indexed by
// [sideToMove][from][to].
type History struct {
	table [2][64][64]int
}

// Clear resets the history table for a new game.
func (h *History) Clear() {
	h.table = [2][64][64]int{}
}

// Update applies the gravity formula on a beta cutoff by a quiet move.
func (h *History) Update(stm board.Color, from, to board.Square, depth int) {
	bonus := depth * depth
	cur := h.table[stm][from][to]
	hhBonus := bonus - cur*abs(bonus)/16384
	h.table[stm][from][to] = cur + hhBonus
}

func (h *History) get(stm board.Color, from, to board.Square) int {
	return h.table[stm][from][to]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// scoreMove assigns the ordering key for move m given the TT move t and
// the side to move's history table.
func scoreMove(pos *board.Position, m, t board.Move, hist *History) int {
	if m == t {
		return TTMoveScore
	}

	if m.IsCapture(pos) {
		attacker := pos.PieceAt(m.From()).Type()
		var victim board.PieceType
		if m.IsEnPassant() {
			victim = board.Pawn
		} else {
			victim = pos.PieceAt(m.To()).Type()
			if victim == board.NoPieceType {
				victim = board.Pawn
			}
		}
		return CaptureBase + mvvLva[victim][attacker]
	}

	return hist.get(pos.SideToMove, m.From(), m.To())
}

// scoreCapture assigns the MVV-LVA-only key used by quiescence search.
func scoreCapture(pos *board.Position, m board.Move) int {
	attacker := pos.PieceAt(m.From()).Type()
	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else {
		victim = pos.PieceAt(m.To()).Type()
		if victim == board.NoPieceType {
			victim = board.Pawn
		}
	}
	return mvvLva[victim][attacker]
}

// sortMoves sorts moves by scores descending. A selection sort is
// sufficient: legal move counts rarely exceed a few dozen.
func sortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}
