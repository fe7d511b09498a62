package engine

import (
	"sync/atomic"

	"github.com/mkenney/chesscore/internal/board"
)

// nullMoveReduction is the fixed depth reduction applied after a null
// move; the core does no verification search at reduced depth.
const nullMoveReduction = 2

// deltaMargin is added to a capture's value before comparing against
// alpha in quiescence delta pruning.
const deltaMargin = 400

// repetitionBias is returned in place of 0 when a two-fold repetition
// is detected along the current search path: a small negative nudge
// away from repeating in positions that are otherwise winning.
const repetitionBias = -5

// pvTable stores one principal variation per ply, triangular-packed:
// pv.moves[ply] holds the line starting at ply, length pv.length[ply].
type pvTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *pvTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

// Searcher owns all per-search mutable state: the position being
// searched, a shared transposition table, a shared history table, and
// the scratch space (undo stack, PV table, hash history) needed by one
// run of absearch/qsearch. A Searcher is not safe for concurrent use.
type Searcher struct {
	pos     *board.Position
	tt      *TranspositionTable
	history *History

	nodes    uint64
	stopFlag atomic.Bool

	pv pvTable

	undoStack [MaxPly]board.UndoInfo

	// hashHistory is every position hash seen so far in the game plus
	// the moves played within this search, oldest first; isRepetition
	// walks it backward from the current length.
	hashHistory []uint64

	limits     Limits
	startTime  int64 // unix millis
	nowMillis  func() int64
	checkCount int
}

// NewSearcher builds a Searcher sharing tt and history with the owning
// Engine; nowFn supplies the wall clock (injected so tests can control
// time without sleeping).
func NewSearcher(tt *TranspositionTable, history *History, nowFn func() int64) *Searcher {
	return &Searcher{
		tt:        tt,
		history:   history,
		nowMillis: nowFn,
	}
}

// Stop signals the running search to unwind as soon as it next checks.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// Reset clears per-move search state: PV, node count, stop flag and
// clock throttle. It does not touch the transposition table or history
// table, which persist across moves within a game (spec.md 4.9).
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.checkCount = 0
	s.pv = pvTable{}
}

// Nodes returns the number of nodes visited by the most recent search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// PV returns the principal variation found by the most recent search,
// from the root.
func (s *Searcher) PV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	copy(pv, s.pv.moves[0][:s.pv.length[0]])
	return pv
}

// SetPosition points the searcher at pos (not copied: callers own the
// lifetime) and at the hash history leading up to it.
func (s *Searcher) SetPosition(pos *board.Position, hashHistory []uint64) {
	s.pos = pos
	s.hashHistory = hashHistory
}

// checkTime reports whether the search must stop now: the stop flag is
// set, the node budget is exhausted, or the time budget is exhausted.
// Clock reads are throttled to once every CheckRate calls except when
// iter is true (always checked, called once per completed
// iterative-deepening depth).
func (s *Searcher) checkTime(iter bool) bool {
	if s.stopFlag.Load() {
		return true
	}
	if s.limits.Nodes > 0 && s.nodes >= s.limits.Nodes {
		return true
	}

	s.checkCount++
	if !iter && s.checkCount%CheckRate != 0 {
		return false
	}
	if s.limits.Time <= 0 || s.nowMillis == nil {
		return false
	}
	if s.nowMillis()-s.startTime >= int64(s.limits.Time) {
		return true
	}
	return false
}

// absearch is negamax alpha-beta with a transposition table, null-move
// pruning, and TT/MVV-LVA/history move ordering. alpha and beta are
// always from the perspective of the side to move at ply.
func (s *Searcher) absearch(alpha, beta Score, depth, ply int) Score {
	if s.checkTime(false) {
		return 0
	}
	if ply >= MaxPly {
		return Evaluate(s.pos)
	}

	s.pv.length[ply] = ply
	rootNode := ply == 0
	hashKey := s.pos.Hash

	if !rootNode {
		if isRepetition(s.hashHistory, s.pos.HalfMoveClock, hashKey, 1) {
			return repetitionBias
		}
		if s.pos.HalfMoveClock >= 100 {
			return 0
		}
		alpha = max(alpha, MatedIn(ply))
		beta = min(beta, MateIn(ply+1))
		if alpha >= beta {
			return alpha
		}
	}

	if depth <= 0 {
		return s.qsearch(alpha, beta, ply)
	}

	var ttMove board.Move
	entry := s.tt.Probe(hashKey)
	ttHit := entry.Key == hashKey
	if ttHit {
		ttMove = entry.Move
	}
	if !rootNode && ttHit && entry.Depth >= depth {
		ttScore := scoreFromTT(entry.Score, ply)
		switch entry.Bound {
		case BoundLower:
			if ttScore > alpha {
				alpha = ttScore
			}
		case BoundUpper:
			if ttScore < beta {
				beta = ttScore
			}
		}
		if alpha >= beta {
			return ttScore
		}
	}

	inCheck := s.pos.InCheck()

	if depth >= 3 && !inCheck {
		undo := s.pos.MakeNullMove()
		s.hashHistory = append(s.hashHistory, hashKey)
		score := -s.absearch(-beta, -beta+1, depth-nullMoveReduction, ply+1)
		s.hashHistory = s.hashHistory[:len(s.hashHistory)-1]
		s.pos.UnmakeNullMove(undo)

		if score >= beta {
			if score >= TBWinInMaxPly {
				score = beta
			}
			return score
		}
	}

	oldAlpha := alpha
	bestScore := -Infinite
	bestMove := board.NoMove
	madeMoves := 0

	moves := s.pos.GenerateLegalMoves()
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = scoreMove(s.pos, moves.Get(i), ttMove, s.history)
	}
	sortMoves(moves, scores)

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)

		madeMoves++
		s.nodes++

		s.undoStack[ply] = s.pos.MakeMove(move)
		s.hashHistory = append(s.hashHistory, hashKey)

		score := -s.absearch(-beta, -alpha, depth-1, ply+1)

		s.hashHistory = s.hashHistory[:len(s.hashHistory)-1]
		s.pos.UnmakeMove(move, s.undoStack[ply])

		if score > bestScore {
			bestScore = score
			bestMove = move
			s.pv.update(ply, move)

			if score > alpha {
				alpha = score

				if score >= beta {
					if move.IsQuiet(s.pos) {
						s.history.Update(s.pos.SideToMove, move.From(), move.To(), depth)
					}
					break
				}
			}
		}
	}

	if madeMoves == 0 {
		if inCheck {
			return MatedIn(ply)
		}
		return 0
	}

	var bound Bound
	switch {
	case bestScore >= beta:
		bound = BoundLower
	case alpha != oldAlpha:
		bound = BoundExact
	default:
		bound = BoundUpper
	}
	s.tt.Store(hashKey, depth, bound, bestScore, bestMove, ply)

	return bestScore
}

// qsearch extends the search along capture sequences only, to avoid
// misjudging positions where the last move searched leaves a piece en
// prise (the horizon effect). It never touches the transposition table,
// history table or principal variation.
func (s *Searcher) qsearch(alpha, beta Score, ply int) Score {
	if s.checkTime(false) {
		return 0
	}
	if ply >= MaxPly {
		return Evaluate(s.pos)
	}

	best := Evaluate(s.pos)
	if best >= beta {
		return best
	}
	if best > alpha {
		alpha = best
	}

	moves := s.pos.GenerateCaptures()
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = scoreCapture(s.pos, moves.Get(i))
	}
	sortMoves(moves, scores)

	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		s.nodes++

		if !move.IsPromotion() {
			var captured int
			if move.IsEnPassant() {
				captured = PawnValue
			} else {
				captured = pieceValues[s.pos.PieceAt(move.To()).Type()]
			}
			if captured+deltaMargin+best < alpha {
				continue
			}
		}

		undo := s.pos.MakeMove(move)
		score := -s.qsearch(-beta, -alpha, ply+1)
		s.pos.UnmakeMove(move, undo)

		if score > best {
			best = score
			if score > alpha {
				alpha = score
			}
			if score >= beta {
				break
			}
		}
	}

	return best
}

func max(a, b Score) Score {
	if a > b {
		return a
	}
	return b
}

func min(a, b Score) Score {
	if a < b {
		return a
	}
	return b
}
