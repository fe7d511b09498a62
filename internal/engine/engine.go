package engine

import (
	"log"
	"time"

	"github.com/mkenney/chesscore/internal/board"
	"github.com/mkenney/chesscore/internal/storage"
)

// Engine is the single-threaded search facade: one board, one
// transposition table, one history table, one searcher. It has no
// notion of workers, an opening book, a tablebase or NNUE networks.
type Engine struct {
	tt      *TranspositionTable
	history *History
	search  *Searcher

	// rootHashes is the hash of every position seen so far in the game,
	// set by SetPositionHistory before each Search call.
	rootHashes []uint64

	sessions *storage.Ledger

	// OnInfo is called once per completed iterative-deepening depth.
	OnInfo InfoFunc
}

// NewEngine builds an Engine with a fresh transposition table and
// history table. sessions may be nil: session recording is best-effort
// and the engine works fine without a ledger.
func NewEngine(sessions *storage.Ledger) *Engine {
	tt := NewTranspositionTable()
	history := &History{}

	e := &Engine{
		tt:       tt,
		history:  history,
		sessions: sessions,
	}
	e.search = NewSearcher(tt, history, nowMillis)

	return e
}

// SetPositionHistory records the hash of every position played so far
// in the game, oldest first, so repetition detection can see beyond the
// current search tree.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootHashes = make([]uint64, len(hashes))
	copy(e.rootHashes, hashes)
}

// Search runs iterative deepening from pos under limits, calling
// e.OnInfo once per completed depth, and returns the result. pos is
// copied; the caller's position is never mutated.
func (e *Engine) Search(pos *board.Position, limits Limits) Result {
	working := pos.Copy()
	hashHistory := append(append([]uint64(nil), e.rootHashes...), working.Hash)

	e.search.SetPosition(working, hashHistory)
	e.search.startTime = nowMillis()

	start := time.Now()
	result := e.search.IterativeDeepen(limits, e.OnInfo)
	elapsed := time.Since(start)

	if e.sessions != nil {
		bound := BoundExact
		if result.BestMove == board.NoMove {
			bound = BoundNone
		}
		rec := storage.SessionRecord{
			RootHash:  pos.Hash,
			Depth:     result.Depth,
			Score:     result.Score,
			Bound:     storage.Bound(bound),
			Nodes:     result.Nodes,
			ElapsedMS: elapsed.Milliseconds(),
			BestMove:  result.BestMove.String(),
		}
		if err := e.sessions.Record(rec); err != nil {
			log.Printf("[Engine] failed to record session: %v", err)
		}
	}

	return result
}

// Stop signals the running search to unwind as soon as it next checks.
func (e *Engine) Stop() {
	e.search.Stop()
}

// Reset clears per-move search state but preserves the transposition
// table and history table across moves within the same game.
func (e *Engine) Reset() {
	e.search.Reset()
}

// NewGame clears the transposition table and history table; call this
// on "ucinewgame", not between moves of the same game.
func (e *Engine) NewGame() {
	e.tt.Clear()
	e.history.Clear()
	e.rootHashes = nil
}

// Evaluate returns the static evaluation of a position, from the side
// to move's perspective.
func (e *Engine) Evaluate(pos *board.Position) Score {
	return Evaluate(pos)
}

// Perft counts leaf nodes at depth below pos; a move-generation
// correctness check, not part of the search itself.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
