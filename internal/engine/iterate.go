package engine

import "github.com/mkenney/chesscore/internal/board"

// Info is one iterative-deepening progress report, emitted once per
// completed depth.
type Info struct {
	Depth int
	Score Score
	Nodes uint64
	Time  int64 // milliseconds since the search began
	PV    []board.Move
}

// InfoFunc receives one Info per completed depth. It may be nil.
type InfoFunc func(Info)

// Result is what a completed (or stopped) search hands back to its
// caller.
type Result struct {
	BestMove board.Move
	Score    Score
	Depth    int
	Nodes    uint64
}

// IterativeDeepen runs absearch at depth 1, 2, 3, ... up to limits.Depth,
// feeding each completed iteration's best move back in as the next
// iteration's TT move via the shared transposition table. A depth that
// is interrupted by checkTime is discarded: only the previous depth's
// result is reported.
func (s *Searcher) IterativeDeepen(limits Limits, onInfo InfoFunc) Result {
	s.limits = limits.normalize()
	s.Reset()

	var result Result
	haveBestMove := false

	for depth := 1; depth <= s.limits.Depth; depth++ {
		score := s.absearch(-Infinite, Infinite, depth, 0)

		// An interrupted depth is discarded entirely: the previous
		// depth's recorded best move stands.
		if s.checkTime(true) {
			break
		}

		pv := s.PV()
		if len(pv) > 0 {
			result.BestMove = pv[0]
			haveBestMove = true
		}
		result.Score = score
		result.Depth = depth
		result.Nodes = s.nodes

		if onInfo != nil {
			onInfo(Info{
				Depth: depth,
				Score: score,
				Nodes: s.nodes,
				Time:  s.elapsed(),
				PV:    pv,
			})
		}
	}

	// No depth ever completed: fall back to whatever PV the last
	// (incomplete) iteration left behind, even if empty.
	if !haveBestMove {
		if pv := s.PV(); len(pv) > 0 {
			result.BestMove = pv[0]
		}
	}

	return result
}

func (s *Searcher) elapsed() int64 {
	if s.nowMillis == nil {
		return 0
	}
	return s.nowMillis() - s.startTime
}
