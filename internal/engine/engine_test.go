package engine

import (
	"testing"

	"github.com/mkenney/chesscore/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestFoolsMate(t *testing.T) {
	pos := mustFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	eng := NewEngine(nil)

	result := eng.Search(pos, Limits{Depth: 2})

	if result.Score > -MateInPly {
		t.Errorf("expected a mated score, got %d", result.Score)
	}
	if result.BestMove != board.NoMove {
		t.Errorf("expected no legal move from a checkmated position, got %s", result.BestMove.String())
	}
}

func TestMateInTwo(t *testing.T) {
	pos := mustFEN(t, "r2qkb1r/pp2nppp/3p4/2pNN1B1/2BnP3/3P4/PPP2PPP/R2bK2R w KQkq - 1 0")
	eng := NewEngine(nil)

	result := eng.Search(pos, Limits{Depth: 5})

	if result.Score < MateInPly {
		t.Fatalf("expected a mate score at depth 5, got %d", result.Score)
	}
	if result.BestMove.String() != "d5f6" {
		t.Errorf("expected bestmove d5f6, got %s", result.BestMove.String())
	}
}

func TestStalemateFromRoot(t *testing.T) {
	pos := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	eng := NewEngine(nil)

	result := eng.Search(pos, Limits{Depth: 1})

	if result.Score != 0 {
		t.Errorf("expected cp 0 at stalemate, got %d", result.Score)
	}
	if result.BestMove != board.NoMove {
		t.Errorf("expected no legal move at stalemate, got %s", result.BestMove.String())
	}
}

func TestStartPositionDepth4(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(nil)

	var depths []int
	var nodeCounts []uint64
	eng.OnInfo = func(info Info) {
		depths = append(depths, info.Depth)
		nodeCounts = append(nodeCounts, info.Nodes)
	}

	result := eng.Search(pos, Limits{Depth: 4})

	if len(depths) != 4 {
		t.Fatalf("expected 4 info lines, got %d", len(depths))
	}
	for i, d := range depths {
		if d != i+1 {
			t.Errorf("info line %d: expected depth %d, got %d", i, i+1, d)
		}
	}
	for i := 1; i < len(nodeCounts); i++ {
		if nodeCounts[i] <= nodeCounts[i-1] {
			t.Errorf("expected strictly increasing nodes, got %v", nodeCounts)
		}
	}

	switch result.BestMove.String() {
	case "e2e4", "d2d4", "g1f3", "c2c4":
	default:
		t.Errorf("unexpected opening move %s", result.BestMove.String())
	}
}

func TestFiftyMoveRule(t *testing.T) {
	pos := mustFEN(t, "8/8/4k3/8/8/4K3/4P3/8 w - - 100 60")
	eng := NewEngine(nil)

	result := eng.Search(pos, Limits{Depth: 3})

	if result.Score != 0 {
		t.Errorf("expected cp 0 with halfmove clock at 100, got %d", result.Score)
	}
}

func TestRepetitionDrawBias(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(nil)

	// Knight shuffle: Nf3 Nf6 Ng1 Ng8 Nf3 Nf6 Ng1 Ng8 reaches the start
	// position's hash a third time; preload the hash history with the
	// first two occurrences so the search sees the position about to
	// repeat a third time as already a two-fold repeat along the path.
	history := []uint64{pos.Hash}
	moves := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	for _, mv := range moves {
		m, err := board.ParseMove(mv, pos)
		if err != nil {
			t.Fatalf("ParseMove(%s): %v", mv, err)
		}
		pos.MakeMove(m)
		history = append(history, pos.Hash)
	}

	eng.SetPositionHistory(history)
	result := eng.Search(pos, Limits{Depth: 6})

	if result.Score > 5 || result.Score < -5 {
		t.Errorf("expected a score near the repetition draw bias, got %d", result.Score)
	}
}

func TestMateRoundTrip(t *testing.T) {
	cases := []struct {
		score Score
		ply   int
	}{
		{Mate - 3, 2}, {-(Mate - 3), 5}, {100, 10}, {-50, 1},
	}
	for _, c := range cases {
		got := scoreFromTT(scoreToTT(c.score, c.ply), c.ply)
		if got != c.score {
			t.Errorf("round trip failed for score=%d ply=%d: got %d", c.score, c.ply, got)
		}
	}
}

func TestHistoryGravityBounded(t *testing.T) {
	h := &History{}
	for i := 0; i < 1000; i++ {
		h.Update(board.White, board.E2, board.E4, 10)
	}
	v := h.get(board.White, board.E2, board.E4)
	if v > 16384+1000 || v < -16384-1000 {
		t.Errorf("history value escaped expected bounds: %d", v)
	}
}

func TestNegamaxEvaluatorSymmetry(t *testing.T) {
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	white := Evaluate(pos)

	flipped := mustFEN(t, "rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3")
	black := Evaluate(flipped)

	if white != black {
		t.Errorf("expected mirrored positions to evaluate identically from side to move, got %d vs %d", white, black)
	}
}

func TestTTNonRegression(t *testing.T) {
	tt := NewTranspositionTable()

	key := uint64(0xABCDEF0123456789)
	tt.Store(key, 8, BoundExact, 42, board.NewMove(board.E2, board.E4), 3)

	entry := tt.Probe(key)
	if entry.Key != key {
		t.Fatal("expected a TT hit immediately after store")
	}
	if got := scoreFromTT(entry.Score, 3); got != 42 {
		t.Errorf("expected stored score 42, got %d", got)
	}
	if entry.Depth != 8 {
		t.Errorf("expected depth 8, got %d", entry.Depth)
	}
	if entry.Bound != BoundExact {
		t.Errorf("expected BoundExact, got %v", entry.Bound)
	}
	if entry.Move != board.NewMove(board.E2, board.E4) {
		t.Errorf("expected stored move e2e4, got %s", entry.Move.String())
	}
}

func TestMakeUnmakeBalance(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(nil)

	before := pos.Copy()
	eng.Search(pos, Limits{Depth: 3})

	if pos.Hash != before.Hash {
		t.Errorf("expected position hash unchanged after search, got %016x want %016x", pos.Hash, before.Hash)
	}
	if pos.SideToMove != before.SideToMove {
		t.Errorf("expected side to move unchanged after search")
	}
}
