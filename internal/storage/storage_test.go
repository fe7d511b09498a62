package storage

import (
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	dir, err := os.MkdirTemp("", "chesscore-ledger-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &Ledger{db: db}
}

func TestLedgerRecordAndLookup(t *testing.T) {
	l := newTestLedger(t)

	rec := SessionRecord{
		RootHash:  0x1234,
		Depth:     8,
		Score:     35,
		Bound:     BoundExact,
		Nodes:     12345,
		ElapsedMS: 250,
		BestMove:  "e2e4",
	}

	if err := l.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, ok, err := l.Lookup(rec.RootHash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a record to be found")
	}
	if got.BestMove != rec.BestMove || got.Depth != rec.Depth || got.Score != rec.Score {
		t.Errorf("Lookup mismatch: got %+v, want %+v", got, rec)
	}
}

func TestLedgerLookupMiss(t *testing.T) {
	l := newTestLedger(t)

	_, ok, err := l.Lookup(0xdeadbeef)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected no record for an unrecorded root hash")
	}
}

func TestLedgerOverwritesSameRoot(t *testing.T) {
	l := newTestLedger(t)

	root := uint64(42)
	if err := l.Record(SessionRecord{RootHash: root, Depth: 4, BestMove: "e2e4"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(SessionRecord{RootHash: root, Depth: 10, BestMove: "d2d4"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, ok, err := l.Lookup(root)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a record")
	}
	if got.Depth != 10 || got.BestMove != "d2d4" {
		t.Errorf("expected the later record to win, got %+v", got)
	}

	n, err := l.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 session after overwrite, got %d", n)
	}
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("data directory was not created: %s", dataDir)
	}
}
