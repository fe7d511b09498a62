// Package storage persists search session records in a BadgerDB
// database, keyed by the root position's Zobrist hash.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const sessionPrefix = "session:"

// Bound mirrors engine.Bound without importing the engine package
// (storage is a leaf dependency of engine, not the reverse).
type Bound uint8

const (
	BoundNone Bound = iota
	BoundUpper
	BoundLower
	BoundExact
)

// SessionRecord is one completed search's result, recorded against the
// root position it was searched from.
type SessionRecord struct {
	RootHash  uint64    `json:"root_hash"`
	Depth     int       `json:"depth"`
	Score     int       `json:"score"`
	Bound     Bound     `json:"bound"`
	Nodes     uint64    `json:"nodes"`
	ElapsedMS int64     `json:"elapsed_ms"`
	BestMove  string    `json:"best_move"`
	Recorded  time.Time `json:"recorded"`
}

// Ledger wraps BadgerDB as a store of SessionRecords, one key per root
// hash. A later search from the same root overwrites the
// earlier record; the ledger is a cache of "what did we conclude here
// last time", not a full game history.
type Ledger struct {
	db *badger.DB
}

// OpenLedger opens (creating if necessary) the session ledger database
// in the platform-specific data directory.
func OpenLedger() (*Ledger, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func sessionKey(rootHash uint64) []byte {
	key := make([]byte, len(sessionPrefix)+8)
	copy(key, sessionPrefix)
	binary.BigEndian.PutUint64(key[len(sessionPrefix):], rootHash)
	return key
}

// Record saves (overwriting any prior entry for the same root hash) the
// result of a completed search.
func (l *Ledger) Record(rec SessionRecord) error {
	rec.Recorded = time.Now()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(rec.RootHash), data)
	})
}

// Lookup returns the most recently recorded session for rootHash, if
// any; ok is false when nothing has been recorded for that position.
func (l *Ledger) Lookup(rootHash uint64) (rec SessionRecord, ok bool, err error) {
	err = l.db.View(func(txn *badger.Txn) error {
		item, getErr := txn.Get(sessionKey(rootHash))
		if getErr == badger.ErrKeyNotFound {
			return nil
		}
		if getErr != nil {
			return getErr
		}

		ok = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, ok, err
}

// Count returns the number of sessions currently recorded.
func (l *Ledger) Count() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
