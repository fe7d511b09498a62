// Command chesscore-uci runs the engine behind a UCI protocol loop on
// stdin/stdout.
package main

import (
	"log"

	"github.com/mkenney/chesscore/internal/engine"
	"github.com/mkenney/chesscore/internal/storage"
	"github.com/mkenney/chesscore/internal/uci"
)

func main() {
	sessions, err := storage.OpenLedger()
	if err != nil {
		log.Printf("session ledger unavailable, continuing without it: %v", err)
		sessions = nil
	} else {
		defer sessions.Close()
	}

	eng := engine.NewEngine(sessions)

	protocol := uci.New(eng)
	protocol.Run()
}
