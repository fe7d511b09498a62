package engine

// isRepetition walks hashHistory backward in steps of two (so only
// positions with the same side to move are compared), stopping early
// once the index falls below the point an irreversible move (tracked by
// halfmoveClock) would have cleared earlier history. It returns true
// once draw occurrences of key have been seen.
func isRepetition(hashHistory []uint64, halfmoveClock int, key uint64, draw int) bool {
	count := 0
	size := len(hashHistory)

	for i := size - 1; i >= 0; i -= 2 {
		if i < size-halfmoveClock {
			break
		}
		if hashHistory[i] == key {
			count++
			if count == draw {
				return true
			}
		}
	}

	return false
}
