package main

// buzzLock captures whether a buzz has been accepted this round, and by whom.
// Arbitration is a plain compare-and-set: the session loop executes one event
// at a time, so the first press to reach it wins and no further locking is
// needed.
type buzzLock struct {
	locked   bool
	winnerID string
}

// pressBuzzer resolves one press event. The client timestamp is accepted for
// the client's own latency display (the host relay carries it) but never
// consulted here: server arrival order alone decides.
func (g *gameState) pressBuzzer(playerID string, _ int64) (*Player, error) {
	if g.status != StatusPlaying {
		return nil, errInvalidState
	}
	p := g.player(playerID)
	if p == nil {
		return nil, errNotFound
	}
	if g.buzz.locked {
		return nil, errAlreadyBuzzed
	}
	g.buzz = buzzLock{locked: true, winnerID: playerID}
	g.touch()
	return p, nil
}

// clearBuzz reopens the buzzers. Called on round transitions and by the
// host's explicit clear command.
func (g *gameState) clearBuzz() {
	if g.buzz.locked {
		g.buzz = buzzLock{}
		g.touch()
	}
}
