/*
Copyright © 2026 tahmid53
*/

package main

import (
	"errors"
)

// Protocol-level failures. All of these are recovered locally: they become
// rejected acks (or a refused handshake for errRoomNotFound) and never
// terminate a session.
var (
	errAlreadyBuzzed   = errors.New("a buzz has already been accepted this round")
	errAlreadyRevealed = errors.New("answer already revealed")
	errInvalidState    = errors.New("operation not allowed in current game state")
	errInvalidTeam     = errors.New("unknown team")
	errNotFound        = errors.New("not found")
	errRoomNotFound    = errors.New("game not found")
	errUnauthorized    = errors.New("host-only command")
)
