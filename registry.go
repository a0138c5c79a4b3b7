package main

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// gameCodeAlphabet excludes visually confusable characters (0/O, 1/I, etc.)
// so codes survive being read off a TV screen.
const (
	gameCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	gameCodeLength   = 6
)

// Registry owns the mapping of game codes to live sessions. It is an
// explicit instance injected into the web layer; a registry entry is the sole
// owner of a session's lifetime, and removal tears the whole room down.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	reserved map[string]time.Time

	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

const reservationTTL = time.Hour

func NewRegistry(idleTimeout time.Duration) *Registry {
	r := &Registry{
		sessions:    make(map[string]*Session),
		reserved:    make(map[string]time.Time),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go r.reaperLoop()
	}
	return r
}

// NewCode generates a crypto-random game code and ensures it doesn't collide
// with an active session or a recently issued code. Collisions are rare at
// party scale, so the retry loop terminates in O(1) expected attempts. Issued
// codes stay reserved until a host claims them or the reservation ages out.
func (r *Registry) NewCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for code, issued := range r.reserved {
		if now.Sub(issued) > reservationTTL {
			delete(r.reserved, code)
		}
	}

	for {
		buf := make([]byte, gameCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, gameCodeLength)
		for i := range out {
			out[i] = gameCodeAlphabet[int(buf[i])%len(gameCodeAlphabet)]
		}
		code := string(out)

		if _, taken := r.sessions[code]; taken {
			continue
		}
		if _, taken := r.reserved[code]; taken {
			continue
		}
		r.reserved[code] = now
		return code
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create registers a session under its code. Fails if the code is taken.
func (r *Registry) Create(s *Session) error {
	code := normalizeCode(s.code)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.sessions[code]; taken {
		return fmt.Errorf("game code %s already in use", code)
	}
	r.sessions[code] = s
	delete(r.reserved, code)

	log.Info().Str("code", code).Msg("session registered")
	return nil
}

func (r *Registry) Lookup(code string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[normalizeCode(code)]
	return s, ok
}

func (r *Registry) Exists(code string) bool {
	_, ok := r.Lookup(code)
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Remove evicts a session from the registry. The caller is responsible for
// shutting the session down; eviction alone just makes the code unreachable.
func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, normalizeCode(code))
}

// Close stops the reaper and shuts down every remaining session.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	remaining := make([]*Session, 0, len(r.sessions))
	for code, s := range r.sessions {
		remaining = append(remaining, s)
		delete(r.sessions, code)
	}
	r.mu.Unlock()

	for _, s := range remaining {
		s.shutdown()
	}
}

// reaperLoop periodically evicts sessions idle longer than idleTimeout.
func (r *Registry) reaperLoop() {
	ticker := time.NewTicker(r.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-r.idleTimeout)

		r.mu.Lock()
		var idle []*Session
		for code, s := range r.sessions {
			if s.lastActive().Before(cutoff) {
				delete(r.sessions, code)
				idle = append(idle, s)
			}
		}
		r.mu.Unlock()

		for _, s := range idle {
			log.Info().Str("code", s.code).Msg("reaping idle session")
			s.shutdown()
		}
	}
}
