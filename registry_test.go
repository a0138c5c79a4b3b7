package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeUniqueAndClean(t *testing.T) {
	reg := NewRegistry(0)
	defer reg.Close()

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		code := reg.NewCode()

		require.Len(t, code, gameCodeLength)
		for _, ch := range code {
			require.True(t, strings.ContainsRune(gameCodeAlphabet, ch),
				"code %q contains excluded character %q", code, ch)
		}

		require.False(t, seen[code], "duplicate code %q after %d draws", code, i)
		seen[code] = true
	}
}

func TestCodeAlphabetExcludesConfusables(t *testing.T) {
	for _, ch := range "01IOl" {
		assert.False(t, strings.ContainsRune(gameCodeAlphabet, ch))
	}
}

func TestRegistryLifecycle(t *testing.T) {
	cfg := testConfig()
	bank := testBank(t)
	reg := NewRegistry(0)
	defer reg.Close()

	s := newSessionWithClock(cfg, "ab3def", bank, reg, clockwork.NewFakeClock())
	require.NoError(t, reg.Create(s))

	assert.True(t, reg.Exists("AB3DEF"))
	assert.True(t, reg.Exists("ab3def"), "lookup is case-normalized")

	got, ok := reg.Lookup(" ab3def ")
	require.True(t, ok)
	assert.Same(t, s, got)

	assert.Error(t, reg.Create(s), "duplicate code rejected")

	reg.Remove("AB3DEF")
	assert.False(t, reg.Exists("AB3DEF"))
	_, ok = reg.Lookup("AB3DEF")
	assert.False(t, ok)
}

func TestReaperEvictsIdleSessions(t *testing.T) {
	cfg := testConfig()
	bank := testBank(t)
	reg := NewRegistry(20 * time.Millisecond)
	defer reg.Close()

	s := newSession(cfg, "AB3DEF", bank, reg)
	s.active.Store(time.Now().Add(-time.Minute).UnixNano())
	require.NoError(t, reg.Create(s))
	go s.run()

	require.Eventually(t, func() bool {
		return !reg.Exists("AB3DEF")
	}, time.Second, 5*time.Millisecond)

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("reaped session did not shut down")
	}
}
