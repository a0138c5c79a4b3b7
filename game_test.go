package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuestions(n int) []Question {
	questions := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, Question{
			ID:   "q" + string(rune('1'+i)),
			Text: "Name something.",
			Answers: []QuestionAnswer{
				{Text: "First", Points: 40},
				{Text: "Second", Points: 30},
				{Text: "Third", Points: 20},
			},
		})
	}
	return questions
}

// readyGame returns a playable state: one team with one player, game started.
func readyGame(t *testing.T, rounds int) (*gameState, *Player, *Team) {
	t.Helper()

	g := newGameState("AB3DEF", testQuestions(rounds), 3)
	host := g.addPlayer("Host", true)
	p := g.addPlayer("Alice", false)
	team := g.createTeam("Team 1")
	_, err := g.joinTeam(p.ID, team.ID)
	require.NoError(t, err)
	require.NoError(t, g.startGame())
	_ = host

	return g, p, team
}

func TestStartGameRequiresPopulatedTeam(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)
	g.addPlayer("Host", true)

	err := g.startGame()
	assert.ErrorIs(t, err, errInvalidState)

	p := g.addPlayer("Alice", false)
	team := g.createTeam("Team 1")

	err = g.startGame()
	assert.ErrorIs(t, err, errInvalidState, "empty team is not enough")

	_, err = g.joinTeam(p.ID, team.ID)
	require.NoError(t, err)
	require.NoError(t, g.startGame())
	assert.Equal(t, StatusPlaying, g.status)

	assert.ErrorIs(t, g.startGame(), errInvalidState, "already started")
}

func TestAwardPointsAdditive(t *testing.T) {
	cases := []struct {
		name string
		p, q int
	}{
		{"small", 10, 20},
		{"zero first", 0, 35},
		{"zero second", 42, 0},
		{"both zero", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _, team := readyGame(t, 1)

			_, err := g.awardPoints(team.ID, tc.p)
			require.NoError(t, err)
			got, err := g.awardPoints(team.ID, tc.q)
			require.NoError(t, err)

			assert.Equal(t, tc.p+tc.q, got.Score)
		})
	}
}

func TestAwardPointsUnknownTeam(t *testing.T) {
	g, _, _ := readyGame(t, 1)

	_, err := g.awardPoints("nope", 10)
	assert.ErrorIs(t, err, errInvalidTeam)
}

func TestAwardPointsNeverNegative(t *testing.T) {
	g, _, team := readyGame(t, 1)

	_, err := g.awardPoints(team.ID, 10)
	require.NoError(t, err)
	got, err := g.awardPoints(team.ID, -50)
	require.NoError(t, err)

	assert.Equal(t, 0, got.Score)
}

func TestRevealAnswerIdempotent(t *testing.T) {
	g, _, _ := readyGame(t, 1)
	answerID := g.round().Answers[0].ID

	a, err := g.revealAnswer(answerID)
	require.NoError(t, err)
	assert.True(t, a.Revealed)

	rev := g.revision
	_, err = g.revealAnswer(answerID)
	assert.ErrorIs(t, err, errAlreadyRevealed)
	assert.Equal(t, rev, g.revision, "rejected reveal must not mutate state")
}

func TestRevealAnswerUnknown(t *testing.T) {
	g, _, _ := readyGame(t, 1)

	_, err := g.revealAnswer("bogus")
	assert.ErrorIs(t, err, errNotFound)
}

func TestRevealAnswerOnlyWhilePlaying(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)

	_, err := g.revealAnswer("q1-1")
	assert.ErrorIs(t, err, errInvalidState)
}

func TestAddStrikeSignalsLimit(t *testing.T) {
	g, _, _ := readyGame(t, 1)

	for i := 1; i <= 2; i++ {
		strikes, limit, err := g.addStrike()
		require.NoError(t, err)
		assert.Equal(t, i, strikes)
		assert.False(t, limit)
	}

	strikes, limit, err := g.addStrike()
	require.NoError(t, err)
	assert.Equal(t, 3, strikes)
	assert.True(t, limit)

	// The cap signals, it does not stop counting or force a transition.
	strikes, limit, err = g.addStrike()
	require.NoError(t, err)
	assert.Equal(t, 4, strikes)
	assert.True(t, limit)
	assert.Equal(t, StatusPlaying, g.status)
}

func TestJoinTeamMovesMembership(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)
	p := g.addPlayer("Alice", false)
	a := g.createTeam("Red")
	b := g.createTeam("Blue")

	_, err := g.joinTeam(p.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, a.PlayerIDs)

	_, err = g.joinTeam(p.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, a.PlayerIDs)
	assert.Equal(t, []string{p.ID}, b.PlayerIDs)
	assert.Equal(t, b.ID, p.TeamID)
}

func TestJoinTeamUnknown(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)
	p := g.addPlayer("Alice", false)

	_, err := g.joinTeam(p.ID, "nope")
	assert.ErrorIs(t, err, errInvalidTeam)
	_, err = g.joinTeam("ghost", "nope")
	assert.ErrorIs(t, err, errNotFound)
}

func TestSwitchControllingTeamNeedsTwo(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)
	g.createTeam("Red")

	_, err := g.switchControllingTeam()
	assert.ErrorIs(t, err, errInvalidState)

	blue := g.createTeam("Blue")

	got, err := g.switchControllingTeam()
	require.NoError(t, err)
	assert.Equal(t, blue.ID, got.ID)

	got, err = g.switchControllingTeam()
	require.NoError(t, err)
	assert.Equal(t, "Red", got.Name)
}

func TestRoundProgressionToGameEnd(t *testing.T) {
	g, _, _ := readyGame(t, 2)

	require.NoError(t, g.endRound())
	assert.Equal(t, StatusRoundEnd, g.status)

	ended, err := g.nextRound()
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Equal(t, StatusPlaying, g.status)
	assert.Equal(t, 1, g.currentRound)
	assert.Zero(t, g.strikes, "strikes reset at round start")

	require.NoError(t, g.endRound())
	ended, err = g.nextRound()
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, StatusGameEnd, g.status)

	_, err = g.nextRound()
	assert.ErrorIs(t, err, errInvalidState, "game_end is terminal")
}

func TestNextRoundClearsBuzzLock(t *testing.T) {
	g, p, _ := readyGame(t, 2)

	_, err := g.pressBuzzer(p.ID, 123)
	require.NoError(t, err)
	require.True(t, g.buzz.locked)

	require.NoError(t, g.endRound())
	_, err = g.nextRound()
	require.NoError(t, err)

	assert.False(t, g.buzz.locked)
}

func TestRemovePlayerKeepsRecord(t *testing.T) {
	g, p, team := readyGame(t, 1)

	removed := g.removePlayer(p.ID)
	require.NotNil(t, removed)
	assert.False(t, removed.IsActive)
	assert.Empty(t, removed.TeamID)
	assert.Empty(t, team.PlayerIDs)
	assert.NotNil(t, g.player(p.ID), "record retained for history")
}

func TestWinningTeam(t *testing.T) {
	g := newGameState("AB3DEF", testQuestions(1), 3)
	assert.Nil(t, g.winningTeam())

	red := g.createTeam("Red")
	blue := g.createTeam("Blue")
	red.Score = 120
	blue.Score = 260

	assert.Equal(t, blue.ID, g.winningTeam().ID)
}

func TestSnapshotComplete(t *testing.T) {
	g, p, team := readyGame(t, 2)

	snap := g.snapshot()
	assert.Equal(t, "AB3DEF", snap.Code)
	assert.Equal(t, StatusPlaying, snap.Status)
	assert.Equal(t, 2, snap.TotalRounds)
	assert.Len(t, snap.Players, 2)
	assert.Len(t, snap.Teams, 1)
	assert.Equal(t, team.ID, snap.ControllingTeamID)
	require.NotNil(t, snap.Round)
	assert.Len(t, snap.Round.Answers, 3)

	rev := snap.Revision
	_, err := g.awardPoints(team.ID, 10)
	require.NoError(t, err)
	assert.Greater(t, g.snapshot().Revision, rev)
	_ = p
}
