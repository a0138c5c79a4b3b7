package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the session lifecycle: waiting -> playing -> round_end ->
// playing (next round) -> ... -> game_end.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusRoundEnd Status = "round_end"
	StatusGameEnd  Status = "game_end"
)

// Answer is one cell on the board.
type Answer struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Points   int    `json:"points"`
	Revealed bool   `json:"revealed"`
}

// Round pairs a question with its board state.
type Round struct {
	QuestionID string
	Question   string
	Category   string
	Answers    []Answer
	Strikes    int
}

// Player is a connected (or recently connected) participant.
type Player struct {
	ID       string
	Name     string
	TeamID   string
	IsHost   bool
	IsActive bool
	JoinedAt time.Time
}

// Team groups players and accumulates score. A player belongs to at most one
// team; joining another removes the previous membership.
type Team struct {
	ID        string
	Name      string
	Score     int
	PlayerIDs []string
}

// gameState is the authoritative per-session state. It performs no I/O and is
// only ever touched from the session's single-writer loop, so none of its
// methods take a lock.
type gameState struct {
	code         string
	status       Status
	hostPlayerID string
	teams        []*Team
	players      map[string]*Player
	playerOrder  []string
	rounds       []*Round
	currentRound int
	strikes      int
	strikeLimit  int
	controlling  int // index into teams, -1 while unset
	buzz         buzzLock
	titleText    string
	revision     uint64
}

func newGameState(code string, questions []Question, strikeLimit int) *gameState {
	g := &gameState{
		code:        code,
		status:      StatusWaiting,
		players:     make(map[string]*Player),
		controlling: -1,
		strikeLimit: strikeLimit,
	}

	for _, q := range questions {
		round := &Round{
			QuestionID: q.ID,
			Question:   q.Text,
			Category:   q.Category,
		}
		for i, a := range q.Answers {
			round.Answers = append(round.Answers, Answer{
				ID:     fmt.Sprintf("%s-%d", q.ID, i+1),
				Text:   a.Text,
				Points: a.Points,
			})
		}
		g.rounds = append(g.rounds, round)
	}

	return g
}

func (g *gameState) touch() {
	g.revision++
}

func (g *gameState) round() *Round {
	if g.currentRound < 0 || g.currentRound >= len(g.rounds) {
		return nil
	}
	return g.rounds[g.currentRound]
}

func (g *gameState) player(id string) *Player {
	return g.players[id]
}

func (g *gameState) team(id string) *Team {
	for _, t := range g.teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (g *gameState) controllingTeam() *Team {
	if g.controlling < 0 || g.controlling >= len(g.teams) {
		return nil
	}
	return g.teams[g.controlling]
}

// addPlayer registers a participant. The first host to join owns the session.
func (g *gameState) addPlayer(name string, isHost bool) *Player {
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		IsHost:   isHost,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	g.players[p.ID] = p
	g.playerOrder = append(g.playerOrder, p.ID)
	if isHost && g.hostPlayerID == "" {
		g.hostPlayerID = p.ID
	}
	g.touch()
	return p
}

// removePlayer marks a player inactive and drops their team membership. The
// Player record is retained for late history.
func (g *gameState) removePlayer(id string) *Player {
	p := g.players[id]
	if p == nil {
		return nil
	}
	p.IsActive = false
	if p.TeamID != "" {
		if t := g.team(p.TeamID); t != nil {
			t.PlayerIDs = removeString(t.PlayerIDs, id)
		}
		p.TeamID = ""
	}
	g.touch()
	return p
}

func (g *gameState) createTeam(name string) *Team {
	t := &Team{
		ID:   uuid.NewString(),
		Name: name,
	}
	g.teams = append(g.teams, t)
	if g.controlling < 0 {
		g.controlling = 0
	}
	g.touch()
	return t
}

func (g *gameState) renameTeam(teamID, name string) (*Team, error) {
	t := g.team(teamID)
	if t == nil {
		return nil, errInvalidTeam
	}
	t.Name = name
	g.touch()
	return t, nil
}

// joinTeam moves a player onto a team, removing any prior membership.
func (g *gameState) joinTeam(playerID, teamID string) (*Team, error) {
	p := g.player(playerID)
	if p == nil {
		return nil, errNotFound
	}
	t := g.team(teamID)
	if t == nil {
		return nil, errInvalidTeam
	}
	if p.TeamID == teamID {
		return t, nil
	}
	if p.TeamID != "" {
		if prev := g.team(p.TeamID); prev != nil {
			prev.PlayerIDs = removeString(prev.PlayerIDs, playerID)
		}
	}
	p.TeamID = teamID
	t.PlayerIDs = append(t.PlayerIDs, playerID)
	g.touch()
	return t, nil
}

// startGame transitions waiting -> playing. Requires at least one team with
// at least one member.
func (g *gameState) startGame() error {
	if g.status != StatusWaiting {
		return errInvalidState
	}
	populated := false
	for _, t := range g.teams {
		if len(t.PlayerIDs) > 0 {
			populated = true
			break
		}
	}
	if !populated {
		return fmt.Errorf("%w: need at least one team with a player", errInvalidState)
	}
	if len(g.rounds) == 0 {
		return fmt.Errorf("%w: no rounds loaded", errInvalidState)
	}
	g.status = StatusPlaying
	g.currentRound = 0
	g.strikes = 0
	g.clearBuzz()
	g.touch()
	return nil
}

// revealAnswer flips one unrevealed answer in the current round. Revealing
// twice is rejected rather than double-counted.
func (g *gameState) revealAnswer(answerID string) (*Answer, error) {
	if g.status != StatusPlaying {
		return nil, errInvalidState
	}
	round := g.round()
	if round == nil {
		return nil, errInvalidState
	}
	for i := range round.Answers {
		if round.Answers[i].ID != answerID {
			continue
		}
		if round.Answers[i].Revealed {
			return nil, errAlreadyRevealed
		}
		round.Answers[i].Revealed = true
		g.touch()
		return &round.Answers[i], nil
	}
	return nil, errNotFound
}

// addStrike bumps the counter with no cap; reaching the configured limit is
// reported so the host can be signaled, but the round transition stays a
// host decision.
func (g *gameState) addStrike() (strikes int, limitReached bool, err error) {
	if g.status != StatusPlaying {
		return 0, false, errInvalidState
	}
	g.strikes++
	if round := g.round(); round != nil {
		round.Strikes = g.strikes
	}
	g.touch()
	return g.strikes, g.strikes >= g.strikeLimit, nil
}

// awardPoints adds points to exactly one team. Scores never go negative, but
// negative deltas are allowed for host corrections down to zero.
func (g *gameState) awardPoints(teamID string, points int) (*Team, error) {
	t := g.team(teamID)
	if t == nil {
		return nil, errInvalidTeam
	}
	t.Score += points
	if t.Score < 0 {
		t.Score = 0
	}
	g.touch()
	return t, nil
}

// switchControllingTeam toggles board ownership for steal mechanics. No-op
// with fewer than two teams.
func (g *gameState) switchControllingTeam() (*Team, error) {
	if len(g.teams) < 2 {
		return nil, fmt.Errorf("%w: need two teams to switch", errInvalidState)
	}
	g.controlling = (g.controlling + 1) % len(g.teams)
	g.touch()
	return g.teams[g.controlling], nil
}

func (g *gameState) endRound() error {
	if g.status != StatusPlaying {
		return errInvalidState
	}
	g.status = StatusRoundEnd
	g.touch()
	return nil
}

// nextRound advances round_end -> playing, or to game_end when the board is
// exhausted. Returns true when the game ended.
func (g *gameState) nextRound() (gameEnded bool, err error) {
	if g.status != StatusRoundEnd {
		return false, errInvalidState
	}
	if g.currentRound+1 >= len(g.rounds) {
		g.status = StatusGameEnd
		g.touch()
		return true, nil
	}
	g.currentRound++
	g.strikes = 0
	g.clearBuzz()
	g.status = StatusPlaying
	g.touch()
	return false, nil
}

// winningTeam returns the highest-scoring team, or nil with no teams.
func (g *gameState) winningTeam() *Team {
	var best *Team
	for _, t := range g.teams {
		if best == nil || t.Score > best.Score {
			best = t
		}
	}
	return best
}

func (g *gameState) setTitleText(text string) {
	g.titleText = text
	g.touch()
}

func (g *gameState) playerList() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(g.playerOrder))
	for _, id := range g.playerOrder {
		p := g.players[id]
		out = append(out, PlayerInfo{
			ID:       p.ID,
			Name:     p.Name,
			TeamID:   p.TeamID,
			IsHost:   p.IsHost,
			IsActive: p.IsActive,
		})
	}
	return out
}

func (g *gameState) teamList() []TeamInfo {
	out := make([]TeamInfo, 0, len(g.teams))
	for _, t := range g.teams {
		members := make([]string, len(t.PlayerIDs))
		copy(members, t.PlayerIDs)
		out = append(out, TeamInfo{
			ID:        t.ID,
			Name:      t.Name,
			Score:     t.Score,
			PlayerIDs: members,
		})
	}
	return out
}

func (g *gameState) roundInfo() *RoundInfo {
	round := g.round()
	if round == nil || g.status == StatusWaiting {
		return nil
	}
	answers := make([]Answer, len(round.Answers))
	copy(answers, round.Answers)
	return &RoundInfo{
		QuestionID: round.QuestionID,
		Question:   round.Question,
		Category:   round.Category,
		Answers:    answers,
		Strikes:    round.Strikes,
	}
}

// snapshot builds the full client-facing state. Always complete, never
// partial.
func (g *gameState) snapshot() GameSnapshot {
	snap := GameSnapshot{
		Code:         g.code,
		Status:       g.status,
		CurrentRound: g.currentRound,
		TotalRounds:  len(g.rounds),
		Teams:        g.teamList(),
		Players:      g.playerList(),
		Strikes:      g.strikes,
		StrikeLimit:  g.strikeLimit,
		Buzzed:       g.buzz.locked,
		BuzzWinnerID: g.buzz.winnerID,
		TitleText:    g.titleText,
		Round:        g.roundInfo(),
		Revision:     g.revision,
	}
	if t := g.controllingTeam(); t != nil {
		snap.ControllingTeamID = t.ID
	}
	return snap
}

func removeString(s []string, v string) []string {
	dst := s[:0]
	for _, x := range s {
		if x != v {
			dst = append(dst, x)
		}
	}
	return dst
}
