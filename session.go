package main

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdEvent
	cmdRoundTimeUp
	cmdFastMoneyTimeUp
	cmdShutdown
)

// command is the only way anything reaches session state: connection
// registration, departure, client events, and timer fires all funnel through
// the same queue.
type command struct {
	kind cmdKind
	c    *client
	msg  ClientMessage
	gen  uint64 // timer generation at schedule time
}

// Session is one active game: authoritative state plus its room, mutated by
// exactly one goroutine consuming the command queue.
type Session struct {
	code     string
	cfg      *Config
	registry *Registry
	clock    clockwork.Clock
	bank     *QuestionBank
	game     *gameState
	room     *room
	fast     *fastMoneyState

	commands chan command
	done     chan struct{}
	active   atomic.Int64 // unix nanos of last handled command

	roundGen   uint64
	fastGen    uint64
	roundTimer clockwork.Timer
}

func newSession(cfg *Config, code string, bank *QuestionBank, reg *Registry) *Session {
	return newSessionWithClock(cfg, code, bank, reg, clockwork.NewRealClock())
}

func newSessionWithClock(cfg *Config, code string, bank *QuestionBank, reg *Registry, clock clockwork.Clock) *Session {
	code = normalizeCode(code)
	s := &Session{
		code:     code,
		cfg:      cfg,
		registry: reg,
		clock:    clock,
		bank:     bank,
		game:     newGameState(code, bank.Draw(cfg.rounds), cfg.strikeLimit),
		room:     newRoom(code),
		commands: make(chan command, 64),
		done:     make(chan struct{}),
	}
	s.active.Store(time.Now().UnixNano())
	return s
}

func (s *Session) lastActive() time.Time {
	return time.Unix(0, s.active.Load())
}

// enqueue delivers a command unless the session has already shut down. The
// done check comes first: a buffered send could otherwise still succeed
// against a loop that stopped draining.
func (s *Session) enqueue(cmd command) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.commands <- cmd:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) join(c *client) bool {
	return s.enqueue(command{kind: cmdJoin, c: c})
}

func (s *Session) leave(c *client) {
	s.enqueue(command{kind: cmdLeave, c: c})
}

func (s *Session) dispatch(c *client, msg ClientMessage) bool {
	return s.enqueue(command{kind: cmdEvent, c: c, msg: msg})
}

// shutdown ends the session from outside the loop (reaper, registry close).
func (s *Session) shutdown() {
	s.enqueue(command{kind: cmdShutdown})
}

// run is the single-writer loop. Everything that reads-then-writes session
// state happens here, which is what makes buzzer arbitration a plain
// compare-and-set.
func (s *Session) run() {
	log.Info().Str("code", s.code).Msg("session started")

	teardown := false
	for !teardown {
		cmd := <-s.commands
		s.active.Store(time.Now().UnixNano())

		switch cmd.kind {
		case cmdJoin:
			s.handleJoin(cmd.c)
		case cmdLeave:
			teardown = s.handleLeave(cmd.c)
		case cmdEvent:
			s.route(cmd.c, cmd.msg)
		case cmdRoundTimeUp:
			s.handleRoundTimeUp(cmd.gen)
		case cmdFastMoneyTimeUp:
			s.handleFastMoneyTimeUp(cmd.gen)
		case cmdShutdown:
			s.room.broadcast(HostLeftMessage{Type: "host_left"})
			teardown = true
		}
	}

	s.cancelRoundTimer()
	s.cancelFastMoneyTimer()
	s.registry.Remove(s.code)
	s.room.closeAll()
	close(s.done)

	log.Info().Str("code", s.code).Msg("session ended")
}

func (s *Session) handleJoin(c *client) {
	p := s.game.addPlayer(c.name, c.isHost)
	c.playerID = p.ID
	s.room.add(c)

	s.room.unicast(c, PlayerIDMessage{Type: "player_id", PlayerID: p.ID})
	s.room.unicast(c, GameStateMessage{Type: "game_state", State: s.game.snapshot()})
	s.room.unicast(c, PlayersListMessage{Type: "players_list", Players: s.game.playerList()})
	s.room.broadcast(PlayerJoinedMessage{
		Type:   "player_joined",
		ID:     p.ID,
		Name:   p.Name,
		IsHost: p.IsHost,
	})

	log.Info().Str("code", s.code).Str("player_id", p.ID).Str("name", p.Name).Bool("host", p.IsHost).Msg("player joined")
}

// handleLeave processes a departed connection. Host departure is fatal to
// the room: this is the single source of truth design, not an accident.
func (s *Session) handleLeave(c *client) (teardown bool) {
	if !s.room.remove(c) && c.playerID == "" {
		return false
	}

	p := s.game.removePlayer(c.playerID)
	if p == nil {
		return false
	}

	if p.ID == s.game.hostPlayerID {
		log.Info().Str("code", s.code).Msg("host left, tearing down room")
		s.room.broadcast(HostLeftMessage{Type: "host_left"})
		return true
	}

	s.room.broadcast(PlayerLeftMessage{Type: "player_left", ID: p.ID, Name: p.Name})
	log.Info().Str("code", s.code).Str("player_id", p.ID).Str("name", p.Name).Msg("player left")
	return false
}

// hostOnly reports the event types only the session host may issue.
func hostOnly(eventType string) bool {
	switch eventType {
	case evtStartGame, evtRevealAnswer, evtAddStrike, evtAwardPoints,
		evtSwitchTeam, evtEndRound, evtNextRound, evtCreateTeam,
		evtChangeTeamName, evtChangeTitleText, evtClearBuzzLock,
		evtStartFastMoney, evtFastMoneyAnswer:
		return true
	}
	return false
}

// route validates and dispatches one inbound event. Unknown types are
// dropped; malformed or unauthorized ones get a rejected ack.
func (s *Session) route(c *client, msg ClientMessage) {
	if hostOnly(msg.Type) && c.playerID != s.game.hostPlayerID {
		s.reject(c, msg.Type, errUnauthorized.Error())
		return
	}

	switch msg.Type {
	case evtJoinTeam:
		s.handleJoinTeam(c, msg)
	case evtBuzzerPress:
		s.handleBuzzerPress(c, msg)
	case evtStartGame:
		s.handleStartGame(c)
	case evtRevealAnswer:
		s.handleRevealAnswer(c, msg)
	case evtAddStrike:
		s.handleAddStrike(c)
	case evtAwardPoints:
		s.handleAwardPoints(c, msg)
	case evtSwitchTeam:
		s.handleSwitchTeam(c)
	case evtEndRound:
		s.handleEndRound(c)
	case evtNextRound:
		s.handleNextRound(c)
	case evtCreateTeam:
		s.handleCreateTeam(c, msg)
	case evtChangeTeamName:
		s.handleChangeTeamName(c, msg)
	case evtChangeTitleText:
		s.handleChangeTitleText(msg)
	case evtClearBuzzLock:
		s.handleClearBuzzLock()
	case evtStartFastMoney:
		s.handleStartFastMoney(c)
	case evtFastMoneyAnswer:
		s.handleFastMoneyAnswer(c, msg)
	default:
		log.Debug().Str("code", s.code).Str("type", msg.Type).Msg("dropping unknown event type")
	}
}

func (s *Session) reject(c *client, event, reason string) {
	s.room.unicast(c, RejectedMessage{Type: "rejected", Event: event, Reason: reason})
}

func (s *Session) handleJoinTeam(c *client, msg ClientMessage) {
	if msg.TeamID == "" {
		s.reject(c, msg.Type, "teamId is required")
		return
	}
	t, err := s.game.joinTeam(c.playerID, msg.TeamID)
	if err != nil {
		s.reject(c, msg.Type, err.Error())
		return
	}
	s.room.broadcast(TeamUpdatedMessage{Type: "team_updated", PlayerID: c.playerID, TeamID: t.ID})
}

// handleBuzzerPress runs the arbitration. Exactly one press per round wins;
// everyone else is told so. The raw press is always relayed to the host
// panel regardless of outcome.
func (s *Session) handleBuzzerPress(c *client, msg ClientMessage) {
	p := s.game.player(c.playerID)
	if p == nil {
		s.reject(c, msg.Type, errNotFound.Error())
		return
	}

	s.room.toHost(BuzzerPressedMessage{
		Type:       "buzzer_pressed",
		PlayerID:   p.ID,
		PlayerName: p.Name,
		TeamID:     p.TeamID,
		Timestamp:  msg.Timestamp,
	})

	winner, err := s.game.pressBuzzer(c.playerID, msg.Timestamp)
	if err != nil {
		s.room.unicast(c, BuzzerAckMessage{Type: "buzzer_acknowledged", Success: false, Reason: err.Error()})
		return
	}

	s.room.unicast(c, BuzzerAckMessage{Type: "buzzer_acknowledged", Success: true})
	s.room.broadcastExcept(c, BuzzerAckMessage{Type: "buzzer_acknowledged", Success: false, Reason: errAlreadyBuzzed.Error()})
	s.room.toHost(BuzzWinnerMessage{
		Type:       "buzz_winner",
		PlayerID:   winner.ID,
		PlayerName: winner.Name,
		TeamID:     winner.TeamID,
	})

	log.Debug().Str("code", s.code).Str("player_id", winner.ID).Int64("client_ts", msg.Timestamp).Msg("buzz accepted")
}

func (s *Session) handleStartGame(c *client) {
	if err := s.game.startGame(); err != nil {
		s.reject(c, evtStartGame, err.Error())
		return
	}
	s.scheduleRoundTimer()
	s.room.broadcast(GameStateMessage{Type: "game_started", State: s.game.snapshot()})
}

func (s *Session) handleRevealAnswer(c *client, msg ClientMessage) {
	if msg.AnswerID == "" {
		s.reject(c, evtRevealAnswer, "answerId is required")
		return
	}
	a, err := s.game.revealAnswer(msg.AnswerID)
	if err != nil {
		s.reject(c, evtRevealAnswer, err.Error())
		return
	}
	s.room.broadcast(AnswerRevealedMessage{
		Type:     "answer_revealed",
		AnswerID: a.ID,
		Answer:   *a,
		State:    s.game.snapshot(),
	})
}

func (s *Session) handleAddStrike(c *client) {
	strikes, limitReached, err := s.game.addStrike()
	if err != nil {
		s.reject(c, evtAddStrike, err.Error())
		return
	}
	s.room.broadcast(StrikeAddedMessage{Type: "strike_added", Strikes: strikes})
	if limitReached {
		s.room.broadcast(StrikeLimitReachedMessage{Type: "strike_limit_reached", Strikes: strikes})
	}
}

func (s *Session) handleAwardPoints(c *client, msg ClientMessage) {
	if msg.Points == nil {
		s.reject(c, evtAwardPoints, "points is required")
		return
	}
	teamID := msg.TeamID
	if teamID == "" {
		t := s.game.controllingTeam()
		if t == nil {
			s.reject(c, evtAwardPoints, errInvalidTeam.Error())
			return
		}
		teamID = t.ID
	}
	t, err := s.game.awardPoints(teamID, *msg.Points)
	if err != nil {
		s.reject(c, evtAwardPoints, err.Error())
		return
	}
	s.room.broadcast(PointsAwardedMessage{
		Type:   "points_awarded",
		TeamID: t.ID,
		Points: *msg.Points,
		Score:  t.Score,
		State:  s.game.snapshot(),
	})
}

func (s *Session) handleSwitchTeam(c *client) {
	t, err := s.game.switchControllingTeam()
	if err != nil {
		s.reject(c, evtSwitchTeam, err.Error())
		return
	}
	s.room.broadcast(TeamSwitchedMessage{Type: "team_switched", TeamID: t.ID})
}

func (s *Session) handleEndRound(c *client) {
	if err := s.game.endRound(); err != nil {
		s.reject(c, evtEndRound, err.Error())
		return
	}
	s.cancelRoundTimer()
	s.room.broadcast(RoundEndedMessage{Type: "round_ended", State: s.game.snapshot()})
}

func (s *Session) handleNextRound(c *client) {
	ended, err := s.game.nextRound()
	if err != nil {
		s.reject(c, evtNextRound, err.Error())
		return
	}
	if ended {
		s.cancelRoundTimer()
		msg := GameEndedMessage{Type: "game_ended", State: s.game.snapshot()}
		if t := s.game.winningTeam(); t != nil {
			msg.WinningTeamID = t.ID
		}
		s.room.broadcast(msg)
		return
	}
	s.scheduleRoundTimer()
	round := s.game.roundInfo()
	s.room.broadcast(RoundStartedMessage{
		Type:        "round_started",
		RoundNumber: s.game.currentRound,
		Round:       *round,
		State:       s.game.snapshot(),
	})
}

func (s *Session) handleCreateTeam(c *client, msg ClientMessage) {
	if msg.Name == "" {
		s.reject(c, evtCreateTeam, "name is required")
		return
	}
	t := s.game.createTeam(msg.Name)
	s.room.broadcast(TeamCreatedMessage{
		Type: "team_created",
		Team: TeamInfo{ID: t.ID, Name: t.Name, Score: t.Score, PlayerIDs: nil},
	})
}

func (s *Session) handleChangeTeamName(c *client, msg ClientMessage) {
	if msg.TeamID == "" || msg.Name == "" {
		s.reject(c, evtChangeTeamName, "teamId and name are required")
		return
	}
	t, err := s.game.renameTeam(msg.TeamID, msg.Name)
	if err != nil {
		s.reject(c, evtChangeTeamName, err.Error())
		return
	}
	s.room.broadcast(TeamNameChangedMessage{Type: "team_name_changed", TeamID: t.ID, Name: t.Name})
}

func (s *Session) handleChangeTitleText(msg ClientMessage) {
	s.game.setTitleText(msg.Text)
	s.room.broadcast(TitleTextChangedMessage{Type: "title_text_changed", Text: msg.Text})
}

func (s *Session) handleClearBuzzLock() {
	s.game.clearBuzz()
	s.room.broadcast(GameStateMessage{Type: "game_state", State: s.game.snapshot()})
}

// scheduleRoundTimer arms the round countdown, replacing any previous one.
// The generation counter makes a stale fire a no-op.
func (s *Session) scheduleRoundTimer() {
	s.cancelRoundTimer()
	if s.cfg.roundTimer <= 0 {
		return
	}
	gen := s.roundGen
	s.roundTimer = s.clock.AfterFunc(s.cfg.roundTimer, func() {
		s.enqueue(command{kind: cmdRoundTimeUp, gen: gen})
	})
}

func (s *Session) cancelRoundTimer() {
	s.roundGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}
}

func (s *Session) handleRoundTimeUp(gen uint64) {
	if gen != s.roundGen {
		log.Debug().Str("code", s.code).Msg("discarding stale round timer fire")
		return
	}
	s.roundTimer = nil
	s.room.broadcast(RoundTimeUpMessage{Type: "round_time_up", RoundNumber: s.game.currentRound})
}
