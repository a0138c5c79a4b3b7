package main

// Inbound event vocabulary. Anything else is dropped with a debug log.
const (
	evtJoinTeam        = "join_team"
	evtStartGame       = "start_game"
	evtBuzzerPress     = "buzzer_press"
	evtRevealAnswer    = "reveal_answer"
	evtAddStrike       = "add_strike"
	evtAwardPoints     = "award_points"
	evtSwitchTeam      = "switch_team"
	evtEndRound        = "end_round"
	evtNextRound       = "next_round"
	evtCreateTeam      = "create_team"
	evtChangeTeamName  = "change_team_name"
	evtChangeTitleText = "change_title_text"
	evtClearBuzzLock   = "clear_buzz_lock"
	evtStartFastMoney  = "start_fast_money"
	evtFastMoneyAnswer = "fast_money_answer"
)

// ClientMessage is the single envelope for everything a client sends after
// the handshake. Which fields matter depends on Type.
type ClientMessage struct {
	Type      string `json:"type"`
	TeamID    string `json:"teamId,omitempty"`    // join_team / award_points / change_team_name
	AnswerID  string `json:"answerId,omitempty"`  // reveal_answer
	Points    *int   `json:"points,omitempty"`    // award_points / fast_money_answer
	Name      string `json:"name,omitempty"`      // create_team / change_team_name
	Text      string `json:"text,omitempty"`      // change_title_text
	Timestamp int64  `json:"timestamp,omitempty"` // buzzer_press, client clock, display only
	Player    int    `json:"player,omitempty"`    // fast_money_answer: contestant 1 or 2
	Index     int    `json:"index,omitempty"`     // fast_money_answer: answer slot 0-4
	Answer    string `json:"answer,omitempty"`    // fast_money_answer
}

// PlayerInfo is the client-facing view of a player.
type PlayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TeamID   string `json:"teamId,omitempty"`
	IsHost   bool   `json:"isHost"`
	IsActive bool   `json:"isActive"`
}

// TeamInfo is the client-facing view of a team.
type TeamInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Score     int      `json:"score"`
	PlayerIDs []string `json:"playerIds"`
}

// RoundInfo is the client-facing view of the current round, answers included.
// Clients are trusted to hide unrevealed answer text on non-host screens.
type RoundInfo struct {
	QuestionID string   `json:"questionId"`
	Question   string   `json:"question"`
	Category   string   `json:"category,omitempty"`
	Answers    []Answer `json:"answers"`
	Strikes    int      `json:"strikes"`
}

// GameSnapshot is the full authoritative state, sent on join and alongside
// most mutations. Revision lets clients detect stale snapshots.
type GameSnapshot struct {
	Code              string       `json:"code"`
	Status            Status       `json:"status"`
	CurrentRound      int          `json:"currentRound"`
	TotalRounds       int          `json:"totalRounds"`
	Teams             []TeamInfo   `json:"teams"`
	Players           []PlayerInfo `json:"players"`
	ControllingTeamID string       `json:"controllingTeamId,omitempty"`
	Strikes           int          `json:"strikes"`
	StrikeLimit       int          `json:"strikeLimit"`
	Buzzed            bool         `json:"buzzed"`
	BuzzWinnerID      string       `json:"buzzWinnerId,omitempty"`
	TitleText         string       `json:"titleText,omitempty"`
	Round             *RoundInfo   `json:"round,omitempty"`
	Revision          uint64       `json:"revision"`
}

// Outbound messages. Every struct carries its own type tag so the client can
// switch on it.

type PlayerIDMessage struct {
	Type     string `json:"type"` // "player_id"
	PlayerID string `json:"playerId"`
}

type PlayerJoinedMessage struct {
	Type   string `json:"type"` // "player_joined"
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type PlayersListMessage struct {
	Type    string       `json:"type"` // "players_list"
	Players []PlayerInfo `json:"players"`
}

type GameStateMessage struct {
	Type  string       `json:"type"` // "game_state" / "game_started"
	State GameSnapshot `json:"state"`
}

type TeamCreatedMessage struct {
	Type string   `json:"type"` // "team_created"
	Team TeamInfo `json:"team"`
}

type TeamUpdatedMessage struct {
	Type     string `json:"type"` // "team_updated"
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
}

// BuzzerPressedMessage relays every raw press to the host panel, arbitration
// outcome aside, so the host sees who was close.
type BuzzerPressedMessage struct {
	Type       string `json:"type"` // "buzzer_pressed"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	TeamID     string `json:"teamId,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type BuzzWinnerMessage struct {
	Type       string `json:"type"` // "buzz_winner"
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	TeamID     string `json:"teamId,omitempty"`
}

type BuzzerAckMessage struct {
	Type    string `json:"type"` // "buzzer_acknowledged"
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type AnswerRevealedMessage struct {
	Type     string       `json:"type"` // "answer_revealed"
	AnswerID string       `json:"answerId"`
	Answer   Answer       `json:"answer"`
	State    GameSnapshot `json:"state"`
}

type StrikeAddedMessage struct {
	Type    string `json:"type"` // "strike_added"
	Strikes int    `json:"strikes"`
}

// StrikeLimitReachedMessage is a separate signal so the host decides what to
// do with a struck-out round; the server never transitions on its own.
type StrikeLimitReachedMessage struct {
	Type    string `json:"type"` // "strike_limit_reached"
	Strikes int    `json:"strikes"`
}

type PointsAwardedMessage struct {
	Type   string       `json:"type"` // "points_awarded"
	TeamID string       `json:"teamId"`
	Points int          `json:"points"`
	Score  int          `json:"score"`
	State  GameSnapshot `json:"state"`
}

type TeamSwitchedMessage struct {
	Type   string `json:"type"` // "team_switched"
	TeamID string `json:"teamId"`
}

type RoundStartedMessage struct {
	Type        string       `json:"type"` // "round_started"
	RoundNumber int          `json:"roundNumber"`
	Round       RoundInfo    `json:"round"`
	State       GameSnapshot `json:"state"`
}

type RoundEndedMessage struct {
	Type  string       `json:"type"` // "round_ended"
	State GameSnapshot `json:"state"`
}

type GameEndedMessage struct {
	Type          string       `json:"type"` // "game_ended"
	WinningTeamID string       `json:"winningTeamId,omitempty"`
	State         GameSnapshot `json:"state"`
}

type TeamNameChangedMessage struct {
	Type   string `json:"type"` // "team_name_changed"
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
}

type TitleTextChangedMessage struct {
	Type string `json:"type"` // "title_text_changed"
	Text string `json:"text"`
}

type RoundTimeUpMessage struct {
	Type        string `json:"type"` // "round_time_up"
	RoundNumber int    `json:"roundNumber"`
}

type PlayerLeftMessage struct {
	Type string `json:"type"` // "player_left"
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HostLeftMessage struct {
	Type string `json:"type"` // "host_left"
}

// RejectedMessage acknowledges an event that could not be applied. Sent only
// to the offending client.
type RejectedMessage struct {
	Type   string `json:"type"` // "rejected"
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

type FastMoneyStartedMessage struct {
	Type      string     `json:"type"` // "fast_money_started"
	Questions []Question `json:"questions"`
	Seconds   int        `json:"seconds"`
}

type FastMoneyAnswerMessage struct {
	Type   string `json:"type"` // "fast_money_answer_update"
	Player int    `json:"player"`
	Index  int    `json:"index"`
	Answer string `json:"answer"`
	Points int    `json:"points"`
	Total  int    `json:"total"`
}

type FastMoneyTimeUpMessage struct {
	Type   string `json:"type"` // "fast_money_time_up"
	Player int    `json:"player"`
}
