package main

import (
	"github.com/rs/zerolog/log"
)

const (
	fastMoneyQuestions = 5
	fastMoneySlots     = 5
)

type fastMoneyAnswer struct {
	Answer string
	Points int
}

// fastMoneyState is the bonus round: two contestants answer the same five
// questions under a countdown while the host enters answers and points.
// It rides alongside the board game and never touches session status.
type fastMoneyState struct {
	questions  [fastMoneyQuestions]Question
	answers    [2][fastMoneySlots]fastMoneyAnswer
	total      int
	contestant int // 1 or 2
	running    bool
}

func (s *Session) handleStartFastMoney(c *client) {
	drawn := s.drawFastMoney()
	if len(drawn) < fastMoneyQuestions {
		s.reject(c, evtStartFastMoney, "not enough questions for fast money")
		return
	}

	fm := &fastMoneyState{contestant: 1, running: true}
	copy(fm.questions[:], drawn)
	s.fast = fm

	s.scheduleFastMoneyTimer()
	s.room.broadcast(FastMoneyStartedMessage{
		Type:      "fast_money_started",
		Questions: drawn,
		Seconds:   int(s.cfg.fastMoneyTimer.Seconds()),
	})

	log.Info().Str("code", s.code).Msg("fast money started")
}

func (s *Session) handleFastMoneyAnswer(c *client, msg ClientMessage) {
	fm := s.fast
	if fm == nil {
		s.reject(c, evtFastMoneyAnswer, errInvalidState.Error())
		return
	}
	if msg.Player < 1 || msg.Player > 2 || msg.Index < 0 || msg.Index >= fastMoneySlots || msg.Points == nil {
		s.reject(c, evtFastMoneyAnswer, "player, index and points are required")
		return
	}

	slot := &fm.answers[msg.Player-1][msg.Index]
	fm.total += *msg.Points - slot.Points
	slot.Answer = msg.Answer
	slot.Points = *msg.Points

	s.room.broadcast(FastMoneyAnswerMessage{
		Type:   "fast_money_answer_update",
		Player: msg.Player,
		Index:  msg.Index,
		Answer: msg.Answer,
		Points: slot.Points,
		Total:  fm.total,
	})
}

// scheduleFastMoneyTimer arms a contestant's countdown. The generation lives
// on the Session, not the fast money state, so a restart that swaps the state
// out can never hand an old timer a fresh-looking counter.
func (s *Session) scheduleFastMoneyTimer() {
	s.fastGen++
	if s.fast == nil || s.cfg.fastMoneyTimer <= 0 {
		return
	}
	gen := s.fastGen
	s.clock.AfterFunc(s.cfg.fastMoneyTimer, func() {
		s.enqueue(command{kind: cmdFastMoneyTimeUp, gen: gen})
	})
}

// handleFastMoneyTimeUp fires at the end of a contestant's countdown. A
// stale generation means the round was restarted or canceled; drop it.
func (s *Session) handleFastMoneyTimeUp(gen uint64) {
	fm := s.fast
	if fm == nil || !fm.running || gen != s.fastGen {
		log.Debug().Str("code", s.code).Msg("discarding stale fast money timer fire")
		return
	}

	finished := fm.contestant
	if finished == 1 {
		fm.contestant = 2
		s.scheduleFastMoneyTimer()
	} else {
		fm.running = false
	}
	s.room.broadcast(FastMoneyTimeUpMessage{Type: "fast_money_time_up", Player: finished})
}

func (s *Session) cancelFastMoneyTimer() {
	s.fastGen++
	if s.fast != nil {
		s.fast.running = false
	}
}

// drawFastMoney picks five questions, preferring ones not already on the
// board. Falls back to board questions when the bank is small.
func (s *Session) drawFastMoney() []Question {
	used := make(map[string]bool, len(s.game.rounds))
	for _, r := range s.game.rounds {
		used[r.QuestionID] = true
	}

	candidates := s.bank.Draw(s.bank.Len())
	out := make([]Question, 0, fastMoneyQuestions)
	for _, q := range candidates {
		if used[q.ID] {
			continue
		}
		out = append(out, q)
		if len(out) == fastMoneyQuestions {
			return out
		}
	}
	for _, q := range candidates {
		if len(out) == fastMoneyQuestions {
			break
		}
		if used[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
