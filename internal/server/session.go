package server

import (
	"context"
	"encoding/gob"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"termtrivia/internal/protocol"
	"termtrivia/internal/question"
)

// State is a session's position in its lifecycle. Transitions never move
// backwards except for the InRound -> AwaitingAnswer -> Scoring question
// loop; Disconnected and RoundComplete are terminal.
type State byte

const (
	StateConnecting State = iota
	StateAuthenticating
	StateInRound
	StateAwaitingAnswer
	StateScoring
	StateRoundComplete
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateInRound:
		return "in_round"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateScoring:
		return "scoring"
	case StateRoundComplete:
		return "round_complete"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// answer outcomes for one awaitAnswer call.
type answerOutcome byte

const (
	outcomeAnswered answerOutcome = iota
	outcomeTimeout
	outcomeRoundEnded
	outcomeDisconnected
	outcomeShutdown
)

// Session is the server-side state for one connected player. Its fields
// are owned by the session goroutine; the server observes it only through
// the round's bookkeeping.
type Session struct {
	id       uuid.UUID
	conn     net.Conn
	encoder  *gob.Encoder
	decoder  *gob.Decoder
	srv      *Server
	log      *slog.Logger
	username string
	round    *round
	asked    map[int]struct{}
	score    int
	state    State

	inbound  chan protocol.Message
	outbound chan protocol.Message
	quit     chan struct{}
}

func newSession(srv *Server, conn net.Conn) *Session {
	id := uuid.New()
	return &Session{
		id:      id,
		conn:    conn,
		encoder: gob.NewEncoder(conn),
		decoder: gob.NewDecoder(conn),
		srv:     srv,
		log:     slog.With("session", id, "remote", conn.RemoteAddr()),
		asked:   make(map[int]struct{}),
		state:   StateConnecting,

		inbound:  make(chan protocol.Message, 10),
		outbound: make(chan protocol.Message, 10),
		quit:     make(chan struct{}),
	}
}

func (s *Session) transition(to State) {
	if s.state == StateDisconnected {
		return
	}
	if s.state == StateRoundComplete && to != StateDisconnected {
		return
	}
	s.log.Debug("session state change", "from", s.state, "to", to)
	s.state = to
}

// run drives the session from connect to a terminal state. It is the only
// goroutine that touches session state and the only sender on outbound.
func (s *Session) run(ctx context.Context) {
	defer s.teardown()

	go s.readLoop()
	go s.writeLoop()

	if !s.join(ctx) {
		s.transition(StateDisconnected)
		return
	}

	s.play(ctx)
}

// join waits for the client's join message, validates the username and
// admits the session into the current round. It reports whether the
// session may start playing.
func (s *Session) join(ctx context.Context) bool {
	username, ok := s.awaitJoin(ctx)
	if !ok {
		return false
	}

	s.transition(StateAuthenticating)

	username = strings.TrimSpace(username)
	if username == "" {
		s.log.Info("rejecting join", "error", ErrInvalidUsername)
		s.send(protocol.Message{
			Type:    protocol.ErrorMsg,
			Payload: protocol.ErrorPayload{Message: ErrInvalidUsername.Error()},
		})
		return false
	}
	s.username = username
	s.log = s.log.With("username", username)

	r, err := s.srv.joinRound(s)
	if err != nil {
		s.log.Info("rejecting join", "error", err)
		s.send(protocol.Message{
			Type:    protocol.ErrorMsg,
			Payload: protocol.ErrorPayload{Message: err.Error()},
		})
		return false
	}
	s.round = r

	rec := s.srv.users.CreateOrGet(username)
	s.send(protocol.Message{
		Type: protocol.WelcomeMsg,
		Payload: protocol.WelcomePayload{
			Username:     rec.Username,
			BestScore:    rec.BestScore,
			TotalCorrect: rec.TotalCorrect,
			GamesPlayed:  rec.GamesPlayed,
		},
	})

	s.log.Info("player joined round")
	return true
}

func (s *Session) awaitJoin(ctx context.Context) (string, bool) {
	timer := time.NewTimer(s.srv.cfg.AnswerTimeout)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.inbound:
			if !ok {
				return "", false
			}
			if msg.Type != protocol.JoinMsg {
				s.log.Info("expected join message", "type", msg.Type)
				continue
			}
			payload, ok := msg.Payload.(protocol.JoinPayload)
			if !ok {
				s.log.Error("invalid join payload")
				return "", false
			}
			return payload.Username, true
		case <-timer.C:
			s.log.Info("client never joined, closing")
			return "", false
		case <-ctx.Done():
			return "", false
		}
	}
}

// play loops the session through questions until the bank is exhausted for
// it, the round ends, the client disconnects or the server shuts down.
func (s *Session) play(ctx context.Context) {
	for {
		s.transition(StateInRound)

		select {
		case <-s.round.done:
			s.roundEnded()
			return
		case <-ctx.Done():
			s.transition(StateDisconnected)
			return
		default:
		}

		q, ok := s.srv.bank.PickNext(s.asked)
		if !ok {
			// Bank exhausted for this session: the round is over for it.
			s.complete(ctx)
			return
		}
		s.asked[q.ID] = struct{}{}

		s.transition(StateAwaitingAnswer)
		s.send(protocol.Message{
			Type: protocol.QuestionMsg,
			Payload: protocol.QuestionPayload{
				QuestionID: q.ID,
				Prompt:     q.Prompt,
				Options:    q.Options,
				TimeLimit:  int(s.srv.cfg.AnswerTimeout.Seconds()),
			},
		})

		outcome, correct := s.awaitAnswer(ctx, q)
		switch outcome {
		case outcomeAnswered:
			s.scoreAnswer(q, correct)
		case outcomeTimeout:
			// A timed-out answer is silently scored as wrong.
			s.scoreAnswer(q, false)
		case outcomeRoundEnded:
			s.roundEnded()
			return
		case outcomeDisconnected:
			s.transition(StateDisconnected)
			return
		case outcomeShutdown:
			s.transition(StateDisconnected)
			return
		}
	}
}

// awaitAnswer blocks until the client answers the pending question, the
// per-question time budget runs out, the round ends or the session dies.
// Side requests (score, highscores, player list) are served while waiting
// without consuming the answer timer.
func (s *Session) awaitAnswer(ctx context.Context, q question.Question) (answerOutcome, bool) {
	timer := time.NewTimer(s.srv.cfg.AnswerTimeout)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-s.inbound:
			if !ok {
				return outcomeDisconnected, false
			}

			switch msg.Type {
			case protocol.AnswerMsg:
				payload, ok := msg.Payload.(protocol.AnswerPayload)
				if !ok {
					s.log.Error("invalid answer payload")
					return outcomeDisconnected, false
				}
				if payload.QuestionID != q.ID {
					// Stale answer for an earlier question, e.g. sent just
					// after its timeout fired. Already scored, so drop it.
					s.log.Info("ignoring stale answer", "question", payload.QuestionID, "pending", q.ID)
					continue
				}
				if payload.Option < 0 || payload.Option >= len(q.Options) {
					s.send(protocol.Message{
						Type:    protocol.ErrorMsg,
						Payload: protocol.ErrorPayload{Message: "invalid answer: option out of range"},
					})
					continue
				}
				return outcomeAnswered, q.IsCorrect(payload.Option)
			case protocol.QuitMsg:
				s.log.Info("client quit")
				return outcomeDisconnected, false
			default:
				s.handleSideRequest(msg)
			}
		case <-timer.C:
			s.log.Info("answer timed out", "question", q.ID)
			return outcomeTimeout, false
		case <-s.round.done:
			return outcomeRoundEnded, false
		case <-ctx.Done():
			return outcomeShutdown, false
		}
	}
}

// handleSideRequest serves the request messages a client may issue at any
// point in the round: its own score, the all-time highscore table and the
// list of active players.
func (s *Session) handleSideRequest(msg protocol.Message) {
	switch msg.Type {
	case protocol.GetScoreMsg:
		s.send(protocol.Message{
			Type:    protocol.ScoreReport,
			Payload: protocol.ScorePayload{Score: s.score},
		})
	case protocol.GetHighscoreMsg:
		s.send(protocol.Message{
			Type:    protocol.HighscoreMsg,
			Payload: protocol.HighscorePayload{Entries: s.srv.highscores()},
		})
	case protocol.GetPlayersMsg:
		s.send(protocol.Message{
			Type:    protocol.PlayerList,
			Payload: protocol.PlayersPayload{Usernames: s.round.usernames()},
		})
	default:
		s.log.Info("ignoring unexpected message", "type", msg.Type)
	}
}

// scoreAnswer records one answer, correct or not, and reports the result
// back to the client.
func (s *Session) scoreAnswer(q question.Question, correct bool) {
	s.transition(StateScoring)

	if correct {
		s.score += s.srv.cfg.PointsPerCorrect
	}
	s.srv.recordAnswer(s, correct)

	s.send(protocol.Message{
		Type: protocol.ResultMsg,
		Payload: protocol.ResultPayload{
			QuestionID: q.ID,
			Correct:    correct,
			Answer:     q.Answer,
			Score:      s.score,
		},
	})
}

// complete ends the round for this session normally, then waits for the
// rest of the round so the summary can be delivered. Side requests keep
// being served while waiting.
func (s *Session) complete(ctx context.Context) {
	s.transition(StateRoundComplete)
	s.srv.sessionComplete(s)

	for {
		select {
		case <-s.round.done:
			s.sendSummary()
			return
		case msg, ok := <-s.inbound:
			if !ok {
				// Client went away while waiting for the rest of the
				// round. It stays in the summary but won't receive it.
				return
			}
			if msg.Type == protocol.QuitMsg {
				return
			}
			s.handleSideRequest(msg)
		case <-ctx.Done():
			return
		}
	}
}

// roundEnded delivers the summary after the round ended while this
// session was still mid-question (deadline expiry).
func (s *Session) roundEnded() {
	s.transition(StateRoundComplete)
	s.sendSummary()
}

func (s *Session) sendSummary() {
	s.send(protocol.Message{
		Type:    protocol.SummaryMsg,
		Payload: protocol.SummaryPayload{Rankings: s.round.Summary()},
	})
}

// send enqueues a message for the write loop. A client that stopped
// draining its connection loses messages rather than blocking the session.
func (s *Session) send(msg protocol.Message) {
	select {
	case s.outbound <- msg:
	default:
		s.log.Error("client too slow to receive, dropping message", "type", msg.Type)
	}
}

func (s *Session) readLoop() {
	defer close(s.inbound)

	for {
		var msg protocol.Message
		if err := s.decoder.Decode(&msg); err != nil {
			select {
			case <-s.quit:
				// Expected: the session closed the connection under us.
			default:
				s.log.Info("connection lost", "error", err)
			}
			return
		}

		select {
		case s.inbound <- msg:
		case <-s.quit:
			return
		}
	}
}

func (s *Session) writeLoop() {
	var failed bool
	for msg := range s.outbound {
		if failed {
			continue
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.encoder.Encode(msg); err != nil {
			s.log.Info("error writing to client", "error", err)
			failed = true
		}
	}
	s.conn.Close()
}

// teardown releases everything the session holds: its slot in the round,
// its registry entry and, via the write loop, the connection itself.
func (s *Session) teardown() {
	if s.state != StateRoundComplete {
		s.transition(StateDisconnected)
	}
	if s.round != nil && s.state == StateDisconnected {
		s.srv.sessionDisconnected(s)
	}
	s.srv.unregisterSession(s)

	close(s.quit)
	close(s.outbound)
	s.log.Info("session closed", "state", s.state, "score", s.score)
}
