package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"termtrivia/internal/config"
	"termtrivia/internal/protocol"
	"termtrivia/internal/question"
	"termtrivia/internal/user"
)

const writeTimeout = 5 * time.Second

// Server accepts connections and runs one session per client, arbitrating
// shared access to the question bank, the user store and the active round.
type Server struct {
	cfg   config.Config
	bank  *question.Bank
	users *user.Store
	saver user.Saver

	ln net.Listener

	mu       sync.Mutex
	round    *round
	sessions map[uuid.UUID]*Session
	wg       sync.WaitGroup
}

func New(cfg config.Config, bank *question.Bank, users *user.Store, saver user.Saver) *Server {
	protocol.Init() // ensure protocol types are registered with gob

	return &Server{
		cfg:      cfg,
		bank:     bank,
		users:    users,
		saver:    saver,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Listen binds the server to its configured address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	slog.Info("server listening", "address", ln.Addr())
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then stops accepting,
// gives in-flight sessions a grace period to reach a terminal state and
// persists the user store before returning.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return s.ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				slog.Error("failed to accept connection", "error", err)
				continue
			}

			slog.Info("accepted connection", "remote", conn.RemoteAddr())
			sess := newSession(s, conn)
			s.registerSession(sess)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				sess.run(ctx)
			}()
		}
	})

	err := g.Wait()
	slog.Info("server shutting down")

	s.drainSessions()

	if perr := s.users.Persist(s.saver); perr != nil {
		slog.Error("failed to persist user records on shutdown", "error", perr)
	}

	slog.Info("server shutdown complete")
	return err
}

// drainSessions waits for in-flight sessions, bounded by the grace period,
// then forcibly closes whatever is left.
func (s *Server) drainSessions() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(s.cfg.ShutdownGrace):
	}

	slog.Info("grace period elapsed, closing remaining sessions")
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()
	<-done
}

func (s *Server) registerSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.id] = sess
}

func (s *Server) unregisterSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sess.id)
}

// joinRound admits the session into the current round, starting a new
// round when none is running.
func (s *Server) joinRound(sess *Session) (*round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil {
		s.round = s.startRound()
	}

	err := s.round.join(sess)
	if errors.Is(err, ErrRoundOver) {
		// The old round is still publishing its summary; start fresh.
		s.round = s.startRound()
		err = s.round.join(sess)
	}
	if err != nil {
		return nil, err
	}
	return s.round, nil
}

func (s *Server) startRound() *round {
	slog.Info("new round started", "deadline", s.cfg.RoundDeadline)
	return newRound(s.cfg.RoundDeadline, func(r *round) {
		slog.Info("round deadline elapsed, finishing round")
		s.finishRound(r)
	})
}

// recordAnswer serializes a session's answer into the user store and the
// round's score sheet.
func (s *Server) recordAnswer(sess *Session, correct bool) {
	s.users.RecordAnswer(sess.username, correct)
	sess.round.setScore(sess, sess.score)
}

// sessionComplete marks a session as done with the round and finishes the
// round once it was the last one playing.
func (s *Server) sessionComplete(sess *Session) {
	r := sess.round
	r.setScore(sess, sess.score)
	if r.complete(sess) {
		s.finishRound(r)
	}
}

// sessionDisconnected removes a session from the active round without
// blocking the others; the round finishes if it was the last one playing.
func (s *Server) sessionDisconnected(sess *Session) {
	r := sess.round
	if r.drop(sess) {
		s.finishRound(r)
	}
}

// finishRound concludes the round exactly once: ranks every member that
// did not disconnect, records their games, publishes the summary and
// persists the user store. Broadcast strictly precedes persistence, so a
// storage failure never loses already-computed results.
func (s *Server) finishRound(r *round) {
	included := r.conclude()
	if included == nil {
		return
	}

	for _, m := range included {
		s.users.FinishGame(m.username, m.score)
	}

	rankings := buildRankings(included)
	r.publish(rankings)

	s.mu.Lock()
	if s.round == r {
		s.round = nil
	}
	s.mu.Unlock()

	slog.Info("round finished", "players", len(rankings), "duration", time.Since(r.startedAt).Round(time.Millisecond))

	if err := s.users.Persist(s.saver); err != nil {
		slog.Error("failed to persist user records after round", "error", err)
	}
}

func (s *Server) highscores() []protocol.HighscoreEntry {
	top := s.users.Highscores(s.cfg.HighscoreSize)
	entries := make([]protocol.HighscoreEntry, 0, len(top))
	for _, rec := range top {
		entries = append(entries, protocol.HighscoreEntry{
			Username:  rec.Username,
			BestScore: rec.BestScore,
		})
	}
	return entries
}
