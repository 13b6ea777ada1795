package server

import (
	"slices"
	"sync"
	"time"

	"termtrivia/internal/protocol"
)

type memberStatus byte

const (
	memberActive memberStatus = iota
	memberComplete
	memberGone
)

// member is the round's own bookkeeping for one session. Scores are
// mirrored here on every scoring step so the round can rank sessions
// without reaching into their goroutines.
type member struct {
	session  *Session
	username string
	joinedAt time.Time
	score    int
	status   memberStatus
}

// round tracks the set of sessions playing one game, from first join to
// the final summary broadcast. The server is the sole mutator; all access
// goes through the round's mutex.
type round struct {
	mu        sync.Mutex
	startedAt time.Time
	members   map[*Session]*member
	order     []*member // join order, for ranking tie-breaks
	timer     *time.Timer
	finished  bool
	summary   []protocol.PlayerRank

	// done is closed once the summary is final. Sessions select on it to
	// learn the round ended, then read the summary via Summary.
	done chan struct{}
}

func newRound(deadline time.Duration, onExpire func(*round)) *round {
	r := &round{
		startedAt: time.Now(),
		members:   make(map[*Session]*member),
		done:      make(chan struct{}),
	}
	r.timer = time.AfterFunc(deadline, func() { onExpire(r) })
	return r
}

// join admits a session into the round. A username already active in the
// round is rejected.
func (r *round) join(sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return ErrRoundOver
	}
	for _, m := range r.members {
		if m.status != memberGone && m.username == sess.username {
			return ErrUsernameTaken
		}
	}

	m := &member{
		session:  sess,
		username: sess.username,
		joinedAt: time.Now(),
		status:   memberActive,
	}
	r.members[sess] = m
	r.order = append(r.order, m)
	return nil
}

// setScore mirrors a session's score into the round after a scoring step.
func (r *round) setScore(sess *Session, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.members[sess]; ok {
		m.score = score
	}
}

// complete marks a session as having finished the round normally. It
// reports whether every member has now reached a terminal state.
func (r *round) complete(sess *Session) bool {
	return r.settle(sess, memberComplete)
}

// drop removes a disconnected session from the active round. It reports
// whether every remaining member has reached a terminal state.
func (r *round) drop(sess *Session) bool {
	return r.settle(sess, memberGone)
}

func (r *round) settle(sess *Session, status memberStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[sess]
	if !ok || r.finished {
		return false
	}
	if m.status == memberActive {
		m.status = status
	}

	for _, m := range r.members {
		if m.status == memberActive {
			return false
		}
	}
	return true
}

// usernames returns the players currently active in the round.
func (r *round) usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.order))
	for _, m := range r.order {
		if m.status != memberGone {
			names = append(names, m.username)
		}
	}
	return names
}

// conclude marks the round finished and computes the final ranking from
// every member that did not disconnect. It returns nil if the round was
// already concluded. Members still active (round deadline expired) are
// ranked with whatever score they reached.
func (r *round) conclude() []*member {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return nil
	}
	r.finished = true
	r.timer.Stop()

	included := make([]*member, 0, len(r.order))
	for _, m := range r.order {
		if m.status != memberGone {
			included = append(included, m)
		}
	}
	rankMembers(included)
	return included
}

// publish makes the summary available and wakes every waiting session.
func (r *round) publish(rankings []protocol.PlayerRank) {
	r.mu.Lock()
	r.summary = rankings
	r.mu.Unlock()
	close(r.done)
}

// Summary returns the final ranking. Valid only after done is closed.
func (r *round) Summary() []protocol.PlayerRank {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// rankMembers sorts by score descending; ties go to the earlier join.
func rankMembers(members []*member) {
	slices.SortStableFunc(members, func(a, b *member) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return a.joinedAt.Compare(b.joinedAt)
	})
}

func buildRankings(members []*member) []protocol.PlayerRank {
	rankings := make([]protocol.PlayerRank, 0, len(members))
	for i, m := range members {
		rankings = append(rankings, protocol.PlayerRank{
			Username: m.username,
			Score:    m.score,
			Rank:     i + 1,
		})
	}
	return rankings
}
