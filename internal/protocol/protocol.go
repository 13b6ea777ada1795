package protocol

import "encoding/gob"

type MessageType string

const (
	// Server -> Client
	WelcomeMsg   MessageType = "welcome"
	QuestionMsg  MessageType = "question"
	ResultMsg    MessageType = "result"
	SummaryMsg   MessageType = "summary"
	ScoreReport  MessageType = "score_report"
	HighscoreMsg MessageType = "highscore_table"
	PlayerList   MessageType = "player_list"
	ErrorMsg     MessageType = "error"

	// Client -> Server
	JoinMsg         MessageType = "join"
	AnswerMsg       MessageType = "answer"
	GetScoreMsg     MessageType = "get_score"
	GetHighscoreMsg MessageType = "get_highscore"
	GetPlayersMsg   MessageType = "get_players"
	QuitMsg         MessageType = "quit"
)

// Message is the base structure sent between client and server.
// Payload holds exactly one of the payload types below, keyed by Type.
type Message struct {
	Type    MessageType
	Payload any
}

// JoinPayload asks the server to admit a player into the current round.
type JoinPayload struct {
	Username string
}

// WelcomePayload confirms a join and reports the player's persisted stats.
type WelcomePayload struct {
	Username     string
	BestScore    int
	TotalCorrect int
	GamesPlayed  int
}

// QuestionPayload carries one question to a client.
type QuestionPayload struct {
	QuestionID int
	Prompt     string
	Options    []string
	TimeLimit  int // seconds
}

// AnswerPayload is a client's answer selection for a question.
type AnswerPayload struct {
	QuestionID int
	Option     int // index into QuestionPayload.Options
}

// ResultPayload reports whether the last answer was correct and the
// session's score after scoring it.
type ResultPayload struct {
	QuestionID int
	Correct    bool
	Answer     int // the correct option index, revealed after scoring
	Score      int
}

// SummaryPayload is the end-of-round ranking, broadcast to every
// still-connected session.
type SummaryPayload struct {
	Rankings []PlayerRank
}

// PlayerRank is one entry in the round summary.
type PlayerRank struct {
	Username string
	Score    int
	Rank     int
}

// ScorePayload reports a player's own current session score on request.
type ScorePayload struct {
	Score int
}

// HighscorePayload is the all-time best-score table.
type HighscorePayload struct {
	Entries []HighscoreEntry
}

type HighscoreEntry struct {
	Username  string
	BestScore int
}

// PlayersPayload lists the usernames active in the current round.
type PlayersPayload struct {
	Usernames []string
}

// ErrorPayload carries a human-readable rejection, e.g. for an invalid
// or duplicate username.
type ErrorPayload struct {
	Message string
}

// Init registers all payload types with gob. Both ends must call it
// before encoding or decoding messages.
func Init() {
	gob.Register(JoinPayload{})
	gob.Register(WelcomePayload{})
	gob.Register(QuestionPayload{})
	gob.Register(AnswerPayload{})
	gob.Register(ResultPayload{})
	gob.Register(SummaryPayload{})
	gob.Register(ScorePayload{})
	gob.Register(HighscorePayload{})
	gob.Register(PlayersPayload{})
	gob.Register(ErrorPayload{})
}
