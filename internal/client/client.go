package client

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"termtrivia/internal/protocol"
)

// Client is the terminal player: it joins a server, prints questions and
// results, and turns stdin lines into answers.
type Client struct {
	ServerAddr string
	Username   string

	conn    net.Conn
	encoder *gob.Encoder
	decoder *gob.Decoder

	mu      sync.Mutex
	pending int // question id awaiting an answer, -1 when none
}

func New(serverAddr, username string) *Client {
	protocol.Init()

	return &Client{
		ServerAddr: serverAddr,
		Username:   username,
		pending:    -1,
	}
}

// Run connects, joins the round and blocks until the server closes the
// connection or the round summary arrives.
func (c *Client) Run() error {
	conn, err := net.Dial("tcp", c.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer conn.Close()

	c.conn = conn
	c.encoder = gob.NewEncoder(conn)
	c.decoder = gob.NewDecoder(conn)
	fmt.Printf("Connected to server at %s\n", c.ServerAddr)

	if err := c.send(protocol.Message{
		Type:    protocol.JoinMsg,
		Payload: protocol.JoinPayload{Username: c.Username},
	}); err != nil {
		return err
	}

	go c.inputLoop()
	return c.readLoop()
}

func (c *Client) readLoop() error {
	for {
		var msg protocol.Message
		if err := c.decoder.Decode(&msg); err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}

		switch msg.Type {
		case protocol.WelcomeMsg:
			p := msg.Payload.(protocol.WelcomePayload)
			fmt.Printf("Welcome, %s! Best score: %d, games played: %d\n",
				p.Username, p.BestScore, p.GamesPlayed)
		case protocol.QuestionMsg:
			p := msg.Payload.(protocol.QuestionPayload)
			c.setPending(p.QuestionID)
			fmt.Printf("\nQuestion: %s\n", p.Prompt)
			for i, opt := range p.Options {
				fmt.Printf("  %d) %s\n", i+1, opt)
			}
			fmt.Printf("Answer (1-%d, %ds limit): ", len(p.Options), p.TimeLimit)
		case protocol.ResultMsg:
			p := msg.Payload.(protocol.ResultPayload)
			c.setPending(-1)
			if p.Correct {
				fmt.Printf("Correct! Score: %d\n", p.Score)
			} else {
				fmt.Printf("Wrong, the answer was %d. Score: %d\n", p.Answer+1, p.Score)
			}
		case protocol.SummaryMsg:
			p := msg.Payload.(protocol.SummaryPayload)
			fmt.Println("\n--- ROUND SUMMARY ---")
			for _, r := range p.Rankings {
				fmt.Printf("%d. %s: %d\n", r.Rank, r.Username, r.Score)
			}
			return nil
		case protocol.ScoreReport:
			p := msg.Payload.(protocol.ScorePayload)
			fmt.Printf("Current score: %d\n", p.Score)
		case protocol.HighscoreMsg:
			p := msg.Payload.(protocol.HighscorePayload)
			fmt.Println("--- HIGHSCORES ---")
			for _, e := range p.Entries {
				fmt.Printf("%s: %d\n", e.Username, e.BestScore)
			}
		case protocol.PlayerList:
			p := msg.Payload.(protocol.PlayersPayload)
			fmt.Printf("Players in round: %s\n", strings.Join(p.Usernames, ", "))
		case protocol.ErrorMsg:
			p := msg.Payload.(protocol.ErrorPayload)
			fmt.Printf("Server: %s\n", p.Message)
		}
	}
}

// inputLoop turns stdin lines into protocol messages. A plain number
// answers the pending question; /score, /top, /who and /quit are commands.
func (c *Client) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg protocol.Message
		switch line {
		case "/score":
			msg = protocol.Message{Type: protocol.GetScoreMsg}
		case "/top":
			msg = protocol.Message{Type: protocol.GetHighscoreMsg}
		case "/who":
			msg = protocol.Message{Type: protocol.GetPlayersMsg}
		case "/quit":
			c.send(protocol.Message{Type: protocol.QuitMsg})
			return
		default:
			option, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("Enter an answer number, or /score, /top, /who, /quit")
				continue
			}
			id := c.getPending()
			if id < 0 {
				fmt.Println("No question is pending")
				continue
			}
			msg = protocol.Message{
				Type:    protocol.AnswerMsg,
				Payload: protocol.AnswerPayload{QuestionID: id, Option: option - 1},
			}
		}

		if err := c.send(msg); err != nil {
			fmt.Printf("Failed to send message: %v\n", err)
			return
		}
	}
}

func (c *Client) send(msg protocol.Message) error {
	return c.encoder.Encode(msg)
}

func (c *Client) setPending(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = id
}

func (c *Client) getPending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
