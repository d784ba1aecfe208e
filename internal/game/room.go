package game

import (
	"math"
	"time"
)

// Status represents the current phase of a room
type Status string

const (
	StatusLobby     Status = "lobby"
	StatusPlaying   Status = "playing"
	StatusVoting    Status = "voting"
	StatusLiarGuess Status = "liar_guess"
	StatusResult    Status = "result"
)

// Winner is the side that won a finished game
type Winner string

const (
	WinnerLiar    Winner = "liar"
	WinnerCitizen Winner = "citizen"
)

// Reason explains how a game ended
type Reason string

const (
	ReasonVoteFail     Reason = "vote_fail"
	ReasonGuessSuccess Reason = "guess_success"
	ReasonGuessFail    Reason = "guess_fail"
)

// Room is the shared document of one game session.
//
// A Room value is a snapshot: stores hand out copies and all mutation happens
// on a private copy inside an atomic store update.
type Room struct {
	Code             string            `json:"code"`
	HostID           string            `json:"hostId"`
	Status           Status            `json:"status"`
	Keyword          string            `json:"keyword"`
	LiarID           string            `json:"liarId"`
	Strokes          []Stroke          `json:"strokes"`
	TurnOrder        []string          `json:"turnOrder"`
	CurrentTurnIndex int               `json:"currentTurnIndex"`
	TurnEndTime      int64             `json:"turnEndTime"` // unix millis, 0 when no turn is running
	Votes            map[string]string `json:"votes"`
	Winner           Winner            `json:"winner,omitempty"`
	Reason           Reason            `json:"reason,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`

	Version       int64 `json:"version"`
	NextStrokeSeq int64 `json:"nextStrokeSeq"`
}

// NewRoom creates a room in the lobby state
func NewRoom(code, hostID string, now time.Time) *Room {
	return &Room{
		Code:      code,
		HostID:    hostID,
		Status:    StatusLobby,
		Strokes:   []Stroke{},
		Votes:     map[string]string{},
		CreatedAt: now,
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Strokes = make([]Stroke, len(r.Strokes))
	for i, s := range r.Strokes {
		c.Strokes[i] = s.Clone()
	}
	if r.TurnOrder != nil {
		c.TurnOrder = append([]string(nil), r.TurnOrder...)
	}
	c.Votes = make(map[string]string, len(r.Votes))
	for k, v := range r.Votes {
		c.Votes[k] = v
	}
	return &c
}

// IsHost reports whether playerID created the room
func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// CurrentDrawer returns the identity whose turn it is, or "" outside playing
func (r *Room) CurrentDrawer() string {
	if r.Status != StatusPlaying {
		return ""
	}
	if r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.TurnOrder) {
		return ""
	}
	return r.TurnOrder[r.CurrentTurnIndex]
}

// SecondsLeft returns the whole seconds remaining in the current turn, rounded up
func (r *Room) SecondsLeft(now time.Time) int {
	if r.Status != StatusPlaying || r.TurnEndTime == 0 {
		return 0
	}
	diff := float64(r.TurnEndTime-now.UnixMilli()) / 1000
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff))
}

// Start moves a lobby room into the drawing phase
func (r *Room) Start(keyword, liarID string, turnOrder []string, turnEnd time.Time) {
	r.Status = StatusPlaying
	r.Keyword = keyword
	r.LiarID = liarID
	r.TurnOrder = append([]string(nil), turnOrder...)
	r.CurrentTurnIndex = 0
	r.TurnEndTime = turnEnd.UnixMilli()
	r.Strokes = []Stroke{}
	r.Votes = map[string]string{}
	r.Winner = ""
	r.Reason = ""
}

// BeginVoting ends the drawing phase
func (r *Room) BeginVoting() {
	r.Status = StatusVoting
	r.Votes = map[string]string{}
	r.TurnEndTime = 0
}

// Finish moves the room into the result state
func (r *Room) Finish(winner Winner, reason Reason) {
	r.Status = StatusResult
	r.Winner = winner
	r.Reason = reason
	r.TurnEndTime = 0
}

// Reset returns a finished room to the lobby
func (r *Room) Reset() {
	r.Status = StatusLobby
	r.Keyword = ""
	r.LiarID = ""
	r.Strokes = []Stroke{}
	r.TurnOrder = nil
	r.CurrentTurnIndex = 0
	r.TurnEndTime = 0
	r.Votes = map[string]string{}
	r.Winner = ""
	r.Reason = ""
}

// ClearStrokes empties the canvas
func (r *Room) ClearStrokes() {
	r.Strokes = []Stroke{}
}

// AppendStroke assigns the next sequence number to s and appends it
func (r *Room) AppendStroke(s Stroke) Stroke {
	s.Seq = r.NextStrokeSeq
	r.NextStrokeSeq++
	r.Strokes = append(r.Strokes, s)
	return s
}
