package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func playingRoom(order ...string) *Room {
	room := NewRoom("AB12", order[0], t0)
	room.Start("사과", order[len(order)-1], order, t0.Add(15*time.Second))
	return room
}

func TestNewRoom(t *testing.T) {
	room := NewRoom("AB12", "host", t0)

	assert.Equal(t, "AB12", room.Code)
	assert.Equal(t, "host", room.HostID)
	assert.Equal(t, StatusLobby, room.Status)
	assert.Empty(t, room.Keyword)
	assert.Empty(t, room.LiarID)
	assert.NotNil(t, room.Strokes)
	assert.Empty(t, room.Strokes)
	assert.NotNil(t, room.Votes)
	assert.Equal(t, t0, room.CreatedAt)
}

func TestRoom_Clone(t *testing.T) {
	room := playingRoom("a", "b", "c")
	room.AppendStroke(Stroke{Color: "#000", LineWidth: 2, Points: []Point{{X: 0.1, Y: 0.1}}})
	room.Votes["a"] = "b"

	c := room.Clone()
	c.Strokes[0].Points[0].X = 0.9
	c.TurnOrder[0] = "z"
	c.Votes["a"] = "c"

	assert.Equal(t, 0.1, room.Strokes[0].Points[0].X)
	assert.Equal(t, "a", room.TurnOrder[0])
	assert.Equal(t, "b", room.Votes["a"])

	var nilRoom *Room
	assert.Nil(t, nilRoom.Clone())
}

func TestRoom_Start(t *testing.T) {
	room := NewRoom("AB12", "a", t0)
	room.AppendStroke(Stroke{Color: "#000", LineWidth: 1, Points: []Point{{}}})

	end := t0.Add(15 * time.Second)
	room.Start("기린", "b", []string{"c", "a", "b"}, end)

	assert.Equal(t, StatusPlaying, room.Status)
	assert.Equal(t, "기린", room.Keyword)
	assert.Equal(t, "b", room.LiarID)
	assert.Equal(t, []string{"c", "a", "b"}, room.TurnOrder)
	assert.Equal(t, 0, room.CurrentTurnIndex)
	assert.Equal(t, end.UnixMilli(), room.TurnEndTime)
	assert.Empty(t, room.Strokes, "strokes are cleared on start")
	assert.Equal(t, "c", room.CurrentDrawer())
}

func TestRoom_SecondsLeft(t *testing.T) {
	room := playingRoom("a", "b", "c")

	assert.Equal(t, 15, room.SecondsLeft(t0))
	assert.Equal(t, 15, room.SecondsLeft(t0.Add(100*time.Millisecond)), "rounds up")
	assert.Equal(t, 1, room.SecondsLeft(t0.Add(14900*time.Millisecond)))
	assert.Equal(t, 0, room.SecondsLeft(t0.Add(20*time.Second)))

	room.BeginVoting()
	assert.Equal(t, 0, room.SecondsLeft(t0))
}

func TestRoom_CurrentDrawer(t *testing.T) {
	room := NewRoom("AB12", "a", t0)
	assert.Empty(t, room.CurrentDrawer(), "no drawer in lobby")

	room = playingRoom("a", "b")
	room.CurrentTurnIndex = 5
	assert.Empty(t, room.CurrentDrawer(), "out of range index")
}

func TestRoom_Reset(t *testing.T) {
	room := playingRoom("a", "b", "c")
	room.AppendStroke(Stroke{Color: "#000", LineWidth: 1, Points: []Point{{}}})
	room.BeginVoting()
	room.Votes["a"] = "b"
	room.Finish(WinnerLiar, ReasonVoteFail)

	room.Reset()

	assert.Equal(t, StatusLobby, room.Status)
	assert.Empty(t, room.Keyword)
	assert.Empty(t, room.LiarID)
	assert.Empty(t, room.Strokes)
	assert.Empty(t, room.Votes)
	assert.Empty(t, room.TurnOrder)
	assert.Empty(t, room.Winner)
	assert.Empty(t, room.Reason)
	assert.Zero(t, room.TurnEndTime)
	assert.Equal(t, "AB12", room.Code)
	assert.Equal(t, "a", room.HostID)
}

func TestRoom_AppendStroke(t *testing.T) {
	room := playingRoom("a", "b", "c")
	s := Stroke{ID: "x", Color: "#000", LineWidth: 2, Points: []Point{{X: 0.5, Y: 0.5}}}

	first := room.AppendStroke(s)
	second := room.AppendStroke(s)

	require.Len(t, room.Strokes, 2, "identical strokes are both kept")
	assert.Equal(t, int64(0), first.Seq)
	assert.Equal(t, int64(1), second.Seq)
	assert.Equal(t, int64(2), room.NextStrokeSeq)

	room.ClearStrokes()
	assert.Empty(t, room.Strokes)
	third := room.AppendStroke(s)
	assert.Equal(t, int64(2), third.Seq, "sequence keeps growing across clears")
}
