package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"drawingliar/internal/game"
	"drawingliar/internal/testhelpers"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func players() []*game.Player {
	return []*game.Player{
		game.NewPlayer("a", "Alice", t0),
		game.NewPlayer("b", "Bob", t0.Add(time.Second)),
		game.NewPlayer("c", "Carol", t0.Add(2*time.Second)),
	}
}

// view builds a three-player room seen by viewer; mutate moves it into a phase
func view(viewer string, mutate func(r *game.Room)) RoomView {
	r := game.NewRoom("AB12", "a", t0)
	if mutate != nil {
		mutate(r)
	}
	return RoomView{Room: r, Players: players(), PlayerID: viewer, MaxPlayers: 8, Now: t0}
}

func playing(r *game.Room) {
	r.Start("사과", "c", []string{"a", "b", "c"}, t0.Add(30*time.Second))
}

func TestRoomView(t *testing.T) {
	v := view("c", playing)
	assert.True(t, v.IsLiar())
	assert.False(t, v.IsHost())
	assert.False(t, v.IsDrawer())
	assert.Equal(t, "3 / 8", v.Capacity())

	v = view("a", playing)
	assert.True(t, v.IsHost())
	assert.True(t, v.IsDrawer())
	assert.False(t, v.IsLiar())

	lobby := view("a", func(r *game.Room) { r.LiarID = "a" })
	assert.False(t, lobby.IsLiar(), "nobody is the liar in the lobby")
}

func TestPlayerList(t *testing.T) {
	renderer := testhelpers.NewTemplateRenderer(t)

	renderer.Render(PlayerList(view("b", playing))).
		AssertValid().
		AssertHasElementWithID("player-list").
		AssertContains("3 / 8").
		AssertElementCount("li", 3).
		AssertMatches(`<li>Alice\s*<small class="tag">host</small>\s*<small class="tag">drawing</small>\s*</li>`).
		AssertMatches(`<li class="me">Bob\s*</li>`).
		AssertElementCount("small", 2)

	v := view("a", nil)
	v.Players = append(v.Players, game.NewPlayer("d", "<i>Eve</i>", t0))
	renderer.Render(PlayerList(v)).
		AssertContains("&lt;i&gt;Eve&lt;/i&gt;").
		AssertNotContains("drawing")
}

func TestStatus(t *testing.T) {
	renderer := testhelpers.NewTemplateRenderer(t)

	t.Run("lobby", func(t *testing.T) {
		renderer.Render(Status(view("a", nil))).
			AssertValid().
			AssertHasDatastarAttribute("phase", "lobby").
			AssertHasElementWithID("start-button").
			AssertHasDatastarAttribute("on-click", "@post(&#39;/room/AB12/start&#39;)")

		renderer.Render(Status(view("b", nil))).
			AssertNotContains("start-button").
			AssertContains("The host will start the game.")
	})

	t.Run("playing citizen drawer", func(t *testing.T) {
		renderer.Render(Status(view("a", playing))).
			AssertValid().
			AssertHasDatastarAttribute("phase", "playing").
			AssertContains(`<strong class="keyword">사과</strong>`).
			AssertContains("Your turn to draw").
			AssertContains(`<span data-text="$secondsLeft">30</span>`).
			AssertHasDatastarAttribute("on-click", "@post(&#39;/room/AB12/clear&#39;)")
	})

	t.Run("playing liar", func(t *testing.T) {
		renderer.Render(Status(view("c", playing))).
			AssertContains("You are the Liar.").
			AssertNotContains("사과").
			AssertContains("Alice is drawing").
			AssertNotContains("/clear")
	})

	t.Run("voting", func(t *testing.T) {
		voting := func(r *game.Room) { playing(r); r.BeginVoting() }

		renderer.Render(Status(view("b", voting))).
			AssertValid().
			AssertElementCount("button", 2).
			AssertHasDatastarAttribute("on-click", "$target = &#39;a&#39;; @post(&#39;/room/AB12/vote&#39;)").
			AssertContains("$target = &#39;c&#39;").
			AssertNotContains("$target = &#39;b&#39;")

		renderer.Render(Status(view("b", func(r *game.Room) {
			voting(r)
			r.Votes["b"] = "c"
		}))).
			AssertContains("Vote recorded. Waiting for others (1 / 3).").
			AssertNotContains("<button")
	})

	t.Run("liar guess", func(t *testing.T) {
		guessing := func(r *game.Room) { playing(r); r.Status = game.StatusLiarGuess }

		renderer.Render(Status(view("c", guessing))).
			AssertValid().
			AssertHasElementWithID("guess").
			AssertContains("data-bind-guess").
			AssertHasDatastarAttribute("on-click", "@post(&#39;/room/AB12/guess&#39;)")

		renderer.Render(Status(view("a", guessing))).
			AssertNotContains(`id="guess"`).
			AssertContains("Waiting for Carol to guess the keyword.")
	})

	t.Run("result", func(t *testing.T) {
		tests := []struct {
			winner game.Winner
			reason game.Reason
			want   []string
		}{
			{game.WinnerLiar, game.ReasonVoteFail, []string{"The Liar wins!", "The vote missed the Liar."}},
			{game.WinnerLiar, game.ReasonGuessSuccess, []string{"The Liar wins!", "The Liar guessed the keyword."}},
			{game.WinnerCitizen, game.ReasonGuessFail, []string{"Citizens win!", "The Liar failed to guess the keyword."}},
		}

		for _, tt := range tests {
			t.Run(string(tt.reason), func(t *testing.T) {
				out := renderer.Render(Status(view("a", func(r *game.Room) {
					playing(r)
					r.Finish(tt.winner, tt.reason)
				}))).
					AssertValid().
					AssertContains(`<strong class="keyword">사과</strong>`).
					AssertContains("the Liar was Carol.").
					AssertHasDatastarAttribute("on-click", "@post(&#39;/room/AB12/reset&#39;)")
				for _, s := range tt.want {
					out.AssertContains(s)
				}
			})
		}

		renderer.Render(Status(view("b", func(r *game.Room) {
			playing(r)
			r.Finish(game.WinnerCitizen, game.ReasonGuessFail)
		}))).
			AssertNotContains("/reset")
	})
}
