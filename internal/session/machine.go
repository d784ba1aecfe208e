package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drawingliar/internal/config"
	"drawingliar/internal/game"
	"drawingliar/internal/store"
)

const createAttempts = 10

// Machine validates player intents and applies them to the room document.
//
// Every status transition happens inside a single store.Update, so a guard and
// its effect always see the same committed document.
type Machine struct {
	store    store.RoomStore
	keywords *game.Keywords
	rules    config.GameSettings
	log      zerolog.Logger
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Machine
type Option func(*Machine)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithRand replaces the random source used for keyword, liar and turn order
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) { m.rng = rng }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// NewMachine creates a state machine over st
func NewMachine(st store.RoomStore, keywords *game.Keywords, rules config.GameSettings, opts ...Option) *Machine {
	m := &Machine{
		store:    st,
		keywords: keywords,
		rules:    rules,
		log:      zerolog.Nop(),
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the game settings the machine enforces
func (m *Machine) Rules() config.GameSettings {
	return m.rules
}

// Now returns the machine's clock reading
func (m *Machine) Now() time.Time {
	return m.now()
}

// Snapshot is a room document together with its roster
type Snapshot struct {
	Room    *game.Room     `json:"room"`
	Players []*game.Player `json:"players"`
}

// Snapshot reads the room and its roster
func (m *Machine) Snapshot(ctx context.Context, code string) (*Snapshot, error) {
	room, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, m.storeError("get room", err)
	}
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	return &Snapshot{Room: room, Players: players}, nil
}

// CreateRoom creates a lobby under a fresh code and joins the host to it
func (m *Machine) CreateRoom(ctx context.Context, hostID, name string) (*game.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, game.ErrNameRequired
	}

	now := m.now()
	var room *game.Room
	for attempt := 0; attempt < createAttempts; attempt++ {
		candidate := game.NewRoom(game.GenerateRoomCode(m.rules.RoomCodeLength), hostID, now)
		err := m.store.Create(ctx, candidate)
		if errors.Is(err, store.ErrAlreadyExists) {
			m.log.Debug().Str("room", candidate.Code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, m.storeError("create room", err)
		}
		room = candidate
		break
	}
	if room == nil {
		return nil, &game.WriteError{Op: "create room", Err: store.ErrAlreadyExists}
	}

	if err := m.store.UpsertPlayer(ctx, room.Code, game.NewPlayer(hostID, name, now)); err != nil {
		return nil, m.storeError("join host", err)
	}

	m.log.Info().Str("room", room.Code).Str("host", hostID).Msg("room created")
	created, err := m.store.Get(ctx, room.Code)
	if err != nil {
		return nil, m.storeError("get room", err)
	}
	return created, nil
}

// Join adds a player to a lobby. A player already in the roster may rejoin in
// any phase, which only refreshes their name and heartbeat.
func (m *Machine) Join(ctx context.Context, code, playerID, name string) (*game.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, game.ErrNameRequired
	}
	code = game.NormalizeRoomCode(code)
	if !game.ValidRoomCode(code, m.rules.RoomCodeLength) {
		return nil, game.ErrInvalidRoomCode
	}

	room, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, m.storeError("get room", err)
	}
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	roster := game.NewRoster(players)

	now := m.now()
	if existing, ok := roster[playerID]; ok {
		existing.Name = name
		existing.LastActive = now
		if err := m.store.UpsertPlayer(ctx, code, existing); err != nil {
			return nil, m.storeError("rejoin", err)
		}
		return existing, nil
	}

	if room.Status != game.StatusLobby {
		return nil, game.ErrGameInProgress
	}
	if len(roster) >= m.rules.MaxPlayers {
		return nil, game.ErrRoomFull
	}

	player := game.NewPlayer(playerID, name, now)
	if err := m.store.UpsertPlayer(ctx, code, player); err != nil {
		return nil, m.storeError("join", err)
	}

	m.log.Info().Str("room", code).Str("player", playerID).Str("name", name).Msg("player joined")
	return player, nil
}

// Leave removes a player and reconciles the running game with their absence
func (m *Machine) Leave(ctx context.Context, code, playerID string) error {
	if err := m.store.DeletePlayer(ctx, code, playerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.ErrNotInRoom
		}
		return m.storeError("leave", err)
	}

	m.log.Info().Str("room", code).Str("player", playerID).Msg("player left")
	return m.reconcile(ctx, code, playerID)
}

// Start deals the keyword, the liar and the turn order and begins drawing
func (m *Machine) Start(ctx context.Context, code, caller string) (*game.Room, error) {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	ids := game.NewRoster(players).IDs()

	m.rngMu.Lock()
	keyword := m.keywords.Pick(m.rng)
	liarID := ""
	if len(ids) > 0 {
		liarID = ids[m.rng.IntN(len(ids))]
	}
	order := append([]string(nil), ids...)
	m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	m.rngMu.Unlock()

	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if !room.IsHost(caller) {
			return game.ErrNotHost
		}
		if room.Status != game.StatusLobby {
			return game.ErrGameInProgress
		}
		if len(ids) < m.rules.MinPlayers {
			return game.ErrNotEnoughPlayers
		}
		room.Start(keyword, liarID, order, m.now().Add(m.rules.TurnDuration))
		return nil
	})
	if err != nil {
		return nil, m.storeError("start", err)
	}

	m.log.Info().Str("room", code).Int("players", len(ids)).Msg("game started")
	return room, nil
}

// SubmitStroke appends a stroke drawn by the current drawer
func (m *Machine) SubmitStroke(ctx context.Context, code, caller string, stroke game.Stroke) (game.Stroke, error) {
	if err := game.ValidateStroke(stroke, m.rules.MaxPointsPerStroke); err != nil {
		return game.Stroke{}, err
	}
	stroke.ID = uuid.NewString()
	stroke.PlayerID = caller

	appended, err := m.store.AppendStroke(ctx, code, stroke, func(room *game.Room) error {
		if room.Status != game.StatusPlaying {
			return game.ErrWrongStatus
		}
		if room.CurrentDrawer() != caller {
			return game.ErrNotYourTurn
		}
		return nil
	})
	if err != nil {
		return game.Stroke{}, m.storeError("append stroke", err)
	}
	return appended, nil
}

// ClearCanvas empties the stroke log; the host or the current drawer may do it
func (m *Machine) ClearCanvas(ctx context.Context, code, caller string) (*game.Room, error) {
	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if room.Status != game.StatusPlaying {
			return game.ErrWrongStatus
		}
		if !room.IsHost(caller) && room.CurrentDrawer() != caller {
			return game.ErrNotYourTurn
		}
		if len(room.Strokes) == 0 {
			return store.ErrUnchanged
		}
		room.ClearStrokes()
		return nil
	})
	if err != nil {
		return nil, m.storeError("clear canvas", err)
	}
	return room, nil
}

// Tick rolls the turn over when its deadline has passed and settles a
// running vote. It reports whether the room changed.
func (m *Machine) Tick(ctx context.Context, code string) (*game.Room, bool, error) {
	room, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, false, m.storeError("get room", err)
	}
	if room.Status == game.StatusVoting {
		settled, err := m.SettleVotes(ctx, code)
		if err != nil {
			return nil, false, err
		}
		return settled, settled.Version != room.Version, nil
	}
	if !room.TurnDue(m.now()) {
		return room, false, nil
	}

	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, false, m.storeError("get players", err)
	}
	roster := game.NewRoster(players)

	advanced := false
	room, err = m.store.Update(ctx, code, func(room *game.Room) error {
		advanced = room.AdvanceTurn(m.now(), m.rules.TurnDuration, roster.Has)
		if !advanced {
			return store.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, false, m.storeError("advance turn", err)
	}
	return room, advanced, nil
}

// CastVote records voter's accusation and resolves the tally once everyone
// in the roster has voted
func (m *Machine) CastVote(ctx context.Context, code, voter, target string) (*game.Room, error) {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	roster := game.NewRoster(players)
	if !roster.Has(voter) {
		return nil, game.ErrNotInRoom
	}
	if !roster.Has(target) {
		return nil, game.ErrUnknownTarget
	}

	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if room.Status != game.StatusVoting {
			return game.ErrWrongStatus
		}
		if _, voted := room.Votes[voter]; voted {
			return game.ErrAlreadyVoted
		}
		room.Votes[voter] = target
		if game.AllVoted(room.Votes, roster) {
			room.ResolveVotes()
		}
		return nil
	})
	if err != nil {
		return nil, m.storeError("cast vote", err)
	}

	// the roster may have changed between the read above and the commit
	if room.Status == game.StatusVoting {
		if room, err = m.SettleVotes(ctx, code); err != nil {
			return nil, err
		}
	}

	if room.Status != game.StatusVoting {
		m.log.Info().Str("room", code).Str("status", string(room.Status)).Msg("votes resolved")
	}
	return room, nil
}

// ResolveVotes resolves a completed vote. Outside voting it is a no-op, so
// resolving the same vote set twice leaves the committed result untouched.
func (m *Machine) ResolveVotes(ctx context.Context, code string) (*game.Room, error) {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	roster := game.NewRoster(players)

	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if room.Status != game.StatusVoting {
			return store.ErrUnchanged
		}
		if !game.AllVoted(room.Votes, roster) {
			return game.ErrVotingOpen
		}
		room.ResolveVotes()
		return nil
	})
	if err != nil {
		return nil, m.storeError("resolve votes", err)
	}
	return room, nil
}

// SettleVotes re-checks a running vote against the current roster. Ballots
// from players who have left are dropped and the vote resolves once every
// remaining player has voted.
func (m *Machine) SettleVotes(ctx context.Context, code string) (*game.Room, error) {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, m.storeError("get players", err)
	}
	roster := game.NewRoster(players)

	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if room.Status != game.StatusVoting {
			return store.ErrUnchanged
		}
		return settle(room, roster)
	})
	if err != nil {
		return nil, m.storeError("settle votes", err)
	}
	return room, nil
}

// settle prunes and resolves room's vote against roster
func settle(room *game.Room, roster game.Roster) error {
	pruned := room.PruneVotes(roster)
	if game.AllVoted(room.Votes, roster) {
		room.ResolveVotes()
		return nil
	}
	if !pruned {
		return store.ErrUnchanged
	}
	return nil
}

// SubmitGuess resolves the liar's single guess at the keyword
func (m *Machine) SubmitGuess(ctx context.Context, code, caller, guess string) (*game.Room, error) {
	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if room.Status != game.StatusLiarGuess {
			return game.ErrWrongStatus
		}
		if caller != room.LiarID {
			return game.ErrNotLiar
		}
		room.Finish(game.ResolveGuess(guess, room.Keyword))
		return nil
	})
	if err != nil {
		return nil, m.storeError("submit guess", err)
	}

	m.log.Info().Str("room", code).Str("winner", string(room.Winner)).Str("reason", string(room.Reason)).Msg("game finished")
	return room, nil
}

// Reset returns a finished room to the lobby
func (m *Machine) Reset(ctx context.Context, code, caller string) (*game.Room, error) {
	room, err := m.store.Update(ctx, code, func(room *game.Room) error {
		if !room.IsHost(caller) {
			return game.ErrNotHost
		}
		if room.Status != game.StatusResult {
			return game.ErrWrongStatus
		}
		room.Reset()
		return nil
	})
	if err != nil {
		return nil, m.storeError("reset", err)
	}
	return room, nil
}

// Heartbeat marks a player as active now
func (m *Machine) Heartbeat(ctx context.Context, code, playerID string) error {
	if err := m.store.TouchPlayer(ctx, code, playerID, m.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return game.ErrNotInRoom
		}
		return m.storeError("heartbeat", err)
	}
	return nil
}

// EvictStale removes every player whose heartbeat is older than staleAfter
// and returns the evicted identities and the size of the remaining roster
func (m *Machine) EvictStale(ctx context.Context, code string) ([]string, int, error) {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return nil, 0, m.storeError("get players", err)
	}

	now := m.now()
	var evicted []string
	remaining := len(players)
	for _, p := range players {
		if !p.Stale(now, m.rules.StaleAfter) {
			continue
		}
		err := m.store.DeletePlayer(ctx, code, p.ID)
		if errors.Is(err, store.ErrNotFound) {
			// left on their own in the meantime
			remaining--
			continue
		}
		if err != nil {
			return evicted, remaining, m.storeError("evict player", err)
		}
		remaining--
		evicted = append(evicted, p.ID)
		m.log.Info().Str("room", code).Str("player", p.ID).Dur("idle", now.Sub(p.LastActive)).Msg("player evicted")

		if err := m.reconcile(ctx, code, p.ID); err != nil {
			return evicted, remaining, err
		}
	}
	return evicted, remaining, nil
}

// reconcile repairs in-flight game state after departed left the roster.
// turnOrder is never rewritten; the scheduler skips absent identities instead.
func (m *Machine) reconcile(ctx context.Context, code, departed string) error {
	players, err := m.store.Players(ctx, code)
	if err != nil {
		return m.storeError("get players", err)
	}
	roster := game.NewRoster(players)

	_, err = m.store.Update(ctx, code, func(room *game.Room) error {
		switch room.Status {
		case game.StatusPlaying:
			if room.CurrentDrawer() != departed {
				return store.ErrUnchanged
			}
			room.ExpireTurn(m.now())
		case game.StatusVoting:
			return settle(room, roster)
		case game.StatusLiarGuess:
			if departed != room.LiarID {
				return store.ErrUnchanged
			}
			room.Finish(game.WinnerCitizen, game.ReasonGuessFail)
		default:
			return store.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return m.storeError("reconcile", err)
	}
	return nil
}

// storeError passes guard failures through and turns everything else into
// a room-not-found validation error or a write failure
func (m *Machine) storeError(op string, err error) error {
	switch {
	case game.IsValidation(err):
		return err
	case errors.Is(err, store.ErrNotFound):
		return game.ErrRoomNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	m.log.Error().Err(err).Str("op", op).Msg("store write failed")
	return &game.WriteError{Op: op, Err: err}
}
