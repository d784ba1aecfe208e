package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drawingliar/internal/game"
)

type roomEntry struct {
	room    *game.Room
	players map[string]*game.Player
}

type lease struct {
	owner string
	until time.Time
}

// MemoryStore holds all game state in memory
type MemoryStore struct {
	mu     sync.RWMutex
	rooms  map[string]*roomEntry
	leases map[string]lease

	docs    *hub[*game.Room]
	rosters *hub[[]*game.Player]

	now func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*roomEntry),
		leases:  make(map[string]lease),
		docs:    newHub[*game.Room](),
		rosters: newHub[[]*game.Player](),
		now:     time.Now,
	}
}

// Create stores a new room unless the code is already taken
func (s *MemoryStore) Create(ctx context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return fmt.Errorf("room %s: %w", room.Code, ErrAlreadyExists)
	}

	stored := room.Clone()
	stored.Version = 1
	s.rooms[room.Code] = &roomEntry{
		room:    stored,
		players: make(map[string]*game.Player),
	}
	s.docs.publish(room.Code, stored.Clone())
	return nil
}

// Get retrieves a room by code
func (s *MemoryStore) Get(ctx context.Context, code string) (*game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rooms[code]
	if !exists {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	return entry.room.Clone(), nil
}

// Update applies fn to a copy of the room and commits it under the store lock
func (s *MemoryStore) Update(ctx context.Context, code string, fn UpdateFunc) (*game.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.rooms[code]
	if !exists {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	draft := entry.room.Clone()
	if err := fn(draft); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return entry.room.Clone(), nil
		}
		return nil, err
	}

	draft.Code = entry.room.Code
	draft.HostID = entry.room.HostID
	draft.Version = entry.room.Version + 1
	entry.room = draft

	s.docs.publish(code, draft.Clone())
	return draft.Clone(), nil
}

// AppendStroke appends a stroke if guard accepts the current document
func (s *MemoryStore) AppendStroke(ctx context.Context, code string, stroke game.Stroke, guard UpdateFunc) (game.Stroke, error) {
	return appendStroke(ctx, s, code, stroke, guard)
}

// Subscribe streams the room's snapshots, starting with the current one
func (s *MemoryStore) Subscribe(ctx context.Context, code string) (<-chan *game.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rooms[code]
	if !exists {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	return s.docs.subscribe(ctx, code, entry.room.Clone()), nil
}

// UpsertPlayer adds or replaces a roster entry
func (s *MemoryStore) UpsertPlayer(ctx context.Context, code string, player *game.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.rooms[code]
	if !exists {
		return fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	entry.players[player.ID] = player.Clone()
	s.rosters.publish(code, entry.roster())
	return nil
}

// DeletePlayer removes a roster entry
func (s *MemoryStore) DeletePlayer(ctx context.Context, code, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.rooms[code]
	if !exists {
		return fmt.Errorf("room %s: %w", code, ErrNotFound)
	}
	if _, ok := entry.players[playerID]; !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	delete(entry.players, playerID)
	s.rosters.publish(code, entry.roster())
	return nil
}

// TouchPlayer records a heartbeat for an existing player. Roster
// subscribers are not notified.
func (s *MemoryStore) TouchPlayer(ctx context.Context, code, playerID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.rooms[code]
	if !exists {
		return fmt.Errorf("room %s: %w", code, ErrNotFound)
	}
	p, ok := entry.players[playerID]
	if !ok {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	p.LastActive = at
	return nil
}

// Players returns a copy of the roster ordered by join time
func (s *MemoryStore) Players(ctx context.Context, code string) ([]*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rooms[code]
	if !exists {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	return entry.roster(), nil
}

// SubscribePlayers streams the roster after every join or departure
func (s *MemoryStore) SubscribePlayers(ctx context.Context, code string) (<-chan []*game.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rooms[code]
	if !exists {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}

	return s.rosters.subscribe(ctx, code, entry.roster()), nil
}

// AcquireLease grants or renews name to owner for ttl
func (s *MemoryStore) AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	l, held := s.leases[name]
	if held && l.owner != owner && now.Before(l.until) {
		return false, nil
	}

	s.leases[name] = lease{owner: owner, until: now.Add(ttl)}
	return true, nil
}

// Ping always succeeds for the memory store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (e *roomEntry) roster() []*game.Player {
	players := make([]*game.Player, 0, len(e.players))
	for _, p := range e.players {
		players = append(players, p.Clone())
	}
	game.SortPlayers(players)
	return players
}
