package store

import (
	"context"
	"errors"
	"time"

	"drawingliar/internal/game"
)

var (
	// ErrNotFound is returned for an unknown room or player
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by Create when the code is taken
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnchanged may be returned from an update function to abort without committing
	ErrUnchanged = errors.New("unchanged")
	// ErrConflict is returned when an update kept losing the compare-and-set race
	ErrConflict = errors.New("too many concurrent updates")
)

// UpdateFunc mutates a private copy of the latest room document
type UpdateFunc func(room *game.Room) error

// RoomStore is the shared document store: one subscribable room document per
// code plus a roster of player records.
//
// Update is the only room write path and is atomic: fn sees the latest
// committed document and its result is committed only if nothing else was
// committed in between.
//
// The roster stream carries membership changes only. TouchPlayer updates
// lastActive without notifying SubscribePlayers; readers that need fresh
// heartbeats call Players.
type RoomStore interface {
	Create(ctx context.Context, room *game.Room) error
	Get(ctx context.Context, code string) (*game.Room, error)
	Update(ctx context.Context, code string, fn UpdateFunc) (*game.Room, error)
	AppendStroke(ctx context.Context, code string, stroke game.Stroke, guard UpdateFunc) (game.Stroke, error)
	Subscribe(ctx context.Context, code string) (<-chan *game.Room, error)

	UpsertPlayer(ctx context.Context, code string, player *game.Player) error
	DeletePlayer(ctx context.Context, code, playerID string) error
	TouchPlayer(ctx context.Context, code, playerID string, at time.Time) error
	Players(ctx context.Context, code string) ([]*game.Player, error)
	SubscribePlayers(ctx context.Context, code string) (<-chan []*game.Player, error)

	AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ RoomStore = (*MemoryStore)(nil)
	_ RoomStore = (*RedisStore)(nil)
)

// appendStroke implements AppendStroke on top of Update for both backends
func appendStroke(ctx context.Context, s RoomStore, code string, stroke game.Stroke, guard UpdateFunc) (game.Stroke, error) {
	var appended game.Stroke
	_, err := s.Update(ctx, code, func(room *game.Room) error {
		if guard != nil {
			if err := guard(room); err != nil {
				return err
			}
		}
		appended = room.AppendStroke(stroke)
		return nil
	})
	if err != nil {
		return game.Stroke{}, err
	}
	return appended, nil
}
