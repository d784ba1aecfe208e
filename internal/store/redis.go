package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"drawingliar/internal/game"
)

const maxUpdateRetries = 16

// RedisStore keeps room documents in Redis so several server processes can
// share one room.
//
// Key layout:
//
//	room:{code}          room document (JSON), TTL roomTTL
//	room:{code}:players  hash playerID -> player (JSON), TTL roomTTL
//	room:{code}:doc      pub/sub channel carrying every committed document
//	room:{code}:roster   pub/sub channel signalling roster changes
//	lease:{name}         lease owner, expires after the lease TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client, roomTTL time.Duration) *RedisStore {
	if roomTTL <= 0 {
		roomTTL = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: roomTTL}
}

// OpenRedis connects to the Redis server at url and verifies the connection
func OpenRedis(ctx context.Context, url string, roomTTL time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %w", err)
	}

	s := NewRedisStore(redis.NewClient(opt), roomTTL)
	if err := s.Ping(ctx); err != nil {
		s.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return s, nil
}

func roomKey(code string) string       { return "room:" + code }
func playersKey(code string) string    { return "room:" + code + ":players" }
func docChannel(code string) string    { return "room:" + code + ":doc" }
func rosterChannel(code string) string { return "room:" + code + ":roster" }
func leaseKey(name string) string      { return "lease:" + name }

// Create stores a new room with SET NX
func (s *RedisStore) Create(ctx context.Context, room *game.Room) error {
	stored := room.Clone()
	stored.Version = 1
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("error marshaling room: %w", err)
	}

	ok, err := s.client.SetNX(ctx, roomKey(room.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("error creating room: %w", err)
	}
	if !ok {
		return fmt.Errorf("room %s: %w", room.Code, ErrAlreadyExists)
	}

	s.client.Publish(ctx, docChannel(room.Code), data)
	return nil
}

// Get retrieves a room by code
func (s *RedisStore) Get(ctx context.Context, code string) (*game.Room, error) {
	return getRoom(ctx, s.client, code)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRoom(ctx context.Context, c stringGetter, code string) (*game.Room, error) {
	data, err := c.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("room %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting room: %w", err)
	}
	return decodeRoom(data)
}

func decodeRoom(data []byte) (*game.Room, error) {
	var room game.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("error unmarshaling room: %w", err)
	}
	if room.Votes == nil {
		room.Votes = map[string]string{}
	}
	if room.Strokes == nil {
		room.Strokes = []game.Stroke{}
	}
	return &room, nil
}

// Update runs fn inside a WATCH/MULTI/EXEC transaction, retrying when another
// writer committed first. The committed document is published in the same
// transaction, so subscribers see commits in order.
func (s *RedisStore) Update(ctx context.Context, code string, fn UpdateFunc) (*game.Room, error) {
	key := roomKey(code)

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		var result *game.Room
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := getRoom(ctx, tx, code)
			if err != nil {
				return err
			}

			draft := current.Clone()
			if err := fn(draft); err != nil {
				if errors.Is(err, ErrUnchanged) {
					result = current
					return nil
				}
				return err
			}

			draft.Code = current.Code
			draft.HostID = current.HostID
			draft.Version = current.Version + 1
			data, err := json.Marshal(draft)
			if err != nil {
				return fmt.Errorf("error marshaling room: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttl)
				pipe.Expire(ctx, playersKey(code), s.ttl)
				pipe.Publish(ctx, docChannel(code), data)
				return nil
			})
			if err != nil {
				return err
			}
			result = draft
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, fmt.Errorf("room %s: %w", code, ErrConflict)
}

// AppendStroke appends a stroke if guard accepts the current document
func (s *RedisStore) AppendStroke(ctx context.Context, code string, stroke game.Stroke, guard UpdateFunc) (game.Stroke, error) {
	return appendStroke(ctx, s, code, stroke, guard)
}

// Subscribe streams committed documents. The channel subscription is
// confirmed before the initial read, so no commit falls in between; versions
// at or below the last delivered one are dropped.
func (s *RedisStore) Subscribe(ctx context.Context, code string) (<-chan *game.Room, error) {
	pubsub := s.client.Subscribe(ctx, docChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("error subscribing to room: %w", err)
	}

	room, err := s.Get(ctx, code)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscriber[*game.Room]()
	sub.push(room)

	go func() {
		defer cancel()
		last := room.Version
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				next, err := decodeRoom([]byte(msg.Payload))
				if err != nil || next.Version <= last {
					continue
				}
				last = next.Version
				sub.push(next)
			}
		}
	}()
	go sub.run(ctx, func() { pubsub.Close() })

	return sub.out, nil
}

// UpsertPlayer adds or replaces a roster entry
func (s *RedisStore) UpsertPlayer(ctx context.Context, code string, player *game.Player) error {
	if err := s.exists(ctx, code); err != nil {
		return err
	}

	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("error marshaling player: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, playersKey(code), player.ID, data)
		pipe.Expire(ctx, playersKey(code), s.ttl)
		pipe.Publish(ctx, rosterChannel(code), player.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error saving player: %w", err)
	}
	return nil
}

// DeletePlayer removes a roster entry
func (s *RedisStore) DeletePlayer(ctx context.Context, code, playerID string) error {
	removed, err := s.client.HDel(ctx, playersKey(code), playerID).Result()
	if err != nil {
		return fmt.Errorf("error deleting player: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}

	s.client.Publish(ctx, rosterChannel(code), playerID)
	return nil
}

// TouchPlayer records a heartbeat for an existing player without publishing
// to roster subscribers
func (s *RedisStore) TouchPlayer(ctx context.Context, code, playerID string, at time.Time) error {
	key := playersKey(code)

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.HGet(ctx, key, playerID).Bytes()
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("player %s: %w", playerID, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("error getting player: %w", err)
			}

			var p game.Player
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("error unmarshaling player: %w", err)
			}
			p.LastActive = at
			out, err := json.Marshal(&p)
			if err != nil {
				return fmt.Errorf("error marshaling player: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, playerID, out)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("player %s: %w", playerID, ErrConflict)
}

// Players returns the roster ordered by join time
func (s *RedisStore) Players(ctx context.Context, code string) ([]*game.Player, error) {
	if err := s.exists(ctx, code); err != nil {
		return nil, err
	}

	entries, err := s.client.HGetAll(ctx, playersKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting players: %w", err)
	}

	players := make([]*game.Player, 0, len(entries))
	for _, raw := range entries {
		var p game.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("error unmarshaling player: %w", err)
		}
		players = append(players, &p)
	}
	game.SortPlayers(players)
	return players, nil
}

// SubscribePlayers streams the full roster after every join or departure
func (s *RedisStore) SubscribePlayers(ctx context.Context, code string) (<-chan []*game.Player, error) {
	pubsub := s.client.Subscribe(ctx, rosterChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("error subscribing to roster: %w", err)
	}

	players, err := s.Players(ctx, code)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscriber[[]*game.Player]()
	sub.push(players)

	go func() {
		defer cancel()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				players, err := s.Players(ctx, code)
				if err != nil {
					continue
				}
				sub.push(players)
			}
		}
	}()
	go sub.run(ctx, func() { pubsub.Close() })

	return sub.out, nil
}

// AcquireLease grants name to owner with SET NX, or renews it if owner already holds it
func (s *RedisStore) AcquireLease(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	key := leaseKey(name)

	ok, err := s.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("error acquiring lease: %w", err)
	}
	if ok {
		return true, nil
	}

	renewed := false
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		holder, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			holder = owner
		} else if err != nil {
			return err
		}
		if holder != owner {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, owner, ttl)
			return nil
		})
		if err == nil {
			renewed = true
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error renewing lease: %w", err)
	}
	return renewed, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("error closing Redis connection: %w", err)
	}
	return nil
}

func (s *RedisStore) exists(ctx context.Context, code string) error {
	n, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("error checking room: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("room %s: %w", code, ErrNotFound)
	}
	return nil
}
