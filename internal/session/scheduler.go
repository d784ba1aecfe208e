package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"drawingliar/internal/game"
)

// Scheduler is the authoritative turn clock of one room.
// It only acts while its lease is held, so exactly one replica advances a room.
type Scheduler struct {
	machine  *Machine
	interval time.Duration
	log      zerolog.Logger
}

// NewScheduler creates a scheduler polling every interval
func NewScheduler(m *Machine, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{machine: m, interval: interval, log: log}
}

// Tick performs one scheduler step for code
func (s *Scheduler) Tick(ctx context.Context, code string) error {
	room, advanced, err := s.machine.Tick(ctx, code)
	if err != nil {
		return err
	}
	if !advanced {
		return nil
	}

	if room.Status == game.StatusPlaying {
		s.log.Debug().Str("room", code).Int("turn", room.CurrentTurnIndex).Str("drawer", room.CurrentDrawer()).Msg("turn advanced")
	} else {
		s.log.Info().Str("room", code).Str("status", string(room.Status)).Msg("room advanced")
	}
	return nil
}

// Run ticks until ctx is done or the room disappears
func (s *Scheduler) Run(ctx context.Context, code string, lease *Lease) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !lease.Held(ctx) {
				continue
			}
			err := s.Tick(ctx, code)
			if errors.Is(err, game.ErrRoomNotFound) {
				return err
			}
			if err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("room", code).Msg("scheduler tick failed")
			}
		}
	}
}
