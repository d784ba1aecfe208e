package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"drawingliar/internal/game"
)

// ErrRoomEmpty stops a presence loop once nobody is left in the room
var ErrRoomEmpty = errors.New("room is empty")

// PresenceMonitor evicts players whose heartbeat went stale
type PresenceMonitor struct {
	machine  *Machine
	interval time.Duration
	log      zerolog.Logger
}

// NewPresenceMonitor creates a monitor sweeping every interval
func NewPresenceMonitor(m *Machine, interval time.Duration, log zerolog.Logger) *PresenceMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PresenceMonitor{machine: m, interval: interval, log: log}
}

// Sweep evicts stale players once and returns how many players remain
func (p *PresenceMonitor) Sweep(ctx context.Context, code string) (int, error) {
	evicted, remaining, err := p.machine.EvictStale(ctx, code)
	if len(evicted) > 0 {
		p.log.Info().Str("room", code).Strs("evicted", evicted).Int("remaining", remaining).Msg("presence sweep")
	}
	return remaining, err
}

// Run sweeps until ctx is done, the room disappears or its roster is empty
func (p *PresenceMonitor) Run(ctx context.Context, code string, lease *Lease) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !lease.Held(ctx) {
				continue
			}
			remaining, err := p.Sweep(ctx, code)
			switch {
			case errors.Is(err, game.ErrRoomNotFound):
				return err
			case err != nil:
				if ctx.Err() == nil {
					p.log.Warn().Err(err).Str("room", code).Msg("presence sweep failed")
				}
			case remaining == 0:
				return ErrRoomEmpty
			}
		}
	}
}
