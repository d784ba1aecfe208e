package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drawingliar/internal/store"
)

// Lease is a renewable claim on a named role in the store
type Lease struct {
	store store.RoomStore
	name  string
	owner string
	ttl   time.Duration
	log   zerolog.Logger
}

// NewLease creates a lease handle; nothing is acquired until Held is called
func NewLease(st store.RoomStore, name, owner string, ttl time.Duration, log zerolog.Logger) *Lease {
	return &Lease{store: st, name: name, owner: owner, ttl: ttl, log: log}
}

// Held acquires or renews the lease and reports whether this owner holds it
func (l *Lease) Held(ctx context.Context) bool {
	ok, err := l.store.AcquireLease(ctx, l.name, l.owner, l.ttl)
	if err != nil {
		if ctx.Err() == nil {
			l.log.Warn().Err(err).Str("lease", l.name).Msg("lease check failed")
		}
		return false
	}
	return ok
}

type roomLoop struct {
	id     uint64
	cancel context.CancelFunc
}

// Runner keeps one scheduler and one presence monitor alive per active room
type Runner struct {
	machine   *Machine
	store     store.RoomStore
	scheduler *Scheduler
	presence  *PresenceMonitor
	owner     string
	leaseTTL  time.Duration
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	rooms  map[string]roomLoop
	nextID uint64
	wg     sync.WaitGroup
}

// NewRunner creates a runner; its loops stop when ctx is cancelled or Close is called
func NewRunner(ctx context.Context, m *Machine, st store.RoomStore, log zerolog.Logger) *Runner {
	rules := m.Rules()
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		machine:   m,
		store:     st,
		scheduler: NewScheduler(m, rules.SchedulerInterval, log),
		presence:  NewPresenceMonitor(m, rules.PresenceSweep, log),
		owner:     uuid.NewString(),
		leaseTTL:  3 * rules.SchedulerInterval,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		rooms:     make(map[string]roomLoop),
	}
}

// Owner identifies this process in leases
func (r *Runner) Owner() string {
	return r.owner
}

// Ensure starts the loops for code unless they are already running
func (r *Runner) Ensure(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ctx.Err() != nil {
		return
	}
	if _, running := r.rooms[code]; running {
		return
	}

	r.nextID++
	ctx, cancel := context.WithCancel(r.ctx)
	loop := roomLoop{id: r.nextID, cancel: cancel}
	r.rooms[code] = loop

	r.wg.Add(1)
	go r.run(ctx, code, loop)
}

// Running reports whether loops are active for code
func (r *Runner) Running(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[code]
	return ok
}

// Stop cancels the loops for code
func (r *Runner) Stop(code string) {
	r.mu.Lock()
	loop, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if ok {
		loop.cancel()
	}
}

// Close stops every loop and waits for them to exit
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, code string, loop roomLoop) {
	defer r.wg.Done()
	defer r.forget(code, loop.id)
	defer loop.cancel()

	lease := NewLease(r.store, "room:"+code+":clock", r.owner, r.leaseTTL, r.log)
	r.log.Debug().Str("room", code).Str("owner", r.owner).Msg("room loops started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer loop.cancel()
		if err := r.scheduler.Run(ctx, code, lease); err != nil && ctx.Err() == nil {
			r.log.Debug().Err(err).Str("room", code).Msg("scheduler stopped")
		}
	}()
	go func() {
		defer wg.Done()
		defer loop.cancel()
		if err := r.presence.Run(ctx, code, lease); err != nil && ctx.Err() == nil {
			r.log.Debug().Err(err).Str("room", code).Msg("presence monitor stopped")
		}
	}()
	wg.Wait()

	r.log.Debug().Str("room", code).Msg("room loops stopped")
}

func (r *Runner) forget(code string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if loop, ok := r.rooms[code]; ok && loop.id == id {
		delete(r.rooms, code)
	}
}
