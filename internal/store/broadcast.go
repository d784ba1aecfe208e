package store

import (
	"context"
	"sync"
)

// hub fans out values to every subscriber of a key.
//
// Each subscriber owns an unbounded FIFO, so publishing never blocks and a
// slow reader never loses an update; it only falls behind.
type hub[T any] struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber[T]]struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{
		subs: make(map[string]map[*subscriber[T]]struct{}),
	}
}

// subscribe registers a subscriber that first receives initial.
// The returned channel is closed when ctx is done.
func (h *hub[T]) subscribe(ctx context.Context, key string, initial T) <-chan T {
	s := newSubscriber[T]()
	s.push(initial)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*subscriber[T]]struct{})
	}
	h.subs[key][s] = struct{}{}
	h.mu.Unlock()

	go s.run(ctx, func() { h.remove(key, s) })
	return s.out
}

func (h *hub[T]) remove(key string, s *subscriber[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[key], s)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// publish queues v for every subscriber of key
func (h *hub[T]) publish(key string, v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[key] {
		s.push(v)
	}
}

// count returns the number of live subscribers of key
func (h *hub[T]) count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs[key])
}

type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	out   chan T
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[T]) next() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if len(s.queue) == 0 {
		return zero, false
	}
	v := s.queue[0]
	s.queue[0] = zero
	s.queue = s.queue[1:]
	return v, true
}

func (s *subscriber[T]) run(ctx context.Context, done func()) {
	defer close(s.out)
	defer done()

	for {
		v, ok := s.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}
		select {
		case s.out <- v:
		case <-ctx.Done():
			return
		}
	}
}
