// Package session holds the observable login state shared with views.
package session

import "sync"

// Observable is the read side of a Store.
type Observable[T any] interface {
	// Get returns the current value and whether it has been set.
	Get() (T, bool)
	// Subscribe calls fn with the current observation, then once per Set.
	// The returned func removes the subscription.
	Subscribe(fn func(value T, ok bool)) (unsubscribe func())
}

// Store is a single observable slot. The zero value is unset and ready to use.
type Store[T any] struct {
	// notify orders deliveries: Set fan-outs and initial Subscribe
	// observations never interleave, so each subscriber's last observation
	// is the current value.
	notify sync.Mutex

	mu     sync.Mutex
	value  T
	set    bool
	nextID int
	subs   map[int]func(T, bool)
}

var _ Observable[string] = (*Store[string])(nil)

// Get returns the current value and whether it has been set.
func (s *Store[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// Set stores v and notifies subscribers. A subscriber may call Get or its own
// unsubscribe func, but must not call Set or Subscribe on the same Store.
func (s *Store[T]) Set(v T) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	s.value = v
	s.set = true
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v, true)
	}
}

// Subscribe delivers the current observation synchronously before returning.
func (s *Store[T]) Subscribe(fn func(value T, ok bool)) func() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[int]func(T, bool))
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	value, ok := s.value, s.set
	s.mu.Unlock()

	fn(value, ok)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[T]) snapshot() []func(T, bool) {
	out := make([]func(T, bool), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
