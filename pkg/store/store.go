package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/tree"
)

// ErrReentrantUpdate is returned when a listener calls Update on the same
// goroutine while the store is notifying.
var ErrReentrantUpdate = errors.New("store: update called from a listener during notification")

// Snapshot is one published version of the state.
type Snapshot struct {
	Root    *tree.Node
	Version uint64
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the store name used in logs, metrics and traces.
func WithName(name string) Option {
	return func(s *Store) {
		s.name = name
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithMiddleware appends update middleware. The first one registered is
// the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) {
		s.middleware = append(s.middleware, mw...)
	}
}

// Store owns the current state version and the listener set.
type Store struct {
	id         uint64
	name       string
	logger     *slog.Logger
	middleware []Middleware

	// init is the version 0 value.
	init *tree.Node

	// updateMu serializes Update calls.
	updateMu sync.Mutex

	current   Snapshot
	currentMu sync.RWMutex

	listeners   []Listener
	listenersMu sync.RWMutex

	// notifying is the goroutine running the fan-out, 0 when idle.
	notifying atomic.Uint64
}

// New creates a store whose initial value is init converted with tree.From.
func New(init any, opts ...Option) (*Store, error) {
	root, err := tree.From(init)
	if err != nil {
		return nil, fmt.Errorf("store: initial state: %w", err)
	}
	s := &Store{
		id:   NextID(),
		init: root,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = fmt.Sprintf("store-%d", s.id)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("store", s.name)
	s.current = Snapshot{Root: root}
	return s, nil
}

// ID returns the unique identifier of the store.
func (s *Store) ID() uint64 { return s.id }

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Logger returns the store logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Initial returns the value the store was created with.
func (s *Store) Initial() *tree.Node { return s.init }

// Current returns the latest published version.
func (s *Store) Current() Snapshot {
	s.currentMu.RLock()
	defer s.currentMu.RUnlock()
	return s.current
}

// Update applies m and publishes the result. See UpdateContext.
func (s *Store) Update(m draft.Mutation) error {
	return s.UpdateContext(context.Background(), m)
}

// UpdateContext applies m to the current value, publishes the result as
// the next version and synchronously notifies every listener before
// returning. ctx is handed to the middleware chain.
//
// If m fails the error is returned, nothing is published and no listener
// is called.
func (s *Store) UpdateContext(ctx context.Context, m draft.Mutation) error {
	if gid := s.notifying.Load(); gid != 0 && gid == goroutineID() {
		return ErrReentrantUpdate
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	info := UpdateInfo{
		Store:     s.name,
		StoreID:   s.id,
		Version:   s.Current().Version + 1,
		Listeners: s.ListenerCount(),
	}
	return s.chain(ctx, info, func() error {
		return s.apply(m)
	})
}

func (s *Store) apply(m draft.Mutation) error {
	cur := s.Current()
	res, err := draft.Produce(cur.Root, m)
	if err != nil {
		s.logger.Debug("mutation failed", "version", cur.Version, "error", err)
		return err
	}

	next := Snapshot{Root: res.Root, Version: cur.Version + 1}
	s.currentMu.Lock()
	s.current = next
	s.currentMu.Unlock()

	s.logger.Debug("published",
		"version", next.Version,
		"writes", len(res.Writes),
		"listeners", s.ListenerCount(),
	)

	s.notify()
	return nil
}

// notify calls every listener in registration order. The listener slice is
// copied first so listeners may add or remove listeners.
func (s *Store) notify() {
	s.listenersMu.RLock()
	subs := make([]Listener, len(s.listeners))
	copy(subs, s.listeners)
	s.listenersMu.RUnlock()

	s.notifying.Store(goroutineID())
	defer s.notifying.Store(0)

	for _, l := range subs {
		l.Notify()
	}
}

// AddListener registers l. Adding a listener whose ID is already present
// has no effect.
func (s *Store) AddListener(l Listener) {
	if l == nil {
		return
	}

	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	lid := l.ID()
	for _, existing := range s.listeners {
		if existing.ID() == lid {
			return
		}
	}
	s.listeners = append(s.listeners, l)
}

// RemoveListener deregisters l. Removing an absent listener is a no-op.
// The order of the remaining listeners is kept.
func (s *Store) RemoveListener(l Listener) {
	if l == nil {
		return
	}

	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	lid := l.ID()
	for i, existing := range s.listeners {
		if existing.ID() == lid {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (s *Store) ListenerCount() int {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return len(s.listeners)
}
