package store

import "context"

// UpdateInfo describes the update a middleware is wrapping.
type UpdateInfo struct {
	// Store is the store name.
	Store string

	// StoreID is the store's unique identifier.
	StoreID uint64

	// Version is the version the update publishes if it succeeds.
	Version uint64

	// Listeners is the number of listeners when the update started.
	Listeners int
}

// Middleware wraps every update. next applies the mutation, publishes it
// and notifies listeners; its error is the mutation failure, if any.
type Middleware interface {
	Handle(ctx context.Context, info UpdateInfo, next func() error) error
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, info UpdateInfo, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx context.Context, info UpdateInfo, next func() error) error {
	return f(ctx, info, next)
}

// chain runs final through the middleware, first registered outermost.
func (s *Store) chain(ctx context.Context, info UpdateInfo, final func() error) error {
	next := final
	for i := len(s.middleware) - 1; i >= 0; i-- {
		mw := s.middleware[i]
		inner := next
		next = func() error {
			return mw.Handle(ctx, info, inner)
		}
	}
	return next()
}
