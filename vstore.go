// Package vstore provides the public API for scoped state stores.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/vstore"
//
// Usage:
//
//	kit, err := vstore.Create(map[string]any{"text": "a", "num": 1})
//	kit.Provider(rootOwner)
//
//	// inside a component render, between StartRender and EndRender:
//	view, update, err := kit.UseImmediate(owner)
//	label := view.Get("text").AsString()
//	_ = update(func(d *draft.Draft) error { return d.Set(tree.Path{"text"}, "b") })
//
// A consumer re-renders only when a path it read in its last render
// changed.
package vstore

import (
	"errors"
	"time"

	"github.com/vango-dev/vstore/pkg/binding"
	"github.com/vango-dev/vstore/pkg/scope"
	"github.com/vango-dev/vstore/pkg/store"
	"github.com/vango-dev/vstore/pkg/track"
)

var (
	// ErrNoProvider is returned by the Use functions when no ancestor of
	// the owner provides the kit's store.
	ErrNoProvider = errors.New("vstore: no provider for store in scope")

	// ErrNotRendering is returned by the Use functions outside
	// StartRender/EndRender.
	ErrNotRendering = errors.New("vstore: hook used outside a render")
)

// Kit is a store together with the functions that provide it to a scope
// and bind consumers to it. A Kit lives as long as the caller holds it.
type Kit struct {
	store *store.Store
	key   providerKey
}

// providerKey is unique per Kit, so kits never shadow each other.
type providerKey struct{ id uint64 }

// Create builds a store from init and returns its kit.
func Create(init any, opts ...store.Option) (*Kit, error) {
	s, err := store.New(init, opts...)
	if err != nil {
		return nil, err
	}
	return &Kit{store: s, key: providerKey{id: s.ID()}}, nil
}

// MustCreate is like Create but panics on error.
func MustCreate(init any, opts ...store.Option) *Kit {
	k, err := Create(init, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Store returns the kit's store.
func (k *Kit) Store() *store.Store {
	return k.store
}

// Provider makes the store visible to owner and its descendants.
// Providing again on every render keeps the same store.
func (k *Kit) Provider(owner *scope.Owner) {
	owner.SetValue(k.key, k.store)
}

// Lookup returns the store provided to owner's ancestry.
func (k *Kit) Lookup(owner *scope.Owner) (*store.Store, error) {
	if owner == nil {
		return nil, ErrNoProvider
	}
	v, ok := owner.LookupValue(k.key)
	if !ok {
		return nil, ErrNoProvider
	}
	return v.(*store.Store), nil
}

// use resolves the store and the binding in the owner's current hook
// slot, creating the binding on the first render. The binding is closed
// when owner is disposed.
func use[B binding.Binding](k *Kit, owner *scope.Owner, kind scope.HookType, build func(*store.Store) B) (B, error) {
	var zero B
	s, err := k.Lookup(owner)
	if err != nil {
		return zero, err
	}
	if !owner.Rendering() {
		return zero, ErrNotRendering
	}
	if slot := owner.UseHookSlot(kind); slot != nil {
		return slot.(B), nil
	}
	b := build(s)
	owner.SetHookSlot(kind, b)
	owner.OnCleanup(b.Close)
	return b, nil
}

// UseImmediate binds owner to the store with the Immediate protocol. The
// returned view records reads until EndRender; a later change to any of
// them invalidates owner synchronously.
func (k *Kit) UseImmediate(owner *scope.Owner) (*track.View, binding.UpdateFunc, error) {
	b, err := use(k, owner, scope.HookImmediate, func(s *store.Store) *binding.Immediate {
		return binding.NewImmediate(s, owner.Invalidate)
	})
	if err != nil {
		return nil, nil, err
	}
	v, update := b.Begin()
	owner.OnCommit(b.Commit)
	return v, update, nil
}

// UseSynchronized binds owner to the store with the Synchronized protocol.
// Every render reads the current value; owner is invalidated when a
// publication changes one of the paths it read.
func (k *Kit) UseSynchronized(owner *scope.Owner) (*track.View, binding.UpdateFunc, error) {
	b, err := use(k, owner, scope.HookSynchronized, func(s *store.Store) *binding.Synchronized {
		b := binding.NewSynchronized(s)
		b.Subscribe(func() {
			if b.Changed() {
				owner.Invalidate()
			}
		})
		return b
	})
	if err != nil {
		return nil, nil, err
	}
	v, update := b.Begin()
	owner.OnCommit(b.Commit)
	return v, update, nil
}

// UseDeferred binds owner to the store with the Deferred protocol. A
// change to a read path first invalidates owner with a pending result,
// and again once the change is adopted after delay.
func (k *Kit) UseDeferred(owner *scope.Owner, delay time.Duration, opts ...binding.DeferredOption) (binding.Result, binding.UpdateFunc, error) {
	b, err := use(k, owner, scope.HookDeferred, func(s *store.Store) *binding.Deferred {
		opts = append([]binding.DeferredOption{binding.WithDelay(delay)}, opts...)
		return binding.NewDeferred(s, owner.Invalidate, opts...)
	})
	if err != nil {
		return binding.Result{}, nil, err
	}
	r, update := b.Begin()
	owner.OnCommit(b.Commit)
	return r, update, nil
}
