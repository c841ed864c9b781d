// Package store holds the current version of a shared state tree and the
// listeners interested in it.
//
// Update applies a draft.Mutation, publishes the result as the next
// version and then calls every listener, in registration order, before it
// returns:
//
//	s, _ := store.New(map[string]any{"text": "a", "num": 1})
//	s.AddListener(store.NewListener(func() {
//	    fmt.Println("version", s.Current().Version)
//	}))
//	_ = s.Update(func(d *draft.Draft) error {
//	    return d.Increment(tree.Path{"num"}, 1)
//	})
//
// Updates are serialized: one mutation is applied and fanned out at a time.
// A listener must not call Update synchronously from Notify; doing so
// returns ErrReentrantUpdate. Schedule the update instead.
//
// A failed mutation publishes nothing and notifies nobody; its error is
// returned to the caller of Update.
package store
