// Package vtest provides testing helpers for stores and bindings.
//
// The vtest package reduces boilerplate when testing consumers by providing
// a manual clock for deferred bindings, a render recorder and state
// assertions.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    s := vtest.NewStore(t, map[string]any{"num": 1})
//	    renders := vtest.NewRecorder()
//	    b := binding.NewImmediate(s, renders.Func("counter"))
//	    b.Render(func(v *track.View, _ binding.UpdateFunc) { v.Get("num").AsInt() })
//
//	    vtest.MustUpdate(t, s, func(d *draft.Draft) error {
//	        return d.Increment(tree.Path{"num"}, 1)
//	    })
//	    vtest.ExpectRenders(t, renders, "counter", 1)
//	    vtest.ExpectValue(t, s, "$.num", 2)
//	}
//
// # Manual Clock
//
// Deferred bindings take a binding.Clock. A FakeClock only fires callbacks
// when the test advances it:
//
//	clock := vtest.NewFakeClock()
//	b := binding.NewDeferred(s, render, binding.WithDelay(time.Second), binding.WithClock(clock))
//	// ... publish a change ...
//	clock.Advance(time.Second)
package vtest
