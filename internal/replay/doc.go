// Package replay runs a scenario against a store and reports what every
// binding rendered.
//
// Each declared binding becomes a component: a scope owner under a root
// that provides the scenario's store. Invalidated components are queued
// and re-rendered after the step that invalidated them, in the order they
// were invalidated. Wait steps advance a simulated clock, so deferred
// bindings adopt instantly and deterministically unless Realtime is set.
package replay
