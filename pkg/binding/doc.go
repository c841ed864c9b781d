// Package binding connects one consumer to a store under one of three
// delivery protocols.
//
// All bindings share the same machinery: they capture the store's current
// snapshot when created, register exactly one listener, record the paths
// the consumer reads in each render through a track.Tracker, and on every
// publication ask track.PathsDiffer whether those paths changed. Close
// always removes the listener.
//
// Immediate calls its render callback synchronously when a read path
// changed. It is the lowest latency protocol and gives no guarantee across
// concurrent render passes.
//
// Synchronized follows the pull-based external store contract: Subscribe,
// Snapshot and ServerSnapshot. Subscribers run on every publication and can
// ask Changed whether a read path moved. Snapshot always views the current
// value and hands back the same view until the next publication, so every
// render pass of one tick observes the same state.
//
// Deferred delays adoption of a relevant change by a minimum duration.
// While the delay runs, Read reports Pending alongside the view of the last
// adopted snapshot, and further publications are coalesced into the single
// adoption that happens when the timer fires.
package binding
