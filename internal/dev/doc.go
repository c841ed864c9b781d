// Package dev reloads a store from a state file while it changes on disk.
//
// A StateWatcher watches one YAML or JSON file. After each debounced write
// it parses the file, computes the merge patch between the store's current
// value and the file, and publishes that patch as one update. Unchanged
// keys keep their nodes, so only bindings reading a changed key are
// notified.
package dev
