// Package patch turns JSON Patch (RFC 6902) and JSON Merge Patch
// (RFC 7386) documents into store mutations.
//
// Documents are parsed with github.com/evanphx/json-patch, then each
// operation is applied through the draft, so the nodes a patch does not
// touch stay shared with the previous version and bindings that did not
// read them are not notified.
package patch
