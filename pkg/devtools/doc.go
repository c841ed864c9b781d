// Package devtools serves an HTTP inspector for a store.
//
//	GET  /healthz     liveness
//	GET  /state       current version and state
//	GET  /state/*     the value at a JSON pointer, e.g. /state/todos/0
//	POST /patch       apply an RFC 6902 patch, or an RFC 7386 merge patch
//	                  when Content-Type is application/merge-patch+json
//	GET  /watch       websocket stream of the values at ?path=... queries
//	GET  /metrics     Prometheus metrics
//
// Each /watch client is an Immediate binding over its paths. The first
// frame carries the values; later frames carry a merge patch of the values
// and are only sent when a watched path changed.
package devtools
