// Package middleware provides store update middleware.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus metrics middleware
//   - Logging middleware
//
// Middleware is installed when the store is created; the first one given
// is the outermost:
//
//	kit, err := vstore.Create(state,
//	    store.WithName("cart"),
//	    store.WithMiddleware(
//	        middleware.OpenTelemetry(),
//	        middleware.Prometheus(middleware.WithNamespace("shop")),
//	    ),
//	)
//
// # OpenTelemetry Middleware
//
// Every update becomes a span carrying the store name, the version being
// published and the listener count. Failed mutations set an error status.
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("cart"),
//	    middleware.WithUpdateFilter(func(info store.UpdateInfo) bool {
//	        return info.Store != "scratch"
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects:
//   - vstore_updates_total: Updates by store and status
//   - vstore_update_duration_seconds: Update duration histogram
//   - vstore_listeners: Listeners per store
//   - vstore_version: Last published version
//
// Then expose metrics:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
