package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/vstore/pkg/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

var testInfo = store.UpdateInfo{Store: "cart", StoreID: 7, Version: 3, Listeners: 2}

func TestOpenTelemetryMiddleware_RecordsSpan(t *testing.T) {
	sr, tp := newRecorder(t)
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(context.Context, store.UpdateInfo) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	if err := mw.Handle(context.Background(), testInfo, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "vstore.update cart" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if v, ok := attrValue(span.Attributes(), "vstore.version"); !ok || v.AsInt64() != 3 {
		t.Errorf("vstore.version = %v", v)
	}
	if v, ok := attrValue(span.Attributes(), "vstore.listeners"); !ok || v.AsInt64() != 2 {
		t.Errorf("vstore.listeners = %v", v)
	}
	if v, ok := attrValue(span.Attributes(), "test.attr"); !ok || v.AsString() != "ok" {
		t.Errorf("test.attr = %v", v)
	}
}

func TestOpenTelemetryMiddleware_ErrorPropagates(t *testing.T) {
	sr, tp := newRecorder(t)
	wantErr := errors.New("boom")

	err := OpenTelemetry(WithTracerProvider(tp)).Handle(context.Background(), testInfo, func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected error %v, got %v", wantErr, err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	sr, tp := newRecorder(t)
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithUpdateFilter(func(info store.UpdateInfo) bool { return info.Store != "cart" }),
	)

	nextCalled := false
	if err := mw.Handle(context.Background(), testInfo, func() error {
		nextCalled = true
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if n := len(sr.Ended()); n != 0 {
		t.Errorf("ended spans = %d, want 0", n)
	}
}

func TestOpenTelemetryMiddleware_GlobalProvider(t *testing.T) {
	mw := OpenTelemetry(WithTracerName("custom"))
	if err := mw.Handle(context.Background(), testInfo, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
