// Package otel implements ki.Observer using OpenTelemetry tracing.
package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sundew-dev/go-ki/ki"
)

// Tracer is a ki.Observer that opens one span per scope and one child
// span per forked child, using a trace.Tracer obtained from an
// OpenTelemetry TracerProvider.
type Tracer struct {
	tracer trace.Tracer

	mu        sync.Mutex
	scopeSpan trace.Span
	children  map[int64]trace.Span
}

// New creates a Tracer observer. tp is typically the global provider
// returned by otel.GetTracerProvider(), or a test provider in unit
// tests.
func New(tp trace.TracerProvider, instrumentationName string) *Tracer {
	return &Tracer{
		tracer:   tp.Tracer(instrumentationName),
		children: make(map[int64]trace.Span),
	}
}

// ScopeOpened implements ki.Observer.
func (t *Tracer) ScopeOpened(ctx context.Context) {
	_, span := t.tracer.Start(ctx, "ki.scope")
	t.mu.Lock()
	t.scopeSpan = span
	t.mu.Unlock()
}

// ScopeClosing implements ki.Observer.
func (t *Tracer) ScopeClosing(_ context.Context, cause error) {
	t.mu.Lock()
	span := t.scopeSpan
	t.mu.Unlock()
	if span == nil || cause == nil {
		return
	}
	span.AddEvent("closing", trace.WithAttributes(
		attribute.String("cause", cause.Error()),
	))
}

// ScopeClosed implements ki.Observer.
func (t *Tracer) ScopeClosed(_ context.Context, joinWait time.Duration) {
	t.mu.Lock()
	span := t.scopeSpan
	t.scopeSpan = nil
	t.mu.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int64("join_wait_ms", joinWait.Milliseconds()))
	span.End()
}

// ChildAdmitted implements ki.Observer.
func (t *Tracer) ChildAdmitted(ctx context.Context, id int64) {
	_, span := t.tracer.Start(ctx, "ki.child", trace.WithAttributes(
		attribute.Int64("child.id", id),
	))
	t.mu.Lock()
	t.children[id] = span
	t.mu.Unlock()
}

// ChildStarted implements ki.Observer.
func (t *Tracer) ChildStarted(_ context.Context, id int64) {
	t.mu.Lock()
	span := t.children[id]
	t.mu.Unlock()
	if span == nil {
		return
	}
	span.AddEvent("started")
}

// ChildFinished implements ki.Observer.
func (t *Tracer) ChildFinished(_ context.Context, id int64, dur time.Duration, err error) {
	t.mu.Lock()
	span := t.children[id]
	delete(t.children, id)
	t.mu.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int64("duration_ms", dur.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ ki.Observer = (*Tracer)(nil)
