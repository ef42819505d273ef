// Package instrument provides a context-scoped span/event API used by the
// catalog and instance engine to record operation timing and outcomes into
// the _events table, without hard-wiring either package to a concrete
// tracing backend.
package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	parentSpanIDKey
	instrumenterKey
)

// Instrumenter is the tracing API every store component calls through.
type Instrumenter interface {
	// StartSpan begins a span named name (conventionally "<component>.<operation>",
	// e.g. "catalog.create_schema") and returns the context child spans should
	// use as their parent.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any)
}

// Span is a single timed operation; End must be called exactly once.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
	TraceID() string
	SpanID() string
}

// Event is a row in the _events table.
type Event struct {
	TraceID      string         `json:"trace_id"`
	SpanID       string         `json:"span_id"`
	ParentSpanID *string        `json:"parent_span_id"`
	EventType    string         `json:"event_type"`
	Name         string         `json:"name"`
	Entity       *string        `json:"entity"`
	RecordID     *string        `json:"record_id"`
	DurationMs   *float64       `json:"duration_ms"`
	Status       *string        `json:"status"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// WithTraceID sets the trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

func withParentSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, parentSpanIDKey, spanID)
}

func getParentSpanID(ctx context.Context) string {
	if v, ok := ctx.Value(parentSpanIDKey).(string); ok {
		return v
	}
	return ""
}

// WithInstrumenter sets the instrumenter used by StartSpan/EmitBusinessEvent
// calls made against ctx or any context derived from it.
func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, instrumenterKey, inst)
}

// GetInstrumenter returns ctx's instrumenter, or a NoopInstrumenter if none
// was set.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if v, ok := ctx.Value(instrumenterKey).(Instrumenter); ok {
		return v
	}
	return &NoopInstrumenter{}
}

// BufferedInstrumenter enqueues every span and event onto an EventBuffer for
// batched insertion.
type BufferedInstrumenter struct {
	buffer *EventBuffer
}

// NewInstrumenter constructs a BufferedInstrumenter backed by buffer.
func NewInstrumenter(buffer *EventBuffer) *BufferedInstrumenter {
	return &BufferedInstrumenter{buffer: buffer}
}

func (i *BufferedInstrumenter) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	traceID := GetTraceID(ctx)
	parentSpanID := getParentSpanID(ctx)
	spanID := uuid.New().String()

	span := &spanImpl{
		traceID:      traceID,
		spanID:       spanID,
		parentSpanID: parentSpanID,
		name:         name,
		startTime:    time.Now(),
		metadata:     make(map[string]any),
		buffer:       i.buffer,
	}

	ctx = withParentSpanID(ctx, spanID)
	return ctx, span
}

func (i *BufferedInstrumenter) EmitBusinessEvent(ctx context.Context, action, entity, recordID string, metadata map[string]any) {
	traceID := GetTraceID(ctx)
	spanID := uuid.New().String()
	parentSpanID := getParentSpanID(ctx)

	event := Event{
		TraceID:   traceID,
		SpanID:    spanID,
		EventType: "business",
		Name:      action,
		Metadata:  metadata,
	}
	if parentSpanID != "" {
		event.ParentSpanID = &parentSpanID
	}
	if entity != "" {
		event.Entity = &entity
	}
	if recordID != "" {
		event.RecordID = &recordID
	}
	i.buffer.Enqueue(event)
}

type spanImpl struct {
	traceID      string
	spanID       string
	parentSpanID string
	name         string
	entity       *string
	recordID     *string
	status       *string
	startTime    time.Time
	metadata     map[string]any
	buffer       *EventBuffer
	mu           sync.Mutex
	ended        bool
}

func (s *spanImpl) TraceID() string { return s.traceID }
func (s *spanImpl) SpanID() string  { return s.spanID }

func (s *spanImpl) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = &status
}

func (s *spanImpl) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metadata == nil {
		s.metadata = make(map[string]any)
	}
	s.metadata[key] = value
}

func (s *spanImpl) SetEntity(entity, recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entity = &entity
	if recordID != "" {
		s.recordID = &recordID
	}
}

func (s *spanImpl) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	durationMs := float64(time.Since(s.startTime).Microseconds()) / 1000.0
	event := Event{
		TraceID:    s.traceID,
		SpanID:     s.spanID,
		EventType:  "system",
		Name:       s.name,
		Entity:     s.entity,
		RecordID:   s.recordID,
		DurationMs: &durationMs,
		Status:     s.status,
		Metadata:   s.metadata,
	}
	if s.parentSpanID != "" {
		event.ParentSpanID = &s.parentSpanID
	}
	s.buffer.Enqueue(event)
}
