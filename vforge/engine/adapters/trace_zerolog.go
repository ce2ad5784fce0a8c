package engineadapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	engineports "github.com/voiceforge/voiceforge/vforge/engine/ports"
)

type spanIDKey struct{}

// ZerologTracer renders spans and events as structured log lines. It is the
// default tracer; swap in an OTLP adapter behind the same port if a real
// collector is available.
type ZerologTracer struct {
	logger zerolog.Logger
}

// NewZerologTracer builds a tracer over the given logger.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan logs the span start and returns a closer that logs duration and
// outcome. Child spans inherit the parent span id through the context.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	spanID := uuid.NewString()[:8]
	parentID, _ := ctx.Value(spanIDKey{}).(string)
	ctx = context.WithValue(ctx, spanIDKey{}, spanID)
	start := time.Now()

	evt := t.logger.Debug().Str("span", name).Str("span_id", spanID)
	if parentID != "" {
		evt = evt.Str("parent_id", parentID)
	}
	evt.Fields(attrs).Msg("span start")

	return ctx, func(err error) {
		evt := t.logger.Debug()
		if err != nil {
			evt = t.logger.Warn().Err(err)
		}
		evt.Str("span", name).
			Str("span_id", spanID).
			Dur("elapsed", time.Since(start)).
			Msg("span end")
	}
}

// Event logs a point-in-time event inside the current span, if any.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	evt := t.logger.Debug().Str("event", name)
	if spanID, ok := ctx.Value(spanIDKey{}).(string); ok {
		evt = evt.Str("span_id", spanID)
	}
	evt.Fields(attrs).Msg("trace event")
}

var _ engineports.Tracer = (*ZerologTracer)(nil)

// NopTracer drops everything. Used when tracing is disabled.
type NopTracer struct{}

func (NopTracer) StartSpan(ctx context.Context, _ string, _ map[string]any) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

func (NopTracer) Event(context.Context, string, map[string]any) {}

var _ engineports.Tracer = NopTracer{}
