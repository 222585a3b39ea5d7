package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/logger"
)

// ConsumerHook observes and optionally rewrites messages around handler
// execution. BeforeHandle may swap the context, message and payload the
// handler sees; a non-nil error rejects the message without running the
// handler and routes it through the failure path (OnError, DLQ, commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, msg kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, msg kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, msg kafka.Message, data []byte, err error)
}

// NoopHook passes every message through untouched.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, msg kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, msg, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, msg kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, msg kafka.Message, data []byte, err error) {}

// LoggingHook emits structured diagnostics for consumed messages: it stamps
// the handling start time and trace id on the context, warns when a single
// message takes longer than the slow threshold, and logs every handler error
// with the message coordinates so an operator can find and replay it.
type LoggingHook struct {
	l    *logger.Logger
	slow time.Duration
}

// NewLoggingHook creates a logging hook. A non-positive slow threshold
// defaults to one second.
func NewLoggingHook(l *logger.Logger, slow time.Duration) *LoggingHook {
	if slow <= 0 {
		slow = time.Second
	}
	return &LoggingHook{l: l, slow: slow}
}

func (h *LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	ctx = WithStartTime(ctx, time.Now())
	if id := ExtractTraceID(km); id != "" {
		ctx = WithTraceID(ctx, id)
	}
	return ctx, km, data, nil
}

func (h *LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.l == nil || err != nil {
		// failures reach OnError with full coordinates
		return
	}
	start, ok := ctx.Value(CtxStartTime).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > h.slow {
		h.l.Warn("slow message handling",
			logger.String("topic", topic),
			logger.Int("partition", km.Partition),
			logger.Duration("took", elapsed),
		)
	}
}

func (h *LoggingHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.l == nil {
		return
	}
	fields := []logger.Field{
		logger.String("topic", topic),
		logger.Int("partition", km.Partition),
		logger.Int64("offset", km.Offset),
		logger.Error(err),
	}
	if id, ok := ctx.Value(CtxTraceID).(string); ok && id != "" {
		fields = append(fields, logger.String("trace_id", id))
	}
	h.l.Error("message handling failed", fields...)
}

// HookError classifies a hook rejection. Code is a stable machine-readable
// tag such as "ERR_VALIDATION" or "ERR_PANIC"; Err carries the cause.
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// HookChain runs several hooks as one. Before hooks run in registration
// order, each seeing the previous hook's rewrites; after hooks unwind in
// reverse. One rejection stops the chain and every hook hears about it.
// A panicking hook never reaches the consumer loop.
type HookChain struct {
	hooks []ConsumerHook
}

// NewHookChain composes hooks, dropping nil entries.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
	c := &HookChain{hooks: make([]ConsumerHook, 0, len(hooks))}
	for _, h := range hooks {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
	return c
}

func (c *HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	for _, h := range c.hooks {
		rctx, rkm, rdata, err := runBefore(h, ctx, topic, km, data)
		if err != nil {
			c.OnError(ctx, topic, km, data, err)
			return ctx, km, data, err
		}
		ctx, km, data = rctx, rkm, rdata
	}
	return ctx, km, data, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		h := c.hooks[i]
		guard(func() { h.AfterHandle(ctx, topic, km, data, err) })
	}
}

func (c *HookChain) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for _, h := range c.hooks {
		h := h
		guard(func() { h.OnError(ctx, topic, km, data, err) })
	}
}

// runBefore isolates one BeforeHandle call; a panic rejects the message
// instead of killing the worker.
func runBefore(h ConsumerHook, ctx context.Context, topic string, km kafka.Message, data []byte) (rctx context.Context, rkm kafka.Message, rdata []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			rctx, rkm, rdata = ctx, km, data
			err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("hook panic: %v", r)}
		}
	}()
	return h.BeforeHandle(ctx, topic, km, data)
}

// guard contains panics from the observe-only hook phases.
func guard(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

type ctxKey string

const (
	// CtxStartTime carries the time.Time at which handling began.
	CtxStartTime ctxKey = "kafka_hook_start_time"
	// CtxTraceID carries the correlation id found in the message headers.
	CtxTraceID ctxKey = "kafka_hook_trace_id"
)

// WithStartTime stamps the handling start time on the context.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, CtxStartTime, t)
}

// WithTraceID stamps a correlation id on the context; empty ids are ignored.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, CtxTraceID, traceID)
	}
	return ctx
}

// ExtractTraceID reads the trace_id header, if any.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key != "trace_id" || len(h.Value) == 0 {
			continue
		}
		return string(h.Value)
	}
	return ""
}
