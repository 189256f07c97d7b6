package ai

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 60
	defaultBurst             = 5
)

// Observer receives call outcomes. metrics.Recorder satisfies it.
type Observer interface {
	ObserveAICall(op, backend string, d time.Duration, fallback bool)
}

// Guard is the only way the rest of codeq reaches a Client. Its methods
// never fail: timeouts, rate-limit waits that exceed the deadline, backend
// errors and empty replies all become stub values.
type Guard struct {
	client   Client
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer Observer
	tracer   trace.Tracer
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit caps the call rate across all callers of the guard.
func WithRateLimit(requestsPerMinute, burst int) GuardOption {
	return func(g *Guard) {
		if requestsPerMinute > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), max(burst, 1))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver reports every call to o.
func WithObserver(o Observer) GuardOption {
	return func(g *Guard) { g.observer = o }
}

// NewGuard wraps client. A nil client is replaced by the stub.
func NewGuard(client Client, opts ...GuardOption) *Guard {
	if client == nil {
		client = NewStub()
	}
	g := &Guard{
		client:  client,
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(float64(defaultRequestsPerMinute)/60.0), defaultBurst),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("github.com/sprite-ai/codeq/internal/ai"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if _, ok := client.(*Stub); ok {
		// local and free
		g.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	g.logger = g.logger.With(zap.String("backend", client.Name()))
	return g
}

// Backend names the wrapped client.
func (g *Guard) Backend() string { return g.client.Name() }

// Complete asks for a plain-text completion. op names the calling stage.
// On any failure the reply is stub text, recognizable with IsStub.
func (g *Guard) Complete(ctx context.Context, op, prompt, snippet string) string {
	ctx, span, done := g.begin(ctx, op)
	defer span.End()

	reply, err := g.call(ctx, func(ctx context.Context) (string, error) {
		return g.client.Complete(ctx, prompt, snippet)
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		g.fail(span, op, err)
		done(true)
		return stubReply("stubbed AI due to "+g.client.Name()+" error", prompt, snippet)
	}

	stub := IsStub(reply)
	done(stub)
	return reply
}

// Structured asks for a JSON object shaped like hint.
func (g *Guard) Structured(ctx context.Context, op, system, user string, hint map[string]any) Structured {
	ctx, span, done := g.begin(ctx, op)
	defer span.End()

	reply, err := g.call(ctx, func(ctx context.Context) (string, error) {
		return g.client.CompleteJSON(ctx, system, user, hint)
	})
	if err != nil {
		g.fail(span, op, err)
		done(true)
		return stubbed(hint)
	}

	out := parseStructured(reply, hint)
	if out.ParseError {
		g.logger.Warn("malformed structured reply", zap.String("op", op), zap.Int("bytes", len(reply)))
		span.SetAttributes(attribute.Bool("ai.parse_error", true))
	}
	done(!out.Usable())
	return out
}

// call runs fn under the rate limiter and timeout. The caller going away
// does not cut an in-flight call short; only the timeout does, even for a
// client that ignores its context.
func (g *Guard) call(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, err := fn(ctx)
		ch <- reply{text, err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Guard) begin(ctx context.Context, op string) (context.Context, trace.Span, func(fallback bool)) {
	ctx, span := g.tracer.Start(ctx, "ai."+op, trace.WithAttributes(
		attribute.String("ai.backend", g.client.Name()),
	))
	start := time.Now()
	return ctx, span, func(fallback bool) {
		span.SetAttributes(attribute.Bool("ai.fallback", fallback))
		if g.observer != nil {
			g.observer.ObserveAICall(op, g.client.Name(), time.Since(start), fallback)
		}
	}
}

func (g *Guard) fail(span trace.Span, op string, err error) {
	if err == nil {
		g.logger.Warn("empty collaborator reply", zap.String("op", op))
		return
	}
	g.logger.Warn("collaborator call failed, using stub", zap.String("op", op), zap.Error(err))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
