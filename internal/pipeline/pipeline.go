// Package pipeline runs the full analysis of a snippet: language
// resolution, validation with one correction attempt, the local metric
// stages, and the optional collaborator summary and refinement. It also
// compares two versions of a snippet.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sprite-ai/codeq/internal/ai"
	"github.com/sprite-ai/codeq/internal/analysis"
	"github.com/sprite-ai/codeq/internal/metrics"
	"github.com/sprite-ai/codeq/internal/model"
)

const defaultPromptLimit = 6000

// Analyzer holds the dependencies of the pipeline. It has no mutable state
// and is safe for concurrent use.
type Analyzer struct {
	guard       *ai.Guard
	logger      *zap.Logger
	recorder    *metrics.Recorder
	tracer      trace.Tracer
	promptLimit int
}

type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder reports outcomes to r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// WithPromptLimit bounds the code prefix sent to the collaborator.
func WithPromptLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.promptLimit = n
		}
	}
}

// New returns an Analyzer that reaches the collaborator through guard.
// A nil guard means the stub.
func New(guard *ai.Guard, opts ...Option) *Analyzer {
	if guard == nil {
		guard = ai.NewGuard(nil)
	}
	a := &Analyzer{
		guard:       guard,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer("github.com/sprite-ai/codeq/internal/pipeline"),
		promptLimit: defaultPromptLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Guard exposes the collaborator guard for the assist operations.
func (a *Analyzer) Guard() *ai.Guard { return a.guard }

// Analyze runs the pipeline over one submission. It never fails: invalid
// input yields an error result with neutral metrics.
func (a *Analyzer) Analyze(ctx context.Context, sub model.Submission) *model.Result {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "pipeline.Analyze", trace.WithAttributes(
		attribute.Int("code.bytes", len(sub.Code)),
		attribute.String("code.language_override", sub.Language),
	))
	defer span.End()

	res := a.analyze(ctx, sub)

	outcome := metrics.OutcomeOK
	switch {
	case res.Failed():
		outcome = metrics.OutcomeFailed
	case res.WasCorrected:
		outcome = metrics.OutcomeCorrected
	}
	span.SetAttributes(
		attribute.String("analysis.language", string(res.Language)),
		attribute.String("analysis.outcome", outcome),
	)
	a.recorder.ObserveAnalysis(outcome, string(res.Language), time.Since(start))
	a.logger.Debug("analysis finished",
		zap.String("file", sub.FileName),
		zap.String("language", string(res.Language)),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

func (a *Analyzer) analyze(ctx context.Context, sub model.Submission) *model.Result {
	if strings.TrimSpace(sub.Code) == "" {
		det := model.Detection{Language: model.LangGeneric}
		if strings.TrimSpace(sub.Language) != "" {
			det = analysis.Override(sub.Language)
		}
		v := analysis.Validate(det.Language, sub.Code)
		return model.ErrorResult(model.ErrEmptyInput, v.Error, det, sub.Code)
	}

	det := a.resolveLanguage(ctx, sub)

	code, corrected, failure := a.validate(ctx, det, sub.Code)
	if failure != nil {
		return failure
	}

	rep := analysis.Evaluate(det.Language, code)
	res := &model.Result{
		Detection:       det,
		Code:            code,
		WasCorrected:    corrected,
		Complexity:      rep.Complexity,
		Metrics:         rep.Metrics,
		Findings:        rep.Findings,
		SecuritySummary: rep.SecuritySummary,
		Risk:            rep.Risk,
		Structure:       rep.Structure,
	}

	a.enrich(ctx, res)
	return res
}

// resolveLanguage applies the override, or the heuristic guess with
// escalation when it is too uncertain, then the self-heal rule.
func (a *Analyzer) resolveLanguage(ctx context.Context, sub model.Submission) model.Detection {
	if strings.TrimSpace(sub.Language) != "" {
		return analysis.SelfHeal(analysis.Override(sub.Language), sub.Code)
	}

	det := analysis.Identify(sub.Code)
	if analysis.NeedsEscalation(det) {
		reply := a.guard.Complete(ctx, "detect_language", escalationPrompt(sub.Code, a.promptLimit), "")
		if ai.IsStub(reply) {
			det = model.Detection{Language: model.LangGeneric, Escalated: true}
		} else {
			det = analysis.ParseLanguageAnswer(reply)
		}
		a.logger.Debug("language escalated",
			zap.String("language", string(det.Language)),
			zap.Float64("confidence", det.Confidence),
		)
	}
	return analysis.SelfHeal(det, sub.Code)
}

// validate is the correction state machine: validate, and on failure ask
// for one fix and validate that exactly once more. It returns the code to
// analyze, or a terminal error result.
func (a *Analyzer) validate(ctx context.Context, det model.Detection, code string) (string, bool, *model.Result) {
	first := analysis.Validate(det.Language, code)
	if first.Valid {
		return code, false, nil
	}

	candidate := a.correct(ctx, det.Language, code)
	second := analysis.Validate(det.Language, candidate)
	if !second.Valid {
		a.logger.Debug("code invalid after correction",
			zap.String("language", string(det.Language)),
			zap.String("first_error", first.Error),
			zap.String("error", second.Error),
		)
		return "", false, model.ErrorResult(model.ErrSyntax, second.Error, det, code)
	}
	return candidate, true, nil
}

// correct asks for a fixed version of code. A stub or empty reply keeps
// the original.
func (a *Analyzer) correct(ctx context.Context, lang model.Language, code string) string {
	reply := a.guard.Complete(ctx, "correct", correctionPrompt(lang, code, a.promptLimit), "")
	if ai.IsStub(reply) {
		return code
	}
	if fixed := stripFence(reply); fixed != "" {
		return fixed
	}
	return code
}

// enrich fills the collaborator-backed fields. The summary and the
// refinement are independent and run concurrently.
func (a *Analyzer) enrich(ctx context.Context, res *model.Result) {
	var (
		summary    string
		refinement *model.Refinement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary = a.summarize(gctx, res)
		return nil
	})
	if res.Language.GrammarAware() {
		g.Go(func() error {
			refinement = a.refine(gctx, res.Code, res.Complexity)
			return nil
		})
	}
	_ = g.Wait()

	res.AISummary = summary
	res.Refinement = refinement
}

func (a *Analyzer) summarize(ctx context.Context, res *model.Result) string {
	reply := strings.TrimSpace(a.guard.Complete(ctx, "summary", summaryPrompt(res.Code), ""))
	if ai.IsStub(reply) || reply == "" {
		return localSummary(res)
	}
	return reply
}

// refine asks the collaborator to name the algorithm and check the
// complexity labels. Unusable replies are discarded.
func (a *Analyzer) refine(ctx context.Context, code string, cx model.Complexity) *model.Refinement {
	hint := refineHint(cx)
	out := a.guard.Structured(ctx, "refine", refineSystem, refinePrompt(code, cx, a.promptLimit), hint)
	if !out.Usable() {
		return nil
	}
	return &model.Refinement{
		Algorithm:       out.String("algorithm", "Unknown"),
		TimeComplexity:  out.String("time_complexity", string(cx.Time)),
		SpaceComplexity: out.String("space_complexity", string(cx.Space)),
		Recommendation:  out.String("recommendation", ""),
		Explanation:     ai.Truncate(out.String("explanation", ""), explanationLimit),
	}
}
