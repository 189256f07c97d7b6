package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sprite-ai/codeq/internal/diff"
	"github.com/sprite-ai/codeq/internal/metrics"
	"github.com/sprite-ai/codeq/internal/model"
)

// Compare analyzes both versions concurrently with the same language
// handling and decides which one is better. The raw line diff is filled in
// even when the comparison fails.
func (a *Analyzer) Compare(ctx context.Context, codeA, codeB, language string) *model.Comparison {
	ctx, span := a.tracer.Start(ctx, "pipeline.Compare")
	defer span.End()

	cmp := &model.Comparison{Diff: diff.Lines(codeA, codeB)}

	var ra, rb *model.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ra = a.Analyze(gctx, model.Submission{Code: codeA, Language: language})
		return nil
	})
	g.Go(func() error {
		rb = a.Analyze(gctx, model.Submission{Code: codeB, Language: language})
		return nil
	})
	_ = g.Wait()

	if ra.Failed() {
		cmp.FailedSides = append(cmp.FailedSides, model.VersionA)
	}
	if rb.Failed() {
		cmp.FailedSides = append(cmp.FailedSides, model.VersionB)
	}
	if len(cmp.FailedSides) > 0 {
		cmp.Error = model.ErrCompilation
		cmp.Message = fmt.Sprintf("Code is invalid even after correction for versions: %s.", joinVersions(cmp.FailedSides))
		span.SetAttributes(attribute.String("compare.outcome", metrics.OutcomeFailed))
		a.recorder.ObserveComparison(metrics.OutcomeFailed)
		return cmp
	}

	cmp.VersionA, cmp.VersionB = ra, rb
	cmp.BetterVersion = pickBetter(ra, rb)
	cmp.Notes = notes(ra, rb, cmp.BetterVersion)
	cmp.Metrics = metricsTable(ra, rb)

	span.SetAttributes(
		attribute.String("compare.outcome", metrics.OutcomeOK),
		attribute.String("compare.better", string(cmp.BetterVersion)),
	)
	a.recorder.ObserveComparison(metrics.OutcomeOK)
	return cmp
}

// pickBetter applies the tie-break chain: risk score, then cyclomatic
// complexity, then Big-O rank, lower winning each time; A on a full tie.
func pickBetter(a, b *model.Result) model.Version {
	if a.Risk.Score != b.Risk.Score {
		return lowerWins(a.Risk.Score, b.Risk.Score)
	}
	if a.Metrics.CyclomaticComplexity != b.Metrics.CyclomaticComplexity {
		return lowerWins(a.Metrics.CyclomaticComplexity, b.Metrics.CyclomaticComplexity)
	}
	if ra, rb := a.Complexity.Time.Rank(), b.Complexity.Time.Rank(); ra != rb {
		return lowerWins(ra, rb)
	}
	return model.VersionA
}

func lowerWins(a, b int) model.Version {
	if a < b {
		return model.VersionA
	}
	return model.VersionB
}

func notes(a, b *model.Result, better model.Version) []string {
	return []string{
		note("Big‑O", string(a.Complexity.Time), string(b.Complexity.Time),
			a.Complexity.Time.Rank(), b.Complexity.Time.Rank(), better),
		note("Cyclomatic complexity",
			fmt.Sprint(a.Metrics.CyclomaticComplexity), fmt.Sprint(b.Metrics.CyclomaticComplexity),
			a.Metrics.CyclomaticComplexity, b.Metrics.CyclomaticComplexity, better),
		note("Risk score",
			fmt.Sprint(a.Risk.Score), fmt.Sprint(b.Risk.Score),
			a.Risk.Score, b.Risk.Score, better),
	}
}

// note describes one metric where a lower value is better. The labels are
// printed and the ordinals decide the direction; different labels of equal
// ordinal get no direction.
func note(name, aLabel, bLabel string, aOrd, bOrd int, better model.Version) string {
	if aLabel == bLabel {
		return fmt.Sprintf("%s: no change (%s).", name, aLabel)
	}
	if aOrd == bOrd {
		return fmt.Sprintf("%s: %s → %s (better: %s).", name, aLabel, bLabel, better)
	}

	direction, judgment := "increased", "worse"
	if bOrd < aOrd {
		direction, judgment = "decreased", "good"
	}
	return fmt.Sprintf("%s: %s → %s (%s, %s; better: %s).", name, aLabel, bLabel, direction, judgment, better)
}

func metricsTable(a, b *model.Result) *model.MetricsTable {
	return &model.MetricsTable{
		A: metricsRow(a),
		B: metricsRow(b),
		Delta: model.MetricsDelta{
			CyclomaticComplexity: b.Metrics.CyclomaticComplexity - a.Metrics.CyclomaticComplexity,
			RiskScore:            b.Risk.Score - a.Risk.Score,
		},
	}
}

func metricsRow(r *model.Result) model.MetricsRow {
	return model.MetricsRow{
		BigO:                 string(r.Complexity.Time),
		CyclomaticComplexity: r.Metrics.CyclomaticComplexity,
		Maintainability:      r.Metrics.Maintainability,
		RiskScore:            r.Risk.Score,
		RiskLevel:            r.Risk.Level,
	}
}

func joinVersions(vs []model.Version) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
