// Package model defines the core data types shared across codeq.
package model

import (
	"fmt"
	"strings"
)

// Language is a normalized source language tag.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangC          Language = "c"
	LangGeneric    Language = "generic"
)

// GrammarAware reports whether a full syntax tree parser is available for l.
func (l Language) GrammarAware() bool {
	return l == LangPython
}

// Submission is the immutable input to one analysis.
type Submission struct {
	Code     string
	Language string // optional override, empty means detect
	FileName string
}

// Detection is the outcome of language identification.
type Detection struct {
	Language   Language `json:"language"`
	Confidence float64  `json:"confidence"`
	Escalated  bool     `json:"escalated,omitempty"`
}

// Validation is the outcome of a single syntax check.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// BigO is an asymptotic complexity label.
type BigO string

const (
	BigOConstant    BigO = "O(1)"
	BigOLog         BigO = "O(log n)"
	BigOLinear      BigO = "O(n)"
	BigOQuadratic   BigO = "O(n^2)"
	BigOExponential BigO = "O(2^n)"
	BigONone        BigO = "N/A"
)

// Rank orders labels from best to worst. Logarithmic and exponential
// labels share the linear rank; unrecognized labels rank last.
func (b BigO) Rank() int {
	switch b {
	case BigOConstant:
		return 0
	case BigOLog, BigOLinear, BigOExponential:
		return 1
	case BigOQuadratic:
		return 2
	default:
		return 3
	}
}

// Complexity holds time and space estimates.
type Complexity struct {
	Time  BigO `json:"time_complexity"`
	Space BigO `json:"space_complexity"`
}

// Severity for findings.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Finding is a single flagged pattern.
type Finding struct {
	Kind     string   `json:"type"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Pattern  string   `json:"pattern,omitempty"`
}

// Metrics are the structural scores.
type Metrics struct {
	CyclomaticComplexity int     `json:"cyclomatic_complexity"`
	Maintainability      float64 `json:"maintainability"`
}

// RiskLevel categorizes an aggregated risk score.
type RiskLevel int

const (
	RiskUnknown RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "low":
		*r = RiskLow
	case "medium":
		*r = RiskMedium
	case "high":
		*r = RiskHigh
	case "critical":
		*r = RiskCritical
	default:
		*r = RiskUnknown
	}
	return nil
}

// Trend is derived from the current cyclomatic complexity only.
type Trend string

const (
	TrendStable             Trend = "stable"
	TrendSlightlyIncreasing Trend = "slightly_increasing"
	TrendIncreasing         Trend = "increasing"
	TrendUnknown            Trend = "unknown"
)

// Risk is the aggregated assessment.
type Risk struct {
	Score int       `json:"risk_score"`
	Level RiskLevel `json:"risk_level"`
	Trend Trend     `json:"trend"`
}

// Structure lists top-level definitions found by line prefix.
type Structure struct {
	Functions []string `json:"functions"`
	Classes   []string `json:"classes"`
}

// Refinement is the optional overlay returned by the AI collaborator.
type Refinement struct {
	Algorithm       string `json:"algorithm,omitempty"`
	TimeComplexity  string `json:"time_complexity,omitempty"`
	SpaceComplexity string `json:"space_complexity,omitempty"`
	Recommendation  string `json:"recommendation,omitempty"`
	Explanation     string `json:"explanation,omitempty"`
}

// ErrorKind tags a result that carries no metrics.
type ErrorKind string

const (
	ErrNone        ErrorKind = ""
	ErrEmptyInput  ErrorKind = "EmptyInput"
	ErrSyntax      ErrorKind = "SyntaxError"
	ErrCompilation ErrorKind = "CompilationError"
)

// Result is the aggregate returned by one analysis.
type Result struct {
	Detection
	Code            string      `json:"final_code"`
	WasCorrected    bool        `json:"was_corrected"`
	Complexity      Complexity  `json:"complexity"`
	Metrics         Metrics     `json:"metrics"`
	Findings        []Finding   `json:"findings"`
	SecuritySummary string      `json:"security_summary"`
	Risk            Risk        `json:"risk"`
	Structure       Structure   `json:"structure"`
	Refinement      *Refinement `json:"ai_refinement,omitempty"`
	AISummary       string      `json:"ai_summary,omitempty"`
	Error           ErrorKind   `json:"error,omitempty"`
	Message         string      `json:"message,omitempty"`
}

// Failed reports whether r is an error result.
func (r *Result) Failed() bool {
	return r.Error != ErrNone
}

// TimeComplexity returns the refined label when present, else the heuristic one.
func (r *Result) TimeComplexity() string {
	if r.Refinement != nil && r.Refinement.TimeComplexity != "" {
		return r.Refinement.TimeComplexity
	}
	return string(r.Complexity.Time)
}

// SpaceComplexity returns the refined label when present, else the heuristic one.
func (r *Result) SpaceComplexity() string {
	if r.Refinement != nil && r.Refinement.SpaceComplexity != "" {
		return r.Refinement.SpaceComplexity
	}
	return string(r.Complexity.Space)
}

// ErrorResult builds a result with neutral metrics and an explicit error kind.
func ErrorResult(kind ErrorKind, msg string, det Detection, code string) *Result {
	return &Result{
		Detection:       det,
		Code:            code,
		Complexity:      Complexity{Time: BigONone, Space: BigONone},
		Findings:        []Finding{},
		SecuritySummary: "",
		Risk:            Risk{Level: RiskUnknown, Trend: TrendUnknown},
		Structure:       Structure{Functions: []string{}, Classes: []string{}},
		Error:           kind,
		Message:         msg,
	}
}

// LineDiff is the raw line-set difference between two texts.
type LineDiff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Changed   []string `json:"changed"`
	RiskScore int      `json:"risk_score"`
	Summary   string   `json:"summary"`
}

// MetricsRow is one side of the comparison table.
type MetricsRow struct {
	BigO                 string    `json:"big_o"`
	CyclomaticComplexity int       `json:"cyclomatic_complexity"`
	Maintainability      float64   `json:"maintainability"`
	RiskScore            int       `json:"risk_score"`
	RiskLevel            RiskLevel `json:"risk_level"`
}

// MetricsDelta holds B minus A.
type MetricsDelta struct {
	CyclomaticComplexity int `json:"cyclomatic_complexity"`
	RiskScore            int `json:"risk_score"`
}

// MetricsTable is the side-by-side comparison of two results.
type MetricsTable struct {
	A     MetricsRow   `json:"A"`
	B     MetricsRow   `json:"B"`
	Delta MetricsDelta `json:"delta"`
}

// Version identifies one side of a comparison.
type Version string

const (
	VersionA Version = "A"
	VersionB Version = "B"
)

// Comparison is the outcome of comparing two versions of code.
type Comparison struct {
	VersionA      *Result       `json:"version_a,omitempty"`
	VersionB      *Result       `json:"version_b,omitempty"`
	BetterVersion Version       `json:"better_version,omitempty"`
	Notes         []string      `json:"notes,omitempty"`
	Metrics       *MetricsTable `json:"metrics_comparison,omitempty"`
	Diff          LineDiff      `json:"diff"`
	Error         ErrorKind     `json:"error,omitempty"`
	Message       string        `json:"message,omitempty"`
	FailedSides   []Version     `json:"failed_versions,omitempty"`
}

// Failed reports whether c is an error comparison.
func (c *Comparison) Failed() bool {
	return c.Error != ErrNone
}
