package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

const noSecurityIssues = "No obvious security issues detected by simple rules."

// securityPatterns are grouped by category. Each pattern that appears in
// the code yields one finding; the category only documents intent.
var securityPatterns = []PatternSet{
	{Name: "dynamic evaluation", Patterns: []string{"eval(", "exec("}},
	{Name: "shell invocation", Patterns: []string{"os.system(", "subprocess.call("}},
	{Name: "credentials", Patterns: []string{"password", "secret", "api_key"}},
}

// ScanSecurity flags every suspicious pattern present in code.
func ScanSecurity(code string) []model.Finding {
	lowered := strings.ToLower(code)

	findings := []model.Finding{}
	for _, set := range securityPatterns {
		for _, p := range set.Matches(lowered) {
			findings = append(findings, model.Finding{
				Kind:     "security",
				Message:  fmt.Sprintf("Suspicious pattern detected: %s", p),
				Severity: model.SeverityWarning,
				Pattern:  p,
			})
		}
	}
	return findings
}

// SecuritySummary condenses findings into one sentence.
func SecuritySummary(findings []model.Finding) string {
	if len(findings) == 0 {
		return noSecurityIssues
	}

	seen := make(map[string]bool)
	var msgs []string
	for _, f := range findings {
		if !seen[f.Message] {
			seen[f.Message] = true
			msgs = append(msgs, f.Message)
		}
	}
	sort.Strings(msgs)
	return fmt.Sprintf("Potential security concerns: %s.", strings.Join(msgs, ", "))
}
