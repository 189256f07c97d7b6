package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

const (
	weightQuadratic       = 2
	weightHighCyclomatic  = 2
	weightSecurity        = 3
	weightLowMaintainable = 2

	cyclomaticRiskCeiling = 15
	maintainabilityFloor  = 50
)

// AssessRisk aggregates the other stages into a score, level and trend.
func AssessRisk(timeLabel model.BigO, m model.Metrics, findings []model.Finding) model.Risk {
	score := 0
	if strings.Contains(string(timeLabel), "n^2") {
		score += weightQuadratic
	}
	if m.CyclomaticComplexity > cyclomaticRiskCeiling {
		score += weightHighCyclomatic
	}
	if len(findings) > 0 {
		score += weightSecurity
	}
	if m.Maintainability < maintainabilityFloor {
		score += weightLowMaintainable
	}

	return model.Risk{
		Score: score,
		Level: RiskLevelFor(score),
		Trend: TrendFor(m.CyclomaticComplexity),
	}
}

// RiskLevelFor bands a risk score.
func RiskLevelFor(score int) model.RiskLevel {
	switch {
	case score <= 2:
		return model.RiskLow
	case score <= 4:
		return model.RiskMedium
	case score <= 6:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

// TrendFor labels the complexity trend from the current cyclomatic
// complexity. There is no history to compare against.
func TrendFor(cyclomatic int) model.Trend {
	switch {
	case cyclomatic >= 15:
		return model.TrendIncreasing
	case cyclomatic >= 8:
		return model.TrendSlightlyIncreasing
	default:
		return model.TrendStable
	}
}
