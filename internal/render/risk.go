package render

import (
	"regexp"

	"github.com/zhouzirui/legalease/backend/internal/model/legal"
)

var riskPattern = regexp.MustCompile(`(?i)\b(Low|Medium|High)\s+Risk\b`)

// RiskBadges wraps "<Level> Risk" phrases in a badge. The level keeps the
// casing it had in the answer, both in the label and in the modifier class.
func RiskBadges() Stage {
	return NewStage("risk-badges", func(text string) string {
		return riskPattern.ReplaceAllString(text, `<span class="risk-badge risk-${1}">${1} Risk</span>`)
	})
}

// DetectRisks lists the distinct risk levels mentioned in text, in order
// of first appearance.
func DetectRisks(text string) []legal.RiskLevel {
	matches := riskPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[legal.RiskLevel]bool, 3)
	levels := make([]legal.RiskLevel, 0, 3)
	for _, m := range matches {
		level, ok := legal.ParseRiskLevel(m[1])
		if !ok || seen[level] {
			continue
		}
		seen[level] = true
		levels = append(levels, level)
	}
	return levels
}
