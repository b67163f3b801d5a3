package findings

import "math"

// RiskLabel classifies an aggregate risk score.
type RiskLabel string

const (
	RiskInformational RiskLabel = "Informational"
	RiskLow           RiskLabel = "Low"
	RiskMedium        RiskLabel = "Medium"
	RiskHigh          RiskLabel = "High"
	RiskCritical      RiskLabel = "Critical"
)

// RiskScore is derived from a findings list and never stored.
type RiskScore struct {
	Score        int              `json:"score"`
	Label        RiskLabel        `json:"label"`
	Distribution map[Severity]int `json:"distribution"`
}

// Score computes the aggregate risk of fs: the mean severity weight scaled to 0-100.
func Score(fs []Finding) RiskScore {
	if len(fs) == 0 {
		return RiskScore{Score: 0, Label: RiskInformational, Distribution: map[Severity]int{}}
	}
	sum := 0
	for _, f := range fs {
		sum += f.Severity.Weight()
	}
	score := int(math.Round(float64(sum) / float64(len(fs)*10) * 100))
	if score > 100 {
		score = 100
	}
	return RiskScore{Score: score, Label: LabelFor(score), Distribution: CountBySeverity(fs)}
}

// LabelFor maps a non-zero-findings score to its label.
func LabelFor(score int) RiskLabel {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 55:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}
