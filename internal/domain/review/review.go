package review

import "strings"

// Issue severities. Medium and high block auto-completion.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Issue is one reviewer-reported problem.
type Issue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Verdict is the reviewer's structured assessment of a run. It is derived
// solely from the submitted plans and execution summary.
type Verdict struct {
	OverallAssessment string   `json:"overall_assessment"`
	Issues            []Issue  `json:"issues"`
	Suggestions       []string `json:"suggestions"`
}

// IsBlocking reports whether any issue carries medium or high severity.
func (v Verdict) IsBlocking() bool {
	for _, issue := range v.Issues {
		switch strings.ToLower(strings.TrimSpace(issue.Severity)) {
		case SeverityMedium, SeverityHigh:
			return true
		}
	}
	return false
}
