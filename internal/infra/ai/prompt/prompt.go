package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior application security analyst triaging the result of an automated web vulnerability scan (nmap, whatweb, nikto, wapiti). You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase severity values: critical, high, medium, low, info.
- counts.total must equal counts.critical + counts.high + counts.medium + counts.low.
- priorities is an ordered array; the first item is what to fix first. Merge duplicate findings.
- Base every statement on the findings given. Do not invent vulnerabilities.

Schema (example with empty values):
{
  "scan_id": "<string>",
  "target_url": "<string>",
  "counts": {"critical": 0, "high": 0, "medium": 0, "low": 0, "total": 0},
  "priorities": [
    {
      "title": "<string>",
      "severity": "<critical|high|medium|low|info>",
      "summary": "<string>",
      "recommendation": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt wraps the compact scan input.
func GetUserPrompt(input string) string {
	return fmt.Sprintf("Triage this scan result and respond with the JSON per schema.\n%s", input)
}

type inputFinding struct {
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Tool     string `json:"tool"`
	Evidence string `json:"evidence"`
}

type input struct {
	ScanID    string         `json:"scan_id"`
	TargetURL string         `json:"target_url"`
	RiskScore int            `json:"risk_score"`
	RiskLabel string         `json:"risk_label"`
	Findings  []inputFinding `json:"findings"`
}

const (
	maxInputFindings = 60
	maxEvidence      = 200
)

// BuildInput renders the snapshot as compact JSON for the user message.
func BuildInput(snap *scans.Snapshot) (string, error) {
	in := input{
		ScanID:    string(snap.ID),
		TargetURL: snap.TargetURL,
		RiskScore: snap.RiskScore.Score,
		RiskLabel: string(snap.RiskScore.Label),
		Findings:  make([]inputFinding, 0, len(snap.Findings)),
	}
	for i, f := range snap.Findings {
		if i == maxInputFindings {
			break
		}
		in.Findings = append(in.Findings, inputFinding{
			Title:    f.Title,
			Severity: string(f.Severity),
			Tool:     string(f.SourceTool),
			Evidence: trim(f.Evidence, maxEvidence),
		})
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal triage input: %w", err)
	}
	return string(b), nil
}

func trim(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
