package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	"github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// Triage matches the schema in the system prompt.
type Triage struct {
	ScanID     string     `json:"scan_id"`
	TargetURL  string     `json:"target_url"`
	Counts     Counts     `json:"counts"`
	Priorities []Priority `json:"priorities"`
	Advice     string     `json:"advice"`
}

type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

type Priority struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

const maxPriorities = 20

// OfflineTriage builds the triage JSON locally when no model is configured.
// Findings with the same title collapse into one priority, most severe first.
func OfflineTriage(snap *scans.Snapshot) string {
	out := Triage{
		ScanID:     string(snap.ID),
		TargetURL:  snap.TargetURL,
		Priorities: make([]Priority, 0, 8),
	}

	c := findings.CountBySeverity(snap.Findings)
	out.Counts = Counts{
		Critical: c[findings.SeverityCritical],
		High:     c[findings.SeverityHigh],
		Medium:   c[findings.SeverityMedium],
		Low:      c[findings.SeverityLow],
	}
	out.Counts.Total = out.Counts.Critical + out.Counts.High + out.Counts.Medium + out.Counts.Low

	seen := map[string]int{}
	var occurrences []int
	for _, sev := range findings.Ordered {
		for _, f := range snap.Findings {
			if f.Severity != sev {
				continue
			}
			if idx, ok := seen[f.Title]; ok {
				occurrences[idx]++
				continue
			}
			if len(out.Priorities) == maxPriorities {
				continue
			}
			seen[f.Title] = len(out.Priorities)
			occurrences = append(occurrences, 1)
			out.Priorities = append(out.Priorities, Priority{
				Title:          f.Title,
				Severity:       strings.ToLower(string(f.Severity)),
				Summary:        trim(f.Description, 160),
				Recommendation: f.Remediation,
			})
		}
	}
	for i, n := range occurrences {
		if n > 1 {
			out.Priorities[i].Summary += fmt.Sprintf(" (%d occurrences)", n)
		}
	}

	if len(out.Priorities) == 0 {
		out.Priorities = append(out.Priorities, Priority{
			Title:          "No findings reported",
			Severity:       "info",
			Summary:        "The toolchain reported nothing, but false negatives are possible.",
			Recommendation: "Re-run with attack simulation enabled and review tool logs for errors.",
		})
	}

	switch {
	case out.Counts.Critical > 0:
		out.Advice = "Immediate action required: fix injection-class issues first, then review exposed interfaces. Re-scan after remediation and compare against this scan."
	case out.Counts.High+out.Counts.Medium > 0:
		out.Advice = "Harden exposed services, hide version banners and add missing security headers. Re-scan to confirm the risk score drops."
	default:
		out.Advice = "Maintain good hygiene: keep services patched, minimize open ports and schedule periodic scans."
	}

	b, err := json.Marshal(out)
	if err != nil {
		return `{"counts":{"critical":0,"high":0,"medium":0,"low":0,"total":0},"priorities":[],"advice":"Analysis error"}`
	}
	return string(b)
}
