package findings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type wapitiClass struct {
	title       string
	severity    Severity
	remediation string
}

var wapitiClasses = map[string]wapitiClass{
	"xss":    {"Reflected/Stored XSS", SeverityHigh, "Sanitize user input and apply contextual output encoding."},
	"sql":    {"SQL Injection", SeverityCritical, "Use prepared statements and avoid string-built SQL queries."},
	"backup": {"Sensitive Backup File Exposure", SeverityHigh, "Remove backup files from web roots and restrict access."},
	"exec":   {"Command Injection Risk", SeverityCritical, "Validate input and avoid shell interpolation on user data."},
}

// wapiti JSON report (subset)
type wapitiReport struct {
	Vulnerabilities map[string][]wapitiEntry `json:"vulnerabilities"`
}

// Info is nil when the key is absent; an explicit "" is kept as is.
type wapitiEntry struct {
	Info      *string `json:"info"`
	Path      string  `json:"path"`
	Parameter string  `json:"parameter"`
}

type wapitiNormalizer struct{}

func (wapitiNormalizer) Tool() Tool { return ToolWapiti }

func (wapitiNormalizer) Normalize(raw string) []Finding {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var rep wapitiReport
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil
	}

	keys := make([]string, 0, len(rep.Vulnerabilities))
	for k := range rep.Vulnerabilities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Finding
	for _, key := range keys {
		class, ok := wapitiClasses[strings.ToLower(key)]
		if !ok {
			class = wapitiClass{
				title:       fmt.Sprintf("Wapiti finding: %s", key),
				severity:    SeverityMedium,
				remediation: "Review and remediate the discovered input validation issue.",
			}
		}
		for _, e := range rep.Vulnerabilities[key] {
			desc := "Web vulnerability discovered by Wapiti."
			if e.Info != nil {
				desc = *e.Info
			}
			out = append(out, Finding{
				Title:       class.title,
				Description: desc,
				Evidence:    fmt.Sprintf("Path: %s Parameter: %s", e.Path, e.Parameter),
				Severity:    class.severity,
				Remediation: class.remediation,
				SourceTool:  ToolWapiti,
			})
		}
	}
	return out
}
