package findings

import "strings"

type niktoRule struct {
	match       func(lower string) bool
	title       string
	severity    Severity
	remediation string
}

// first match wins
var niktoRules = []niktoRule{
	{
		match:       func(l string) bool { return strings.Contains(l, "xss") },
		title:       "Potential XSS Indicator",
		severity:    SeverityHigh,
		remediation: "Apply output encoding and strict input validation.",
	},
	{
		match:       func(l string) bool { return strings.Contains(l, "sql") && strings.Contains(l, "inject") },
		title:       "Potential SQL Injection Indicator",
		severity:    SeverityCritical,
		remediation: "Use parameterized queries and rigorous server-side validation.",
	},
	{
		match:       func(l string) bool { return strings.Contains(l, "admin") },
		title:       "Exposed Admin Interface",
		severity:    SeverityHigh,
		remediation: "Restrict admin interfaces by IP and enforce MFA.",
	},
	{
		match:       func(l string) bool { return strings.Contains(l, "header") },
		title:       "Missing/Weak Security Headers",
		severity:    SeverityMedium,
		remediation: "Add HSTS, CSP, X-Frame-Options, and related headers.",
	},
}

type niktoNormalizer struct{}

func (niktoNormalizer) Tool() Tool { return ToolNikto }

func (niktoNormalizer) Normalize(raw string) []Finding {
	var out []Finding
	for _, line := range lines(raw) {
		if !strings.Contains(line, "+ ") {
			continue
		}
		f := Finding{
			Title:       "Nikto Finding",
			Description: "Potential web server weakness identified by Nikto.",
			Evidence:    strings.TrimSpace(line),
			Severity:    SeverityMedium,
			Remediation: "Review server configuration and patch identified issues.",
			SourceTool:  ToolNikto,
		}
		lower := strings.ToLower(line)
		for _, r := range niktoRules {
			if r.match(lower) {
				f.Title, f.Severity, f.Remediation = r.title, r.severity, r.remediation
				break
			}
		}
		out = append(out, f)
	}
	return out
}
