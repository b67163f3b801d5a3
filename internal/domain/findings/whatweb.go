package findings

import "strings"

const whatwebEvidenceLimit = 700

// banner tokens checked case-insensitively anywhere in the output
var bannerTokens = []string{"X-Powered-By", "Server"}

type whatwebNormalizer struct{}

func (whatwebNormalizer) Tool() Tool { return ToolWhatWeb }

func (whatwebNormalizer) Normalize(raw string) []Finding {
	var out []Finding
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		out = append(out, Finding{
			Title:       "Technology Fingerprint Identified",
			Description: "Publicly visible technology stack details can help attackers profile your surface.",
			Evidence:    truncateRunes(trimmed, whatwebEvidenceLimit),
			Severity:    SeverityLow,
			Remediation: "Reduce unnecessary banners and keep exposed technologies fully patched.",
			SourceTool:  ToolWhatWeb,
		})
	}

	lower := strings.ToLower(raw)
	for _, token := range bannerTokens {
		if !strings.Contains(lower, strings.ToLower(token)) {
			continue
		}
		out = append(out, Finding{
			Title:       "Header/Banner Exposure",
			Description: "Server or framework identification headers were discovered.",
			Evidence:    token,
			Severity:    SeverityMedium,
			Remediation: "Limit version-revealing headers and enforce a hardened server config.",
			SourceTool:  ToolWhatWeb,
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
