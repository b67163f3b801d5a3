package findings

import (
	"regexp"
	"strings"
)

var rxOpenTCP = regexp.MustCompile(`\d+/tcp\s+open`)

type nmapNormalizer struct{}

func (nmapNormalizer) Tool() Tool { return ToolNmap }

func (nmapNormalizer) Normalize(raw string) []Finding {
	var out []Finding
	for _, line := range lines(raw) {
		evidence := strings.TrimSpace(line)
		if rxOpenTCP.MatchString(line) {
			out = append(out, Finding{
				Title:       "Open Port Detected",
				Description: "An open TCP port was identified on the target.",
				Evidence:    evidence,
				Severity:    SeverityLow,
				Remediation: "Close unused ports and restrict access with firewall rules.",
				SourceTool:  ToolNmap,
			})
		}
		lower := strings.ToLower(line)
		if strings.Contains(line, "Service Info:") || (strings.Contains(lower, "version") && strings.Contains(lower, "open")) {
			out = append(out, Finding{
				Title:       "Potential Outdated Service",
				Description: "Service/version disclosure can indicate outdated software components.",
				Evidence:    evidence,
				Severity:    SeverityMedium,
				Remediation: "Patch services and minimize version disclosure where possible.",
				SourceTool:  ToolNmap,
			})
		}
	}
	return out
}
