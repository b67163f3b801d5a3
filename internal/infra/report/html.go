package report

import (
	"fmt"
	"html/template"
	"strings"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"pct":   func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"signed": func(v any) string {
		s := fmt.Sprint(v)
		if !strings.HasPrefix(s, "-") && s != "0" {
			return "+" + s
		}
		return s
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Autovuln report {{.Snap.ID}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;margin:2rem;color:#1e293b}
h1{margin-bottom:0}
.risk{font-size:1.4rem;font-weight:bold}
.critical{color:#b91c1c}.high{color:#ea580c}.medium{color:#ca8a04}.low{color:#2563eb}.informational{color:#64748b}
.finding{border:1px solid #e2e8f0;border-radius:6px;padding:.75rem;margin:.5rem 0}
pre{white-space:pre-wrap;background:#f8fafc;padding:.5rem}
table{border-collapse:collapse}td,th{border:1px solid #e2e8f0;padding:.25rem .5rem;text-align:left}
</style>
</head>
<body>
<h1>Vulnerability Report</h1>
<p>Scan <code>{{.Snap.ID}}</code> against <code>{{.Snap.TargetURL}}</code> ({{.Snap.Mode}}). Generated {{.GeneratedAt}}.</p>
<p class="risk {{lower (print .Snap.RiskScore.Label)}}">Risk score {{.Snap.RiskScore.Score}}/100 ({{.Snap.RiskScore.Label}})</p>
<table>
<tr><th>Severity</th><th>Count</th></tr>
{{- range .Groups}}
<tr><td class="{{lower (print .Severity)}}">{{.Severity}}</td><td>{{len .Items}}</td></tr>
{{- end}}
</table>
{{- with .Snap.Metrics}}
<h2>HTTP behaviour</h2>
<table>
<tr><th></th><th>Requests</th><th>Avg latency (ms)</th><th>Error rate</th></tr>
<tr><td>Baseline</td><td>{{.BaselineHTTP.Requests}}</td><td>{{.BaselineHTTP.AvgLatencyMS}}</td><td>{{pct .BaselineHTTP.ErrorRate}}</td></tr>
<tr><td>Post-scan</td><td>{{.PostScanHTTP.Requests}}</td><td>{{.PostScanHTTP.AvgLatencyMS}}</td><td>{{pct .PostScanHTTP.ErrorRate}}</td></tr>
</table>
{{- with .Simulation}}
<p>Attack simulation: {{.RequestsSent}} requests, blocked rate {{pct .BlockedRate}}.</p>
{{- end}}
<p>Duration {{.DurationSeconds}}s.</p>
{{- end}}
{{- with .Snap.Comparison}}
<h2>Compared to {{.BaselineScanID}}</h2>
<ul>
<li>Risk score delta: {{signed .RiskScoreDelta}}</li>
<li>Findings delta: {{signed .FindingsDelta}}</li>
<li>Latency delta (ms): {{signed .LatencyDeltaMS}}</li>
<li>Blocked rate delta: {{signed .BlockedRateDelta}}</li>
</ul>
{{- end}}
{{- range .Groups}}
{{- if .Items}}
<h2 class="{{lower (print .Severity)}}">{{.Severity}} ({{len .Items}})</h2>
{{- range .Items}}
<div class="finding">
<h3>{{.Title}}</h3>
<p>{{.Description}}</p>
<pre>{{.Evidence}}</pre>
<p><strong>Remediation:</strong> {{.Remediation}}</p>
<p><small>Source: {{.SourceTool}}</small></p>
</div>
{{- end}}
{{- end}}
{{- end}}
{{- if not .Snap.Findings}}
<p>No findings were reported by the toolchain.</p>
{{- end}}
</body>
</html>
`))
