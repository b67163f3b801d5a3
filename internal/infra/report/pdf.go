package report

import (
	"fmt"

	gofpdf "github.com/go-pdf/fpdf"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

var pdfSeverityColors = map[findings.Severity][]int{
	findings.SeverityCritical: {185, 28, 28},
	findings.SeverityHigh:     {234, 88, 12},
	findings.SeverityMedium:   {202, 138, 4},
	findings.SeverityLow:      {37, 99, 235},
}

func writePDF(path string, v view) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, "Vulnerability Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Scan %s against %s (%s). Generated %s.",
		v.Snap.ID, v.Snap.TargetURL, v.Snap.Mode, v.GeneratedAt)), "", "L", false)
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("Risk score %d/100 (%s)", v.Snap.RiskScore.Score, v.Snap.RiskScore.Label), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// ringkasan per severity
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(40, 7, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Count", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, g := range v.Groups {
		c := pdfSeverityColors[g.Severity]
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(40, 7, string(g.Severity), "1", 0, "L", false, 0, "")
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(25, 7, fmt.Sprint(len(g.Items)), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	if m := v.Snap.Metrics; m != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, "HTTP behaviour", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("Baseline avg latency %.2f ms, error rate %.1f%%. Post-scan avg latency %.2f ms, error rate %.1f%%.",
			m.BaselineHTTP.AvgLatencyMS, m.BaselineHTTP.ErrorRate*100,
			m.PostScanHTTP.AvgLatencyMS, m.PostScanHTTP.ErrorRate*100), "", "L", false)
		if m.Simulation != nil {
			pdf.MultiCell(0, 5, fmt.Sprintf("Attack simulation: %d requests, blocked rate %.1f%%.",
				m.Simulation.RequestsSent, m.Simulation.BlockedRate*100), "", "L", false)
		}
		pdf.Ln(3)
	}

	if c := v.Snap.Comparison; c != nil {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr("Compared to "+string(c.BaselineScanID)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("Risk delta %+d, findings delta %+d, latency delta %+.2f ms, blocked rate delta %+.4f.",
			c.RiskScoreDelta, c.FindingsDelta, c.LatencyDeltaMS, c.BlockedRateDelta), "", "L", false)
		pdf.Ln(3)
	}

	for _, g := range v.Groups {
		if len(g.Items) == 0 {
			continue
		}
		c := pdfSeverityColors[g.Severity]
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(c[0], c[1], c[2])
		pdf.CellFormat(0, 8, fmt.Sprintf("%s (%d)", g.Severity, len(g.Items)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(30, 41, 59)
		for _, f := range g.Items {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, tr(f.Title), "", "L", false)
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4.5, tr(f.Description), "", "L", false)
			pdf.SetFont("Courier", "", 8)
			pdf.MultiCell(0, 4, tr(f.Evidence), "", "L", false)
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 4.5, tr("Remediation: "+f.Remediation+" (source: "+string(f.SourceTool)+")"), "", "L", false)
			pdf.Ln(2)
		}
	}

	return pdf.OutputFileAndClose(path)
}
