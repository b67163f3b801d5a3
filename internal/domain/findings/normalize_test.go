package findings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(fs []Finding) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Title)
	}
	return out
}

func TestNmap_OpenPortOnly(t *testing.T) {
	got := Normalize(ToolNmap, "80/tcp open http")
	require.Len(t, got, 1)
	assert.Equal(t, "Open Port Detected", got[0].Title)
	assert.Equal(t, SeverityLow, got[0].Severity)
	assert.Equal(t, "80/tcp open http", got[0].Evidence)
	assert.Equal(t, ToolNmap, got[0].SourceTool)
}

func TestNmap_ServiceInfoYieldsBoth(t *testing.T) {
	got := Normalize(ToolNmap, "443/tcp open https Service Info: OS: Linux")
	assert.Equal(t, []string{"Open Port Detected", "Potential Outdated Service"}, titles(got))
	assert.Equal(t, SeverityMedium, got[1].Severity)
}

func TestNmap_VersionAndOpenCaseInsensitive(t *testing.T) {
	got := Normalize(ToolNmap, "  Service VERSION detection: port OPEN  ")
	require.Len(t, got, 1)
	assert.Equal(t, "Potential Outdated Service", got[0].Title)
	assert.Equal(t, "Service VERSION detection: port OPEN", got[0].Evidence)
}

func TestNmap_MultiLine(t *testing.T) {
	raw := strings.Join([]string{
		"Starting Nmap 7.94",
		"PORT   STATE SERVICE VERSION",
		"22/tcp open  ssh     OpenSSH 8.9",
		"25/tcp closed smtp",
		"80/tcp open  http    nginx 1.18.0\r",
	}, "\n")
	got := Normalize(ToolNmap, raw)
	assert.Equal(t, []string{"Open Port Detected", "Open Port Detected"}, titles(got))
	assert.Equal(t, "80/tcp open  http    nginx 1.18.0", got[1].Evidence)
}

func TestNmap_Empty(t *testing.T) {
	assert.Empty(t, Normalize(ToolNmap, ""))
}

func TestWhatWeb_FingerprintAndBanners(t *testing.T) {
	raw := "http://example.com [200 OK] HTTPServer[nginx], X-Powered-By[PHP/5.6], server header"
	got := Normalize(ToolWhatWeb, raw)
	require.Len(t, got, 3)
	assert.Equal(t, "Technology Fingerprint Identified", got[0].Title)
	assert.Equal(t, SeverityLow, got[0].Severity)
	assert.Equal(t, raw, got[0].Evidence)
	assert.Equal(t, "X-Powered-By", got[1].Evidence)
	assert.Equal(t, "Server", got[2].Evidence)
	assert.Equal(t, SeverityMedium, got[2].Severity)
}

func TestWhatWeb_EvidenceTruncated(t *testing.T) {
	raw := "  " + strings.Repeat("a", 900) + "  "
	got := Normalize(ToolWhatWeb, raw)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Evidence, 700)
}

func TestWhatWeb_BlankOutput(t *testing.T) {
	assert.Empty(t, Normalize(ToolWhatWeb, " \n\t "))
}

func TestNikto_Classification(t *testing.T) {
	cases := []struct {
		line     string
		title    string
		severity Severity
	}{
		{"+ admin panel found", "Exposed Admin Interface", SeverityHigh},
		{"+ /search.php: XSS reflected", "Potential XSS Indicator", SeverityHigh},
		{"+ Possible SQL injection in id", "Potential SQL Injection Indicator", SeverityCritical},
		{"+ admin login with xss vector", "Potential XSS Indicator", SeverityHigh},
		{"+ sql error exposed", "Nikto Finding", SeverityMedium},
		{"+ The X-Frame-Options header is not present.", "Missing/Weak Security Headers", SeverityMedium},
		{"+ Server: Apache/2.4.7", "Nikto Finding", SeverityMedium},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got := Normalize(ToolNikto, tc.line)
			require.Len(t, got, 1)
			assert.Equal(t, tc.title, got[0].Title)
			assert.Equal(t, tc.severity, got[0].Severity)
			assert.Equal(t, strings.TrimSpace(tc.line), got[0].Evidence)
		})
	}
}

func TestNikto_IgnoresLinesWithoutMarker(t *testing.T) {
	assert.Empty(t, Normalize(ToolNikto, "- Nikto v2.5.0\nadmin xss sql injection header\n+no-space"))
}

func TestWapiti_Mapping(t *testing.T) {
	raw := `{"vulnerabilities": {
		"SQL": [{"info": "SQL error in id", "path": "/item.php", "parameter": "id"}],
		"XSS": [{"path": "/search", "parameter": "q"}, {"info": "", "path": "/s", "parameter": "x"}],
		"Open Redirect": [{"info": "redirect", "path": "/go", "parameter": "url"}],
		"Backup": []
	}}`
	got := Normalize(ToolWapiti, raw)
	require.Len(t, got, 4)

	// categories are visited in sorted key order
	assert.Equal(t, "Wapiti finding: Open Redirect", got[0].Title)
	assert.Equal(t, SeverityMedium, got[0].Severity)
	assert.Equal(t, "SQL Injection", got[1].Title)
	assert.Equal(t, SeverityCritical, got[1].Severity)
	assert.Equal(t, "Path: /item.php Parameter: id", got[1].Evidence)
	assert.Equal(t, "Reflected/Stored XSS", got[2].Title)
	assert.Equal(t, "Web vulnerability discovered by Wapiti.", got[2].Description)
	assert.Equal(t, "", got[3].Description, "explicit empty info is not replaced")
}

func TestWapiti_MalformedJSON(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Empty(t, Normalize(ToolWapiti, "not json"))
	})
	assert.Empty(t, Normalize(ToolWapiti, "{}"))
	assert.Empty(t, Normalize(ToolWapiti, ""))
}

func TestNormalizerFor(t *testing.T) {
	for _, tool := range Tools {
		n := NormalizerFor(tool)
		require.NotNil(t, n, tool)
		assert.Equal(t, tool, n.Tool())
	}
	assert.Nil(t, NormalizerFor(Tool("sqlmap")))
	assert.Nil(t, Normalize(Tool("sqlmap"), "+ admin"))
}
