package findings

// Severity ordinal dari sebuah finding
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Ordered lists severities from most to least severe.
var Ordered = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Weight returns the risk weight of the severity. Unknown values weigh 1.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 5
	case SeverityHigh:
		return 8
	case SeverityCritical:
		return 10
	default:
		return 1
	}
}

// Finding is a single normalized observation produced from one tool line or entry.
type Finding struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Evidence    string   `json:"evidence"`
	Severity    Severity `json:"severity"`
	Remediation string   `json:"remediation"`
	SourceTool  Tool     `json:"source_tool"`
}

// Tool enum, satu per scanner di pipeline
type Tool string

const (
	ToolNmap    Tool = "nmap"
	ToolWhatWeb Tool = "whatweb"
	ToolNikto   Tool = "nikto"
	ToolWapiti  Tool = "wapiti"
)

// Tools is the fixed pipeline order.
var Tools = []Tool{ToolNmap, ToolWhatWeb, ToolNikto, ToolWapiti}

// CountBySeverity counts findings per severity value actually present.
func CountBySeverity(fs []Finding) map[Severity]int {
	out := make(map[Severity]int)
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}
