package scans

// RunResult hasil dari Runner.
// Failed means the tool could not run to the end (start error, timeout); its output is not parsed.
type RunResult struct {
	Stdout   string
	Stderr   string
	Log      string
	ExitCode int
	Failed   bool
}

// Combined is the text handed to a normalizer.
func (r RunResult) Combined() string {
	return r.Stdout + "\n" + r.Stderr
}

// ToolStatus reports which tools are reachable in a mode.
type ToolStatus struct {
	Mode    Mode              `json:"mode"`
	Tools   map[string]string `json:"tools"`
	Healthy bool              `json:"healthy"`
}

// availability markers in ToolStatus.Tools
const (
	ToolOK      = "ok"
	ToolMissing = "missing"
)
