package findings

// Normalizer turns one tool's raw output into findings. Implementations are
// stateless and never fail: unparseable input yields no findings.
type Normalizer interface {
	Tool() Tool
	Normalize(raw string) []Finding
}

// NormalizerFor returns the interpreter for tool, or nil for an unknown tool.
func NormalizerFor(tool Tool) Normalizer {
	switch tool {
	case ToolNmap:
		return nmapNormalizer{}
	case ToolWhatWeb:
		return whatwebNormalizer{}
	case ToolNikto:
		return niktoNormalizer{}
	case ToolWapiti:
		return wapitiNormalizer{}
	default:
		return nil
	}
}

// Normalize dispatches raw to the interpreter for tool.
func Normalize(tool Tool, raw string) []Finding {
	n := NormalizerFor(tool)
	if n == nil {
		return nil
	}
	return n.Normalize(raw)
}
