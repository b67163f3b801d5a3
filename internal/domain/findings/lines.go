package findings

import "strings"

// lines splits tool output the way a terminal would show it, dropping CR from CRLF endings.
func lines(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
