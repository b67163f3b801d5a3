package ai

import "context"

// Client sends a triage input to a language model and returns its JSON answer.
type Client interface {
	Analyze(ctx context.Context, input string) (string, error)
}
