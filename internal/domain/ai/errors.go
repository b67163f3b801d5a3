package ai

import "errors"

var (
	// ErrQuotaExceeded: provider menolak karena quota/rate limit (HTTP 429)
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrEmptyResponse is returned when the provider answers without any choice.
	ErrEmptyResponse = errors.New("ai returned no choices")
)
