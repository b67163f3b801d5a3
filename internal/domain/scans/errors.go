package scans

import "errors"

var (
	// ErrNotFound is returned when a scan id is unknown.
	ErrNotFound = errors.New("scan not found")
	// ErrReportUnavailable means the scan exists but has no such artifact (yet).
	ErrReportUnavailable = errors.New("report not available")
	// ErrInvalidTransition guards the forward-only status machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
