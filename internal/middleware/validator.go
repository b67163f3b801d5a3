package middleware

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ScanInput is the raw body of a scan request before it reaches the orchestrator.
type ScanInput struct {
	URL             string
	Mode            string
	DemoSafeTarget  bool
	CompareToScanID string
}

// Clean sanitizes every field in place and returns all validation problems joined.
// The URL is not checked when the demo target replaces it.
func (in *ScanInput) Clean() error {
	in.URL = SanitizeString(in.URL)
	in.Mode = strings.ToLower(SanitizeString(in.Mode))
	in.CompareToScanID = SanitizeString(in.CompareToScanID)

	var errs []error
	if !in.DemoSafeTarget {
		if err := ValidateTargetURL(in.URL); err != nil {
			errs = append(errs, fmt.Errorf("url: %w", err))
		}
	}
	if in.CompareToScanID != "" {
		if err := ValidateScanID(in.CompareToScanID); err != nil {
			errs = append(errs, fmt.Errorf("compare_to_scan_id: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTargetURL checks a scan target. Host-less URLs pass here and fail inside the scan run.
func ValidateTargetURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}
	if strings.ContainsFunc(rawURL, func(r rune) bool { return unicode.IsSpace(r) || r == '`' }) {
		return errors.New("invalid characters in URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (allowed: http, https)", u.Scheme)
	}
	return nil
}

// ValidateScanID: scan id harus uuid
func ValidateScanID(scanID string) error {
	if scanID == "" {
		return errors.New("scan ID cannot be empty")
	}
	if _, err := uuid.Parse(scanID); err != nil {
		return errors.New("invalid scan ID format")
	}
	return nil
}

// SanitizeString drops NUL and control characters and trims the result.
func SanitizeString(input string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' {
			return -1
		}
		return r
	}, input))
}

// ValidateLimit clamps a list limit into [1, maxListLimit].
func ValidateLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
