package ai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bryanwahyu/autovuln/internal/domain/ai"
	"github.com/bryanwahyu/autovuln/internal/domain/scans"
	"github.com/bryanwahyu/autovuln/internal/infra/ai/prompt"
)

type Service struct {
	client ai.Client
	logger *slog.Logger
}

// NewService; client boleh nil, nanti pakai triage offline
func NewService(client ai.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// AnalyzeScan returns a triage JSON object for the scan's findings.
func (s *Service) AnalyzeScan(ctx context.Context, snap *scans.Snapshot) (json.RawMessage, error) {
	if s.client == nil {
		return json.RawMessage(prompt.OfflineTriage(snap)), nil
	}
	input, err := prompt.BuildInput(snap)
	if err != nil {
		return nil, err
	}
	out, err := s.client.Analyze(ctx, input)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(out)) {
		s.logger.WarnContext(ctx, "model returned invalid json, using offline triage",
			slog.String("scan_id", string(snap.ID)))
		return json.RawMessage(prompt.OfflineTriage(snap)), nil
	}
	return json.RawMessage(out), nil
}

// Enabled reports whether a remote model is configured.
func (s *Service) Enabled() bool { return s.client != nil }
