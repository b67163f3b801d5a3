package scans

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

var allowed = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusFailed},
	StatusRunning: {StatusCompleted, StatusFailed},
}

// Transition moves the scan forward. Completed and failed are terminal.
func (s *Scan) Transition(to Status, now time.Time) error {
	for _, next := range allowed[s.Status] {
		if next != to {
			continue
		}
		s.Status = to
		t := now.UTC()
		if to == StatusRunning {
			s.StartedAt = &t
		}
		if to.Terminal() {
			s.FinishedAt = &t
		}
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
}

// Advance records the step in progress. Progress never goes backwards and is capped at 100.
func (s *Scan) Advance(step string, progress int) {
	s.CurrentTool = step
	if progress > 100 {
		progress = 100
	}
	if progress > s.Progress {
		s.Progress = progress
	}
}

// AppendLog adds trace lines in order. Empty lines are kept out.
func (s *Scan) AppendLog(lines ...string) {
	for _, l := range lines {
		if l == "" {
			continue
		}
		s.Logs = append(s.Logs, l)
	}
}

// Fail marks the scan failed with msg. Findings gathered so far are not part of a failed result.
func (s *Scan) Fail(msg string, now time.Time) error {
	if err := s.Transition(StatusFailed, now); err != nil {
		return err
	}
	s.Error = msg
	s.Findings = []findings.Finding{}
	s.Metrics = nil
	return nil
}

// Complete commits the run result in one step.
func (s *Scan) Complete(fs []findings.Finding, m *MetricsRecord, rep *Report, now time.Time) error {
	if err := s.Transition(StatusCompleted, now); err != nil {
		return err
	}
	s.Findings = append(s.Findings, fs...)
	s.Metrics = m
	s.Report = rep
	s.Advance(StepDone, 100)
	return nil
}
