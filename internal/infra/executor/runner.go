package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

const (
	readFileTimeout     = 30 * time.Second
	connectivityTimeout = 20 * time.Second
	waitDelay           = 2 * time.Second
)

// Runner menjalankan command di dalam container kali (docker exec) atau distro WSL.
type Runner struct {
	mode   domain.Mode
	prefix []string
	logger *slog.Logger
}

// NewDockerRunner → docker exec <container> ...
func NewDockerRunner(container string, logger *slog.Logger) *Runner {
	return &Runner{
		mode:   domain.ModeDocker,
		prefix: []string{"docker", "exec", container},
		logger: orDefault(logger),
	}
}

// NewWSLRunner → wsl -d <distro> -- ...
func NewWSLRunner(distro string, logger *slog.Logger) *Runner {
	return &Runner{
		mode:   domain.ModeWSL,
		prefix: []string{"wsl", "-d", distro, "--"},
		logger: orDefault(logger),
	}
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Argv returns the full command line for a tool invocation in this runner's environment.
func (r *Runner) Argv(argv []string) []string {
	full := make([]string, 0, len(r.prefix)+len(argv))
	full = append(full, r.prefix...)
	return append(full, argv...)
}

// Run never returns an error: start failures and timeouts come back as Failed results with no output.
func (r *Runner) Run(ctx context.Context, argv []string, timeout time.Duration) domain.RunResult {
	full := r.Argv(argv)
	if len(full) == 0 {
		return domain.RunResult{Stderr: "empty command", Log: "[tool-error] empty command", ExitCode: -1, Failed: true}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// grandchildren can keep the pipes open after the kill
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var ee *exec.ExitError
		switch {
		case errors.As(err, &ee) && ctx.Err() == nil:
			// tool jalan tapi exit non-zero, masih dianggap output valid
			exitCode = ee.ExitCode()
		case ctx.Err() != nil:
			err = fmt.Errorf("timed out after %s: %w", timeout, ctx.Err())
			fallthrough
		default:
			r.logger.Warn("tool invocation failed",
				slog.String("mode", string(r.mode)),
				slog.String("cmd", full[0]),
				slog.Any("error", err),
			)
			// partial stdout dibuang
			return domain.RunResult{
				Stderr:   err.Error(),
				Log:      "[tool-error] " + err.Error(),
				ExitCode: -1,
				Failed:   true,
			}
		}
	}

	r.logger.Debug("tool finished",
		slog.String("mode", string(r.mode)),
		slog.String("cmd", argv0(argv)),
		slog.Int("exit", exitCode),
		slog.Duration("duration", time.Since(start)),
	)

	return domain.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Log:      fmt.Sprintf("[tool-exit=%d] %s", exitCode, ShellJoin(full)),
		ExitCode: exitCode,
	}
}

// ReadFile baca file di dalam environment (buat output wapiti). Empty when unreadable.
func (r *Runner) ReadFile(ctx context.Context, path string) string {
	res := r.Run(ctx, []string{"cat", path}, readFileTimeout)
	if res.ExitCode != 0 {
		return ""
	}
	return res.Stdout
}

// CheckConnectivity runs `which` for every tool and reports which ones resolve.
func (r *Runner) CheckConnectivity(ctx context.Context) domain.ToolStatus {
	st := domain.ToolStatus{Mode: r.mode, Tools: make(map[string]string, len(findings.Tools)), Healthy: true}
	for _, t := range findings.Tools {
		res := r.Run(ctx, []string{"which", string(t)}, connectivityTimeout)
		if res.ExitCode == 0 && strings.TrimSpace(res.Stdout) != "" {
			st.Tools[string(t)] = domain.ToolOK
			continue
		}
		st.Tools[string(t)] = domain.ToolMissing
		st.Healthy = false
	}
	return st
}

func argv0(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}

// ShellJoin quotes argv the way a POSIX shell would need it to be typed.
func ShellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("@%+=:,./-_", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Factory holds one runner per mode.
type Factory struct {
	Docker *Runner
	WSL    *Runner
}

func NewFactory(container, distro string, logger *slog.Logger) *Factory {
	return &Factory{
		Docker: NewDockerRunner(container, logger),
		WSL:    NewWSLRunner(distro, logger),
	}
}

func (f *Factory) ForMode(mode domain.Mode) domain.Runner {
	if mode == domain.ModeWSL {
		return f.WSL
	}
	return f.Docker
}
