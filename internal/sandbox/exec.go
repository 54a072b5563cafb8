package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/agentbox/agentbox/internal/metrics"
	"github.com/agentbox/agentbox/internal/policy"
	"github.com/agentbox/agentbox/pkg/types"
)

// Exec screens a command against the policy, validates its working
// directory, and hands it to the runner. Block-tier matches are rejected
// before any process spawns; warn-tier matches run with the warning
// attached to the result.
func (m *Manager) Exec(ctx context.Context, req types.ExecRequest) (*types.ExecResult, error) {
	cls := policy.Classify(req.Command)
	metrics.CommandsTotal.WithLabelValues(cls.Verdict.String()).Inc()

	if cls.Verdict == policy.Blocked {
		return nil, types.NewError(types.KindBlocked,
			"command is blocked for safety reasons (matched %q)", cls.Pattern)
	}

	dir := req.WorkingDir
	if dir == "" {
		dir = m.projectRoot
	}
	resolved, err := m.guard.ResolveDir(dir)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := m.runner.Run(ctx, req, resolved)
	if err != nil {
		return nil, err
	}
	metrics.ExecDuration.Observe(time.Since(start).Seconds())
	if res.TimedOut {
		metrics.CommandTimeoutsTotal.Inc()
	}

	if cls.Verdict == policy.Warn {
		res.Warning = fmt.Sprintf("command matched potentially dangerous pattern %q", cls.Pattern)
		if req.Background && res.Handle != "" {
			// Keep the warning on the registry entry so Collect returns it.
			m.runner.Annotate(res.Handle, res.Warning)
		}
	}

	if m.logger != nil && !req.Background {
		durationMs := int(time.Since(start).Milliseconds())
		_ = m.logger.LogCommand(req.Command, resolved, res.ExitCode, durationMs, len(res.Stdout), len(res.Stderr))
	}

	return res, nil
}

// Poll returns a snapshot of a background process.
func (m *Manager) Poll(handle string) (*types.ProcessSnapshot, error) {
	return m.runner.Poll(handle)
}

// Collect returns the terminal result of a background process and
// reclaims its registry entry. Background commands enter the audit log
// here, once their exit code and duration are known.
func (m *Manager) Collect(handle string) (*types.ExecResult, error) {
	col, err := m.runner.Collect(handle)
	if err != nil {
		return nil, err
	}
	if m.logger != nil {
		_ = m.logger.LogCommand(col.Command, col.Dir, col.ExitCode,
			int(col.Duration.Milliseconds()), len(col.Stdout), len(col.Stderr))
	}
	return &col.ExecResult, nil
}

// Kill terminates a background process.
func (m *Manager) Kill(handle string) error {
	return m.runner.Kill(handle)
}

// Processes lists the handles of all live background processes.
func (m *Manager) Processes() []string {
	return m.runner.Handles()
}
