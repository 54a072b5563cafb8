// Package runner executes shell commands inside the allowed scope. It
// enforces wall-clock timeouts by killing the whole process group,
// caps captured output, and tracks background processes in a
// handle-keyed registry with a retention-based reaper.
package runner

import (
	"context"
	"log"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/agentbox/agentbox/pkg/types"
)

// timeoutExitCode is the sentinel exit code for timed-out commands,
// matching coreutils timeout(1).
const timeoutExitCode = 124

// Options configures a Runner.
type Options struct {
	DefaultTimeout time.Duration // applied when a request has no timeout
	MaxTimeout     time.Duration // requests above this are clamped
	OutputLimit    int           // per-stream byte cap, tail kept
	Retention      time.Duration // how long exited background entries live
}

// Runner spawns and supervises commands.
type Runner struct {
	opts     Options
	registry *registry
	spawns   atomic.Int64
	stopCh   chan struct{}
}

// New creates a Runner and starts its background reaper.
func New(opts Options) *Runner {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 60 * time.Second
	}
	if opts.MaxTimeout <= 0 {
		opts.MaxTimeout = 300 * time.Second
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}

	r := &Runner{
		opts:     opts,
		registry: newRegistry(),
		stopCh:   make(chan struct{}),
	}
	go r.reapLoop()
	return r
}

// Close stops the reaper. Live background processes keep running.
func (r *Runner) Close() {
	close(r.stopCh)
}

// SpawnCount reports how many processes this runner has started. Used by
// tests to verify that rejected commands never spawn anything.
func (r *Runner) SpawnCount() int64 {
	return r.spawns.Load()
}

// Run executes req.Command via the shell in dir. dir must already be
// validated by the caller. Foreground runs block until exit or timeout;
// background runs return a handle immediately.
func (r *Runner) Run(ctx context.Context, req types.ExecRequest, dir string) (*types.ExecResult, error) {
	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	if timeout > r.opts.MaxTimeout {
		timeout = r.opts.MaxTimeout
	}

	cmd := exec.Command("/bin/sh", "-c", req.Command)
	cmd.Dir = dir
	// Own process group so the whole tree can be reaped on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newTailBuffer(r.opts.OutputLimit)
	stderr := newTailBuffer(r.opts.OutputLimit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, types.NewError(types.KindSpawnFailed, "failed to start command: %v", err)
	}
	r.spawns.Add(1)

	if req.Background {
		return r.watchBackground(cmd, req.Command, stdout, stderr), nil
	}
	return r.waitForeground(ctx, cmd, stdout, stderr, timeout)
}

func (r *Runner) waitForeground(ctx context.Context, cmd *exec.Cmd, stdout, stderr *tailBuffer, timeout time.Duration) (*types.ExecResult, error) {
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		code := exitCode(err)
		return &types.ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: code,
			Success:  code == 0,
		}, nil

	case <-timer.C:
		killGroup(cmd.Process.Pid)
		<-waitCh // reap
		return &types.ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String() + "\ncommand timed out after " + timeout.String(),
			ExitCode: timeoutExitCode,
			Success:  false,
			TimedOut: true,
		}, nil

	case <-ctx.Done():
		killGroup(cmd.Process.Pid)
		<-waitCh
		return nil, ctx.Err()
	}
}

// watchBackground registers the process and starts the monitor goroutine
// that records its terminal state.
func (r *Runner) watchBackground(cmd *exec.Cmd, command string, stdout, stderr *tailBuffer) *types.ExecResult {
	handle := uuid.New().String()
	p := &process{
		handle:    handle,
		pid:       cmd.Process.Pid,
		command:   command,
		dir:       cmd.Dir,
		startedAt: time.Now(),
		state:     types.StateRunning,
		stdout:    stdout,
		stderr:    stderr,
	}
	r.registry.insert(p)

	go func() {
		err := cmd.Wait()
		code := exitCode(err)
		state := types.StateCompleted
		switch {
		case signaled(cmd):
			state = types.StateKilled
		case code != 0:
			state = types.StateFailed
		}
		r.registry.finish(handle, state, code)
	}()

	return &types.ExecResult{Handle: handle}
}

// Poll returns a snapshot of a background process. Safe to call
// repeatedly; the entry stays in the registry.
func (r *Runner) Poll(handle string) (*types.ProcessSnapshot, error) {
	return r.registry.snapshot(handle)
}

// Collected is the terminal result of a background process together
// with the launch metadata the audit log needs.
type Collected struct {
	types.ExecResult
	Command  string
	Dir      string
	Duration time.Duration
}

// Annotate attaches a warning to a background entry so it survives
// until Collect. Called by the policy layer after launch.
func (r *Runner) Annotate(handle, warning string) {
	r.registry.annotate(handle, warning)
}

// Collect returns the terminal result of a background process and
// reclaims its registry entry. Fails with still_running before exit and
// not_found after reclamation.
func (r *Runner) Collect(handle string) (*Collected, error) {
	p, err := r.registry.take(handle)
	if err != nil {
		return nil, err
	}
	col := &Collected{
		ExecResult: types.ExecResult{
			Stdout:  p.stdout.String(),
			Stderr:  p.stderr.String(),
			Warning: p.warning,
			Handle:  handle,
		},
		Command:  p.command,
		Dir:      p.dir,
		Duration: p.finishedAt.Sub(p.startedAt),
	}
	if p.exitCode != nil {
		col.ExitCode = *p.exitCode
		col.Success = *p.exitCode == 0
	}
	return col, nil
}

// Kill terminates a background process group. The monitor goroutine
// records the killed state once the process is reaped.
func (r *Runner) Kill(handle string) error {
	p, ok := r.registry.get(handle)
	if !ok {
		return types.NewError(types.KindNotFound, "unknown process handle: %s", handle)
	}
	killGroup(p.pid)
	return nil
}

// Handles lists all live background handles.
func (r *Runner) Handles() []string {
	return r.registry.handles()
}

func (r *Runner) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.registry.evictOlderThan(time.Now().Add(-r.opts.Retention)); n > 0 {
				log.Printf("runner: evicted %d expired background entries", n)
			}
		case <-r.stopCh:
			return
		}
	}
}

// killGroup signals the whole process group, falling back to the single
// process if the group is already gone.
func killGroup(pid int) {
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		unix.Kill(pid, unix.SIGKILL)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func signaled(cmd *exec.Cmd) bool {
	if cmd.ProcessState == nil {
		return false
	}
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}
