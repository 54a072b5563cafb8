package runner

import (
	"context"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/agentbox/agentbox/pkg/types"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r := New(Options{
		DefaultTimeout: 10 * time.Second,
		MaxTimeout:     30 * time.Second,
		OutputLimit:    64 * 1024,
		Retention:      time.Hour,
	})
	t.Cleanup(r.Close)
	return r
}

func TestRun_CapturesOutput(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "echo hello; echo oops >&2"}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.Stderr != "oops\n" {
		t.Errorf("stderr = %q", res.Stderr)
	}
	if !res.Success || res.ExitCode != 0 {
		t.Errorf("expected success, got exit %d", res.ExitCode)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "exit 3"}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Success || res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d (success=%v)", res.ExitCode, res.Success)
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	r := newTestRunner(t)
	dir := t.TempDir()
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "pwd"}, dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		t.Fatal("empty pwd output")
	}
	// pwd may report a symlink-resolved variant of dir; both are fine.
	if !strings.Contains(res.Stdout, "/") {
		t.Errorf("unexpected pwd output: %q", res.Stdout)
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	start := time.Now()
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "sleep 10", TimeoutSeconds: 1}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout enforcement took %v, want ~1s", elapsed)
	}
	if !res.TimedOut || res.Success {
		t.Errorf("expected timed-out failure, got %+v", res)
	}
	if res.ExitCode != 124 {
		t.Errorf("expected sentinel exit 124, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("stderr missing timeout marker: %q", res.Stderr)
	}
}

func TestRun_TimeoutKillsProcessTree(t *testing.T) {
	r := newTestRunner(t)
	// Parent shell spawns a grandchild that prints its own pid.
	res, err := r.Run(context.Background(), types.ExecRequest{
		Command:        "sh -c 'echo $$; sleep 30' & wait",
		TimeoutSeconds: 1,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("expected timeout")
	}
	pidStr := strings.TrimSpace(res.Stdout)
	if pidStr == "" {
		t.Skip("grandchild pid not captured")
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		t.Skipf("unparseable pid %q", pidStr)
	}
	// Allow a short grace period for the group kill to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if syscall.Kill(pid, 0) != nil {
			return // grandchild is gone
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("grandchild pid %d survived the group kill", pid)
}

func TestRun_OutputCapKeepsTail(t *testing.T) {
	r := New(Options{OutputLimit: 1024, DefaultTimeout: 10 * time.Second})
	defer r.Close()
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "seq 1 2000"}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.HasPrefix(res.Stdout, truncationMarker) {
		t.Error("expected truncation marker on capped output")
	}
	if !strings.Contains(res.Stdout, "2000") {
		t.Error("tail of output missing; cap should keep the most recent bytes")
	}
	if strings.Contains(res.Stdout, "\n1\n") {
		t.Error("head of output survived the cap")
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), types.ExecRequest{Command: "true"}, "/nonexistent-dir-for-test")
	if types.KindOf(err) != types.KindSpawnFailed {
		t.Errorf("expected spawn_failed, got %v", err)
	}
}

func TestBackground_PollAndCollect(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{
		Command:    "echo started; sleep 0.3; echo done",
		Background: true,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Handle == "" {
		t.Fatal("background run returned no handle")
	}

	snap, err := r.Poll(res.Handle)
	if err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	if snap.PID <= 0 {
		t.Errorf("invalid pid %d", snap.PID)
	}

	// Collect before exit must fail with still_running.
	if _, err := r.Collect(res.Handle); types.KindOf(err) != types.KindStillRunning {
		t.Errorf("expected still_running, got %v", err)
	}

	waitForState(t, r, res.Handle, types.StateCompleted)

	final, err := r.Collect(res.Handle)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if !final.Success || final.ExitCode != 0 {
		t.Errorf("expected success, got %+v", final)
	}
	if !strings.Contains(final.Stdout, "done") {
		t.Errorf("stdout missing drained output: %q", final.Stdout)
	}

	// The entry is reclaimed; a second collect is not_found.
	if _, err := r.Collect(res.Handle); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected not_found after reclaim, got %v", err)
	}
}

func TestBackground_FailedState(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "exit 7", Background: true}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	waitForState(t, r, res.Handle, types.StateFailed)

	final, err := r.Collect(res.Handle)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if final.ExitCode != 7 {
		t.Errorf("expected exit 7, got %d", final.ExitCode)
	}
}

func TestBackground_CollectCarriesAnnotationAndMetadata(t *testing.T) {
	r := newTestRunner(t)
	dir := t.TempDir()
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "true", Background: true}, dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	r.Annotate(res.Handle, "careful")
	waitForState(t, r, res.Handle, types.StateCompleted)

	col, err := r.Collect(res.Handle)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if col.Warning != "careful" {
		t.Errorf("warning = %q, want %q", col.Warning, "careful")
	}
	if col.Command != "true" || col.Dir != dir {
		t.Errorf("launch metadata lost: command=%q dir=%q", col.Command, col.Dir)
	}
	if col.Duration < 0 {
		t.Errorf("negative duration %v", col.Duration)
	}
}

func TestBackground_Kill(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "sleep 30", Background: true}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if err := r.Kill(res.Handle); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	waitForState(t, r, res.Handle, types.StateKilled)
}

func TestPoll_UnknownHandle(t *testing.T) {
	r := newTestRunner(t)
	if _, err := r.Poll("no-such-handle"); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestRegistry_EvictionSkipsRunning(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "sleep 5", Background: true}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// Even with a cutoff in the future, a running entry must survive.
	if n := r.registry.evictOlderThan(time.Now().Add(time.Hour)); n != 0 {
		t.Errorf("evicted %d entries, running entry must not be evicted", n)
	}
	if _, err := r.Poll(res.Handle); err != nil {
		t.Errorf("running entry disappeared: %v", err)
	}
	_ = r.Kill(res.Handle)
}

func TestRegistry_EvictionReclaimsExited(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), types.ExecRequest{Command: "true", Background: true}, t.TempDir())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	waitForState(t, r, res.Handle, types.StateCompleted)

	if n := r.registry.evictOlderThan(time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, err := r.Poll(res.Handle); types.KindOf(err) != types.KindNotFound {
		t.Errorf("expected not_found after eviction, got %v", err)
	}
}

func TestSpawnCount(t *testing.T) {
	r := newTestRunner(t)
	if r.SpawnCount() != 0 {
		t.Fatal("fresh runner should have zero spawns")
	}
	if _, err := r.Run(context.Background(), types.ExecRequest{Command: "true"}, t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if r.SpawnCount() != 1 {
		t.Errorf("expected 1 spawn, got %d", r.SpawnCount())
	}
}

// waitForState polls until the background process reaches the wanted
// state or the deadline passes.
func waitForState(t *testing.T, r *Runner, handle string, want types.ProcessState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.Poll(handle)
		if err != nil {
			t.Fatalf("Poll() error: %v", err)
		}
		if snap.State == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("process %s never reached state %s", handle, want)
}
