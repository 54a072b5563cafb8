package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentbox/agentbox/pkg/types"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	m := NewManager(Options{
		Roots:          []string{root},
		DefaultTimeout: 10 * time.Second,
		MaxTimeout:     30 * time.Second,
		OutputLimit:    64 * 1024,
	})
	t.Cleanup(m.Close)
	return m, root
}

func TestExec_Allowed(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Exec(context.Background(), types.ExecRequest{Command: "echo ok"})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if !res.Success || res.Stdout != "ok\n" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning: %q", res.Warning)
	}
}

func TestExec_BlockedSpawnsNothing(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Exec(context.Background(), types.ExecRequest{Command: "rm -rf /"})
	if types.KindOf(err) != types.KindBlocked {
		t.Fatalf("expected blocked, got %v", err)
	}
	if m.SpawnCount() != 0 {
		t.Errorf("blocked command spawned %d processes, want 0", m.SpawnCount())
	}
}

func TestExec_WarnStillRuns(t *testing.T) {
	m, root := newTestManager(t)
	// Relative target: recursive deletes of absolute paths hit the block
	// tier instead.
	res, err := m.Exec(context.Background(), types.ExecRequest{
		Command:    "rm -rf ./scratch-subdir-that-does-not-exist",
		WorkingDir: root,
	})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected warn-tier command to carry a warning")
	}
	if m.SpawnCount() != 1 {
		t.Errorf("warn-tier command should run; spawns = %d", m.SpawnCount())
	}
}

func TestExec_WorkingDirOutsideScope(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Exec(context.Background(), types.ExecRequest{Command: "ls", WorkingDir: "/etc"})
	if types.KindOf(err) != types.KindOutsideScope {
		t.Fatalf("expected outside_allowed_scope, got %v", err)
	}
	if m.SpawnCount() != 0 {
		t.Errorf("out-of-scope command spawned %d processes, want 0", m.SpawnCount())
	}
}

func TestExec_DefaultsToProjectRoot(t *testing.T) {
	m, root := newTestManager(t)
	res, err := m.Exec(context.Background(), types.ExecRequest{Command: "pwd"})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	got := strings.TrimSpace(res.Stdout)
	if got == "" {
		t.Fatal("empty pwd output")
	}
	// The runner resolves symlinks, so compare suffixes.
	if !strings.HasSuffix(got, root[strings.LastIndex(root, "/"):]) {
		t.Errorf("pwd %q does not look like project root %q", got, root)
	}
}

func TestExec_BackgroundRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Exec(context.Background(), types.ExecRequest{Command: "echo bg", Background: true})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if res.Handle == "" {
		t.Fatal("no handle returned")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := m.Poll(res.Handle)
		if err != nil {
			t.Fatalf("Poll() error: %v", err)
		}
		if snap.State != types.StateRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background command never finished")
		}
		time.Sleep(20 * time.Millisecond)
	}

	final, err := m.Collect(res.Handle)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if final.Stdout != "bg\n" {
		t.Errorf("unexpected stdout: %q", final.Stdout)
	}
}

func TestExec_BackgroundWarningSurvivesCollect(t *testing.T) {
	m, root := newTestManager(t)
	res, err := m.Exec(context.Background(), types.ExecRequest{
		Command:    "rm -rf ./does-not-exist",
		WorkingDir: root,
		Background: true,
	})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if res.Warning == "" {
		t.Fatal("launch result missing warning")
	}

	waitForCollectable(t, m, res.Handle)
	final, err := m.Collect(res.Handle)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if final.Warning != res.Warning {
		t.Errorf("collected warning %q, want %q", final.Warning, res.Warning)
	}
}

// waitForCollectable polls until the background process has exited.
func waitForCollectable(t *testing.T, m *Manager, handle string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Poll(handle)
		if err != nil {
			t.Fatalf("Poll() error: %v", err)
		}
		if snap.State != types.StateRunning {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("process %s never exited", handle)
}

type recordingLogger struct {
	commands []string
}

func (l *recordingLogger) LogCommand(command, cwd string, exitCode, durationMs, stdoutLen, stderrLen int) error {
	l.commands = append(l.commands, command)
	return nil
}

func TestExec_LogsCommands(t *testing.T) {
	root := t.TempDir()
	logger := &recordingLogger{}
	m := NewManager(Options{
		Roots:  []string{root},
		Logger: logger,
	})
	t.Cleanup(m.Close)

	if _, err := m.Exec(context.Background(), types.ExecRequest{Command: "echo logged"}); err != nil {
		t.Fatal(err)
	}
	if len(logger.commands) != 1 || logger.commands[0] != "echo logged" {
		t.Errorf("unexpected audit records: %v", logger.commands)
	}
}

func TestExec_BackgroundLoggedOnCollect(t *testing.T) {
	root := t.TempDir()
	logger := &recordingLogger{}
	m := NewManager(Options{
		Roots:  []string{root},
		Logger: logger,
	})
	t.Cleanup(m.Close)

	res, err := m.Exec(context.Background(), types.ExecRequest{
		Command:    "echo bg-logged",
		Background: true,
	})
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if len(logger.commands) != 0 {
		t.Fatalf("background launch logged early: %v", logger.commands)
	}

	waitForCollectable(t, m, res.Handle)
	if _, err := m.Collect(res.Handle); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(logger.commands) != 1 || logger.commands[0] != "echo bg-logged" {
		t.Errorf("unexpected audit records: %v", logger.commands)
	}
}
