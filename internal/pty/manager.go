// Package pty manages interactive shell sessions. Each session runs a
// shell in the project root under a pseudo-terminal; the API bridges the
// terminal to a websocket.
package pty

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/agentbox/agentbox/internal/metrics"
)

// Session is one live interactive shell.
type Session struct {
	ID  string
	PTY *os.File
	// Done is closed when the shell process exits.
	Done chan struct{}

	cmd *exec.Cmd
}

// Manager owns the session registry.
type Manager struct {
	workDir string

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager; shells start in workDir.
func NewManager(workDir string) *Manager {
	return &Manager{
		workDir:  workDir,
		sessions: make(map[string]*Session),
	}
}

// CreateSession starts a shell under a PTY and registers it.
func (m *Manager) CreateSession(cols, rows uint16) (*Session, error) {
	shell := ""
	for _, sh := range []string{"/bin/bash", "/bin/sh"} {
		if _, err := os.Stat(sh); err == nil {
			shell = sh
			break
		}
	}
	if shell == "" {
		return nil, fmt.Errorf("no shell found")
	}

	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}

	cmd := exec.Command(shell)
	cmd.Dir = m.workDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	sess := &Session{
		ID:   uuid.New().String()[:8],
		PTY:  ptmx,
		Done: make(chan struct{}),
		cmd:  cmd,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	metrics.PTYSessionsActive.Inc()

	go func() {
		cmd.Wait()
		close(sess.Done)
		ptmx.Close()
		m.mu.Lock()
		if _, ok := m.sessions[sess.ID]; ok {
			delete(m.sessions, sess.ID)
			metrics.PTYSessionsActive.Dec()
		}
		m.mu.Unlock()
	}()

	return sess, nil
}

// GetSession looks up a live session.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("pty session %s not found", id)
	}
	return sess, nil
}

// Resize changes the terminal size for a session.
func (m *Manager) Resize(id string, cols, rows uint16) error {
	sess, err := m.GetSession(id)
	if err != nil {
		return err
	}
	if err := pty.Setsize(sess.PTY, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	return nil
}

// KillSession terminates a session's shell and removes it.
func (m *Manager) KillSession(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		metrics.PTYSessionsActive.Dec()
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("pty session %s not found", id)
	}

	sess.PTY.Close()
	if sess.cmd.Process != nil {
		sess.cmd.Process.Kill()
	}
	return nil
}

// CloseAll kills every live session; used on daemon shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.KillSession(id)
	}
}
