// Package sandbox wires the safety layers together: command policy and
// path scope screening in front of the process runner, and path scope in
// front of the file store. Callers talk to the Manager; the leaf
// packages stay independent.
package sandbox

import (
	"time"

	"github.com/agentbox/agentbox/internal/filestore"
	"github.com/agentbox/agentbox/internal/runner"
	"github.com/agentbox/agentbox/internal/scope"
)

// CommandLogger receives a record of every executed command. Implemented
// by the audit log; nil disables logging.
type CommandLogger interface {
	LogCommand(command, cwd string, exitCode, durationMs, stdoutLen, stderrLen int) error
}

// Manager owns the engines and the composition rules between them.
type Manager struct {
	guard  *scope.Guard
	runner *runner.Runner
	store  *filestore.Store

	projectRoot string
	logger      CommandLogger
}

// Options configures a Manager.
type Options struct {
	Roots          []string // allowed roots; Roots[0] is the project root
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	OutputLimit    int
	Retention      time.Duration
	Logger         CommandLogger
}

// NewManager builds the guard, runner and store from one set of options.
func NewManager(opts Options) *Manager {
	guard := scope.NewGuard(opts.Roots)
	return &Manager{
		guard: guard,
		runner: runner.New(runner.Options{
			DefaultTimeout: opts.DefaultTimeout,
			MaxTimeout:     opts.MaxTimeout,
			OutputLimit:    opts.OutputLimit,
			Retention:      opts.Retention,
		}),
		store:       filestore.NewStore(guard),
		projectRoot: opts.Roots[0],
		logger:      opts.Logger,
	}
}

// Close releases the runner's background resources.
func (m *Manager) Close() {
	m.runner.Close()
}

// SpawnCount reports how many processes have been started, for tests
// verifying that rejected commands spawn nothing.
func (m *Manager) SpawnCount() int64 {
	return m.runner.SpawnCount()
}
