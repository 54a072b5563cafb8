package runner

import (
	"sync"
	"time"

	"github.com/agentbox/agentbox/pkg/types"
)

// process is a registry entry for one background command. Mutated only
// by the monitor goroutine and the registry, always under the lock.
type process struct {
	handle     string
	pid        int
	command    string
	dir        string
	startedAt  time.Time
	finishedAt time.Time
	state      types.ProcessState
	exitCode   *int
	warning    string
	stdout     *tailBuffer
	stderr     *tailBuffer
}

// registry owns all live background process entries. It is the only
// shared mutable state in the runner; every access goes through the
// mutex, and readers get copies, never references.
type registry struct {
	mu    sync.Mutex
	procs map[string]*process
}

func newRegistry() *registry {
	return &registry{procs: make(map[string]*process)}
}

func (r *registry) insert(p *process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[p.handle] = p
}

// finish records the terminal state of an entry. Called by the monitor
// goroutine exactly once per process.
func (r *registry) finish(handle string, state types.ProcessState, exitCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[handle]
	if !ok {
		return
	}
	code := exitCode
	p.state = state
	p.exitCode = &code
	p.finishedAt = time.Now()
}

// snapshot returns a read-only copy of an entry, safe to serialize
// without holding the lock.
func (r *registry) snapshot(handle string) (*types.ProcessSnapshot, error) {
	r.mu.Lock()
	p, ok := r.procs[handle]
	if !ok {
		r.mu.Unlock()
		return nil, types.NewError(types.KindNotFound, "unknown process handle: %s", handle)
	}
	snap := &types.ProcessSnapshot{
		Handle:    p.handle,
		PID:       p.pid,
		State:     p.state,
		StartedAt: p.startedAt,
	}
	if p.exitCode != nil {
		code := *p.exitCode
		snap.ExitCode = &code
	}
	stdout, stderr := p.stdout, p.stderr
	r.mu.Unlock()

	// Buffers have their own locks; read them outside ours.
	snap.Stdout = stdout.String()
	snap.Stderr = stderr.String()
	return snap, nil
}

// take removes and returns a terminal entry. Running entries are left in
// place and reported as still_running.
func (r *registry) take(handle string) (*process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[handle]
	if !ok {
		return nil, types.NewError(types.KindNotFound, "unknown process handle: %s", handle)
	}
	if p.state == types.StateRunning {
		return nil, types.NewError(types.KindStillRunning, "process %s has not exited yet", handle)
	}
	delete(r.procs, handle)
	return p, nil
}

// annotate attaches a warning to an entry after launch. No-op for
// unknown handles.
func (r *registry) annotate(handle, warning string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.procs[handle]; ok {
		p.warning = warning
	}
}

func (r *registry) get(handle string) (*process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.procs[handle]
	return p, ok
}

// evictOlderThan removes exited entries whose processes finished before
// the cutoff. Running entries are never evicted.
func (r *registry) evictOlderThan(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for handle, p := range r.procs {
		if p.state != types.StateRunning && p.finishedAt.Before(cutoff) {
			delete(r.procs, handle)
			evicted++
		}
	}
	return evicted
}

// handles returns the handles of all live entries.
func (r *registry) handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.procs))
	for h := range r.procs {
		out = append(out, h)
	}
	return out
}
