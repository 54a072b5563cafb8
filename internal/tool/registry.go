// Package tool exposes the manager's operations behind a uniform
// name-keyed dispatch table. Collaborating surfaces (HTTP API, CLI)
// invoke tools by name with a JSON payload and get back a typed result
// or a typed error; new tools are added by registering a handler, not by
// extending a type hierarchy.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/agentbox/agentbox/internal/metrics"
	"github.com/agentbox/agentbox/internal/sandbox"
	"github.com/agentbox/agentbox/pkg/types"
)

// Handler executes one tool against a raw JSON payload.
type Handler func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// InvocationLogger receives a record of every dispatch. Implemented by
// the audit log; nil disables logging.
type InvocationLogger interface {
	LogInvocation(tool string, durationMs int, errKind string) error
}

// Registry is the closed dispatch table over the manager's operations.
type Registry struct {
	handlers map[string]Handler
	logger   InvocationLogger
}

// NewRegistry builds the table with the six core tools registered.
func NewRegistry(mgr *sandbox.Manager, logger InvocationLogger) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}

	register(r, "run_command", func(ctx context.Context, req types.ExecRequest) (interface{}, error) {
		return mgr.Exec(ctx, req)
	})
	register(r, "poll_command", func(ctx context.Context, req handleRequest) (interface{}, error) {
		return mgr.Poll(req.Handle)
	})
	register(r, "collect_command", func(ctx context.Context, req handleRequest) (interface{}, error) {
		return mgr.Collect(req.Handle)
	})
	register(r, "read_file", func(ctx context.Context, req types.ReadRequest) (interface{}, error) {
		return mgr.ReadFile(req)
	})
	register(r, "write_file", func(ctx context.Context, req types.WriteRequest) (interface{}, error) {
		return mgr.WriteFile(req)
	})
	register(r, "edit_file", func(ctx context.Context, req types.EditRequest) (interface{}, error) {
		return mgr.EditFile(req)
	})

	return r
}

type handleRequest struct {
	Handle string `json:"handle"`
}

// register adds a tool whose payload unmarshals into R.
func register[R any](r *Registry, name string, fn func(ctx context.Context, req R) (interface{}, error)) {
	r.handlers[name] = func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var req R
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("invalid payload for %s: %w", name, err)
			}
		}
		return fn(ctx, req)
	}
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes a tool by name. Unknown names fail with not_found.
func (r *Registry) Dispatch(ctx context.Context, name string, payload json.RawMessage) (interface{}, error) {
	h, ok := r.handlers[name]
	if !ok {
		metrics.ToolInvocationsTotal.WithLabelValues(name, "unknown").Inc()
		return nil, types.NewError(types.KindNotFound, "unknown tool: %s", name)
	}

	start := time.Now()
	result, err := h(ctx, payload)
	durationMs := int(time.Since(start).Milliseconds())

	status := "ok"
	if err != nil {
		status = "error"
		if kind := types.KindOf(err); kind != "" {
			status = string(kind)
		}
	}
	metrics.ToolInvocationsTotal.WithLabelValues(name, status).Inc()
	if r.logger != nil {
		errKind := ""
		if err != nil {
			errKind = status
		}
		_ = r.logger.LogInvocation(name, durationMs, errKind)
	}
	return result, err
}
