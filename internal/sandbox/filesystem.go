package sandbox

import (
	"github.com/agentbox/agentbox/internal/metrics"
	"github.com/agentbox/agentbox/pkg/types"
)

// ReadFile returns a slice of lines from a text file inside the scope.
func (m *Manager) ReadFile(req types.ReadRequest) (*types.ReadResult, error) {
	res, err := m.store.Read(req)
	metrics.FileOpsTotal.WithLabelValues("read", opStatus(err)).Inc()
	return res, err
}

// WriteFile creates or overwrites a file inside the scope.
func (m *Manager) WriteFile(req types.WriteRequest) (*types.WriteResult, error) {
	res, err := m.store.Write(req)
	metrics.FileOpsTotal.WithLabelValues("write", opStatus(err)).Inc()
	return res, err
}

// EditFile performs a uniqueness-checked literal substitution.
func (m *Manager) EditFile(req types.EditRequest) (*types.EditResult, error) {
	res, err := m.store.Edit(req)
	metrics.FileOpsTotal.WithLabelValues("edit", opStatus(err)).Inc()
	return res, err
}

func opStatus(err error) string {
	if err != nil {
		if kind := types.KindOf(err); kind != "" {
			return string(kind)
		}
		return "error"
	}
	return "ok"
}
