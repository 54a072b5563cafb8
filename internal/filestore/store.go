// Package filestore implements the path-guarded file operations: ranged
// reads, atomic whole-file writes, and literal-substitution edits.
package filestore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentbox/agentbox/internal/scope"
	"github.com/agentbox/agentbox/internal/textmatch"
	"github.com/agentbox/agentbox/pkg/types"
)

const (
	// DefaultReadLimit is the number of lines returned when the request
	// does not specify one.
	DefaultReadLimit = 2000
	// MaxLineLength truncates pathological single lines.
	MaxLineLength = 2000
	// MaxFileSize caps files the store will read or edit.
	MaxFileSize = 10 * 1024 * 1024
)

// Store performs file I/O under the guard's allowed roots.
type Store struct {
	guard *scope.Guard
}

// NewStore creates a Store using the given guard.
func NewStore(guard *scope.Guard) *Store {
	return &Store{guard: guard}
}

// Read returns a slice of lines from a text file, 1-indexed. An offset
// at or past the end of the file yields an empty result, not an error.
func (s *Store) Read(req types.ReadRequest) (*types.ReadResult, error) {
	path, err := s.guard.ResolveFile(req.Path)
	if err != nil {
		return nil, err
	}

	data, err := s.readText(path)
	if err != nil {
		return nil, err
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	lines := splitLines(data)
	if offset >= len(lines) {
		return &types.ReadResult{Lines: []types.Line{}}, nil
	}
	end := offset + limit
	if end > len(lines) {
		end = len(lines)
	}

	out := make([]types.Line, 0, end-offset)
	for i := offset; i < end; i++ {
		text := lines[i]
		if len(text) > MaxLineLength {
			text = text[:MaxLineLength] + "... [line truncated]"
		}
		out = append(out, types.Line{Number: i + 1, Text: text})
	}
	return &types.ReadResult{Lines: out}, nil
}

// Write creates or overwrites a file with the full content, atomically
// via a temp file in the same directory. Reports whether a new file was
// created.
func (s *Store) Write(req types.WriteRequest) (*types.WriteResult, error) {
	path, err := s.guard.ResolveForWrite(req.Path)
	if err != nil {
		return nil, err
	}

	created := false
	if _, err := os.Stat(path); err != nil {
		created = true
	}

	if err := writeAtomic(path, []byte(req.Content)); err != nil {
		return nil, err
	}
	return &types.WriteResult{Created: created}, nil
}

// Edit replaces oldContent with newContent in a text file under the
// uniqueness contract and writes the result back atomically. A failed
// edit leaves the file untouched.
func (s *Store) Edit(req types.EditRequest) (*types.EditResult, error) {
	if req.OldContent == "" {
		return nil, types.NewError(types.KindNotFound, "oldContent must not be empty")
	}

	path, err := s.guard.ResolveFile(req.Path)
	if err != nil {
		return nil, err
	}

	data, err := s.readText(path)
	if err != nil {
		return nil, err
	}

	updated, n, err := textmatch.Replace(string(data), req.OldContent, req.NewContent, req.ReplaceAll)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(path, []byte(updated)); err != nil {
		return nil, err
	}

	// BytesChanged counts the bytes inside the matched spans before and
	// after: removed old bytes plus inserted new bytes.
	changed := n * (len(req.OldContent) + len(req.NewContent))
	return &types.EditResult{BytesChanged: changed, Replacements: n}, nil
}

// readText loads a file and rejects oversized or binary content.
func (s *Store) readText(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.NewError(types.KindNotFound, "file does not exist: %s", path)
	}
	if info.Size() > MaxFileSize {
		return nil, types.NewError(types.KindNotText, "file exceeds %d byte limit: %s", MaxFileSize, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if isBinary(data) {
		return nil, types.NewError(types.KindNotText, "file does not contain text: %s", path)
	}
	return data, nil
}

// isBinary scans the first chunk for NUL bytes. BOM-prefixed content is
// always treated as text.
func isBinary(data []byte) bool {
	chunk := data
	if len(chunk) > 8192 {
		chunk = chunk[:8192]
	}
	if bytes.HasPrefix(chunk, []byte{0xEF, 0xBB, 0xBF}) {
		return false
	}
	return bytes.IndexByte(chunk, 0) >= 0
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place, so a failed write never leaves a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".agentbox-*")
	if err != nil {
		return types.NewError(types.KindNotWritable, "cannot create temp file in %s: %v", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.NewError(types.KindNotWritable, "write failed: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.NewError(types.KindNotWritable, "close failed: %v", err)
	}

	// Preserve existing permissions; default 0644 for new files.
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return types.NewError(types.KindNotWritable, "rename into place failed: %v", err)
	}
	return nil
}

// splitLines splits content on \n. A trailing newline does not produce
// a phantom empty final line.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
