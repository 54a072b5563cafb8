package types

// Line is one line of file content, 1-indexed.
type Line struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// ReadRequest is the request body for reading a file slice.
type ReadRequest struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"` // lines to skip, default 0
	Limit  int    `json:"limit,omitempty"`  // max lines, default 2000
}

// ReadResult holds the requested slice of lines.
type ReadResult struct {
	Lines []Line `json:"lines"`
}

// WriteRequest is the request body for creating or overwriting a file.
type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteResult reports whether the write created a new file.
type WriteResult struct {
	Created bool `json:"created"`
}

// EditRequest is the request body for a literal-substitution edit.
type EditRequest struct {
	Path       string `json:"path"`
	OldContent string `json:"oldContent"`
	NewContent string `json:"newContent"`
	ReplaceAll bool   `json:"replaceAll,omitempty"`
}

// EditResult reports the outcome of a successful edit.
type EditResult struct {
	BytesChanged int `json:"bytesChanged"`
	Replacements int `json:"replacements"`
}
