// Package textmatch locates and replaces literal text blocks inside file
// content. Matching is byte-for-byte; no regex, no whitespace
// normalization. The uniqueness contract is the safety rail that forces
// callers to supply enough context to address exactly one occurrence.
package textmatch

import (
	"strings"

	"github.com/agentbox/agentbox/pkg/types"
)

// Span is a byte-offset range [Start, End) identifying a match.
type Span struct {
	Start int
	End   int
}

// Locate returns the non-overlapping occurrences of old in content,
// left to right. old must be non-empty.
func Locate(content, old string) []Span {
	if old == "" {
		return nil
	}
	var spans []Span
	for from := 0; ; {
		i := strings.Index(content[from:], old)
		if i < 0 {
			break
		}
		start := from + i
		spans = append(spans, Span{Start: start, End: start + len(old)})
		from = start + len(old)
	}
	return spans
}

// Replace substitutes old with new in content under the uniqueness
// contract: exactly one match unless replaceAll. It returns the new
// content and the number of replacements made. Offsets are computed
// against the original content, so overlapping corruption is impossible
// and bytes outside the matched spans are preserved exactly.
func Replace(content, old, repl string, replaceAll bool) (string, int, error) {
	spans := Locate(content, old)
	switch {
	case len(spans) == 0:
		return "", 0, types.NewError(types.KindNotFound, "old content not found in file")
	case len(spans) > 1 && !replaceAll:
		return "", 0, types.AmbiguousMatchError(len(spans))
	}

	var b strings.Builder
	b.Grow(len(content) + (len(repl)-len(old))*len(spans))
	prev := 0
	for _, s := range spans {
		b.WriteString(content[prev:s.Start])
		b.WriteString(repl)
		prev = s.End
	}
	b.WriteString(content[prev:])
	return b.String(), len(spans), nil
}
