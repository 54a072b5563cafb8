package runner

import "sync"

// truncationMarker prefixes buffer contents once the cap has been hit.
const truncationMarker = "[output truncated, showing most recent bytes]\n"

// tailBuffer is a concurrency-safe writer that keeps at most limit bytes,
// discarding the oldest. Writes never block or fail, so a chatty child
// process can never wedge on its pipe.
type tailBuffer struct {
	mu        sync.Mutex
	limit     int
	data      []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if b.limit > 0 && len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
		b.truncated = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return truncationMarker + string(b.data)
	}
	return string(b.data)
}
