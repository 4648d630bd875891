// Package transcript accumulates recognition results: an append-only list
// of finalized segments plus at most one interim segment that is rewritten
// until the recognizer finalizes the utterance.
package transcript

import (
	"strings"
	"sync"
)

type Buffer struct {
	mu      sync.Mutex
	final   []string
	interim string
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Partial replaces the interim segment. Empty text is ignored; the
// recognizer emits empty interim results between utterances.
func (b *Buffer) Partial(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	b.interim = text
	b.mu.Unlock()
}

// Final appends a finalized segment and clears the interim one. Empty text
// still clears the interim segment so a silent finalization doesn't leave a
// stale partial on screen.
func (b *Buffer) Final(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if text != "" {
		b.final = append(b.final, text)
	}
	b.interim = ""
}

// Clear empties both the finalized sequence and the interim segment.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.final = nil
	b.interim = ""
	b.mu.Unlock()
}

// Segments returns a copy of the finalized segments in arrival order.
func (b *Buffer) Segments() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.final))
	copy(out, b.final)
	return out
}

// Interim returns the current interim segment, or "" when there is none.
func (b *Buffer) Interim() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interim
}

// String joins the finalized segments with spaces.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.final, " ")
}
