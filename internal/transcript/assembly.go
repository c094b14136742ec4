// Package transcript implements transcript assembly from worker chunk
// results and character-bounded text chunking for downstream summarization.
//
// The two chunking schemes are deliberately independent: transcription
// chunks are time-bounded audio segments produced by the worker and indexed
// 0..N-1, while summarization chunks are character-bounded slices of the
// finished text. Neither is derived from the other.
package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ChunkSeparator joins completed chunk texts into the final transcript.
const ChunkSeparator = " "

// ErrIncompleteChunks is returned when assembly is attempted before every
// chunk index has a completed result.
var ErrIncompleteChunks = errors.New("transcript chunks incomplete")

// Assemble concatenates completed chunk texts in ascending index order into
// the full transcript. All indices 0..total-1 must be present; this is the
// only supported assembly rule.
func Assemble(chunks map[int]string, total int) (string, error) {
	if total <= 0 {
		return "", fmt.Errorf("%w: total chunk count unknown", ErrIncompleteChunks)
	}

	parts := make([]string, 0, total)
	for i := 0; i < total; i++ {
		text, ok := chunks[i]
		if !ok {
			return "", fmt.Errorf("%w: missing chunk %d of %d", ErrIncompleteChunks, i, total)
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, ChunkSeparator), nil
}

// OrderedTexts returns the chunk texts in ascending index order, skipping
// nothing and requiring nothing: missing indices are simply absent. Used by
// the summarizer, which can work from a partial or complete chunk map.
func OrderedTexts(chunks map[int]string) []string {
	indices := make([]int, 0, len(chunks))
	for i := range chunks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	texts := make([]string, 0, len(indices))
	for _, i := range indices {
		texts = append(texts, chunks[i])
	}
	return texts
}
