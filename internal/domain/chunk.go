package domain

// ChunkResult is one per-chunk report from the transcription worker.
// Exactly one of Text or ErrorText is meaningful: an empty ErrorText marks
// the chunk as completed with Text, a non-empty one marks it as failed.
type ChunkResult struct {
	Index       int    `json:"index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text,omitempty"`
	ErrorText   string `json:"error,omitempty"`
}

// Failed reports whether this result records a chunk failure.
func (r ChunkResult) Failed() bool {
	return r.ErrorText != ""
}

// Validate checks the result's index bounds.
func (r ChunkResult) Validate() error {
	if r.Index < 0 {
		return ErrChunkIndexOutOfRange
	}
	if r.TotalChunks > 0 && r.Index >= r.TotalChunks {
		return ErrChunkIndexOutOfRange
	}
	return nil
}
