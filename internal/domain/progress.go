package domain

// Progress step identifiers recorded in a sermon's progress snapshot.
const (
	ProgressStepQueued       = "queued"
	ProgressStepProcessing   = "processing"
	ProgressStepTranscribing = "transcribing"
	ProgressStepCancelled    = "cancelled"
	ProgressStepFailed       = "failed"
	ProgressStepCompleted    = "completed"
)

// Progress is the durable progress snapshot stored on a sermon. The worker
// reports per-chunk results into it as each audio chunk finishes; completed
// chunk text survives cancellation until explicitly cleared.
//
// CompletedChunks and FailedChunks are disjoint by index: a later success
// for an index removes any earlier failure, and a failure never overwrites
// a completion.
type Progress struct {
	Step            string         `json:"step,omitempty"`
	Message         string         `json:"message,omitempty"`
	Position        int            `json:"position,omitempty"`
	TotalChunks     int            `json:"totalChunks,omitempty"`
	CompletedChunks map[int]string `json:"completedChunks,omitempty"`
	FailedChunks    map[int]string `json:"failedChunks,omitempty"`
}

// NewProgress creates a snapshot at the given step with a message.
func NewProgress(step, message string) *Progress {
	return &Progress{Step: step, Message: message}
}

// MarkChunkCompleted records a successful chunk result. Any prior failure
// for the same index is removed to keep the two maps disjoint.
func (p *Progress) MarkChunkCompleted(index int, text string) error {
	if index < 0 {
		return ErrChunkIndexOutOfRange
	}
	if p.CompletedChunks == nil {
		p.CompletedChunks = make(map[int]string)
	}
	p.CompletedChunks[index] = text
	delete(p.FailedChunks, index)
	return nil
}

// MarkChunkFailed records a failed chunk result. A failure never displaces
// an already-completed chunk for the same index.
func (p *Progress) MarkChunkFailed(index int, errorText string) error {
	if index < 0 {
		return ErrChunkIndexOutOfRange
	}
	if _, done := p.CompletedChunks[index]; done {
		return nil
	}
	if p.FailedChunks == nil {
		p.FailedChunks = make(map[int]string)
	}
	p.FailedChunks[index] = errorText
	return nil
}

// ChunksComplete reports whether every chunk index 0..TotalChunks-1 has a
// completed result. It is false when the total is unknown.
func (p *Progress) ChunksComplete() bool {
	if p.TotalChunks <= 0 {
		return false
	}
	for i := 0; i < p.TotalChunks; i++ {
		if _, ok := p.CompletedChunks[i]; !ok {
			return false
		}
	}
	return true
}

// ClearChunks empties both chunk maps without touching step or message.
// Used to force a clean re-run of a transcription.
func (p *Progress) ClearChunks() {
	p.CompletedChunks = nil
	p.FailedChunks = nil
}

// Clone returns a deep copy of the snapshot.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	cp := *p
	if p.CompletedChunks != nil {
		cp.CompletedChunks = make(map[int]string, len(p.CompletedChunks))
		for k, v := range p.CompletedChunks {
			cp.CompletedChunks[k] = v
		}
	}
	if p.FailedChunks != nil {
		cp.FailedChunks = make(map[int]string, len(p.FailedChunks))
		for k, v := range p.FailedChunks {
			cp.FailedChunks[k] = v
		}
	}
	return &cp
}
