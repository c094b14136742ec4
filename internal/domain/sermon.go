package domain

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptionStatus represents the overall transcription state of a sermon.
// It mirrors the queue lifecycle but outlives the queue entry itself.
type TranscriptionStatus string

// Possible transcription status values
const (
	TranscriptionStatusPending    TranscriptionStatus = "pending"
	TranscriptionStatusGenerating TranscriptionStatus = "generating"
	TranscriptionStatusCompleted  TranscriptionStatus = "completed"
	TranscriptionStatusFailed     TranscriptionStatus = "failed"
)

// MinUsableTranscriptLength is the transcript length above which a sermon is
// considered already transcribed and is not re-enqueued.
const MinUsableTranscriptLength = 100

// Sermon represents a recorded sermon: the audio being transcribed and the
// resulting transcript. It is the subject of at most one live queue entry.
type Sermon struct {
	ID                  uuid.UUID           `json:"id"`
	Title               string              `json:"title"`
	Speaker             string              `json:"speaker"`
	AudioURL            string              `json:"audio_url"`
	BackupAudioURL      string              `json:"backup_audio_url"`
	TranscriptionStatus TranscriptionStatus `json:"transcription_status"`
	Progress            *Progress           `json:"progress,omitempty"`
	Transcript          string              `json:"transcript,omitempty"`
	Summary             string              `json:"summary,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// AudioSource returns the URL the worker should transcribe from, preferring
// the primary URL over the backup. The second return value reports whether
// any usable source exists.
func (s *Sermon) AudioSource() (string, bool) {
	if s.AudioURL != "" {
		return s.AudioURL, true
	}
	if s.BackupAudioURL != "" {
		return s.BackupAudioURL, true
	}
	return "", false
}

// HasUsableTranscript reports whether the sermon already carries a transcript
// long enough that re-transcription would be a no-op.
func (s *Sermon) HasUsableTranscript() bool {
	return len(s.Transcript) > MinUsableTranscriptLength
}

// Validate checks if the Sermon has valid data.
// Returns an error if any field fails validation.
func (s *Sermon) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySermonID
	}
	if !isValidTranscriptionStatus(s.TranscriptionStatus) {
		return ErrInvalidTranscriptionStatus
	}
	return nil
}

// isValidTranscriptionStatus checks if the given status is a valid TranscriptionStatus.
func isValidTranscriptionStatus(status TranscriptionStatus) bool {
	switch status {
	case TranscriptionStatusPending, TranscriptionStatusGenerating,
		TranscriptionStatusCompleted, TranscriptionStatusFailed:
		return true
	default:
		return false
	}
}
