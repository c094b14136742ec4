// Package summary generates sermon summaries from finished transcripts
// using the Gemini API.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/openpulpit/sermon-api/internal/config"
	"github.com/openpulpit/sermon-api/internal/domain"
	"github.com/openpulpit/sermon-api/internal/store"
	"github.com/openpulpit/sermon-api/internal/transcript"
)

// Sentinel errors returned by the summarizer.
var (
	// ErrInvalidConfig indicates the summarizer configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid summarizer configuration")

	// ErrNoTranscript indicates the sermon has no text to summarize.
	ErrNoTranscript = errors.New("sermon has no transcript to summarize")

	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("model returned an empty summary")
)

const (
	chunkPromptFormat = "Summarize this portion of a sermon transcript in a few sentences, " +
		"keeping the key points and any scripture references:\n\n%s"

	finalPromptFormat = "Write a concise summary of this sermon based on the following notes. " +
		"Cover the main message, key points, and scripture references:\n\n%s"
)

// Summarizer generates and stores sermon summaries. Transcripts longer than
// the configured chunk size are summarized map-reduce style: each chunk is
// summarized on its own and the partial summaries are condensed in a final
// pass.
type Summarizer struct {
	logger        *slog.Logger
	sermons       store.SermonStore
	model         string
	maxChunkChars int

	// generate performs one model call. Overridable in tests.
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewSummarizer creates a Summarizer backed by the Gemini API.
func NewSummarizer(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.SummaryConfig,
	sermons store.SermonStore,
) (*Summarizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if sermons == nil {
		return nil, errors.New("sermon store cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	maxChunkChars := cfg.MaxChunkChars
	if maxChunkChars <= 0 {
		maxChunkChars = transcript.DefaultMaxChunkChars
	}

	s := &Summarizer{
		logger:        logger.With(slog.String("component", "summarizer")),
		sermons:       sermons,
		model:         cfg.ModelName,
		maxChunkChars: maxChunkChars,
	}
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
		if err != nil {
			return "", fmt.Errorf("gemini call failed: %w", err)
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	}

	return s, nil
}

// SummarizeSermon generates a summary for the sermon's transcript, stores it
// on the sermon, and returns it. When the sermon has no final transcript but
// does have completed chunk results, those are summarized instead.
func (s *Summarizer) SummarizeSermon(ctx context.Context, sermonID uuid.UUID) (string, error) {
	sermon, err := s.sermons.GetByID(ctx, sermonID)
	if err != nil {
		return "", err
	}

	text := s.sourceText(sermon)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTranscript
	}

	summary, err := s.summarizeText(ctx, text)
	if err != nil {
		return "", err
	}

	if err := s.sermons.SetSummary(ctx, sermonID, summary); err != nil {
		return "", fmt.Errorf("failed to store summary: %w", err)
	}

	s.logger.InfoContext(ctx, "sermon summarized",
		"sermon_id", sermonID,
		"transcript_length", len(text),
		"summary_length", len(summary))

	return summary, nil
}

// sourceText picks the text to summarize: the final transcript when present,
// otherwise the completed chunk results joined in order.
func (s *Summarizer) sourceText(sermon *domain.Sermon) string {
	if sermon.Transcript != "" {
		return sermon.Transcript
	}
	if sermon.Progress == nil {
		return ""
	}
	return strings.Join(
		transcript.OrderedTexts(sermon.Progress.CompletedChunks),
		transcript.ChunkSeparator)
}

func (s *Summarizer) summarizeText(ctx context.Context, text string) (string, error) {
	chunks := transcript.SplitByChars(text, s.maxChunkChars)
	if len(chunks) <= 1 {
		return s.generate(ctx, fmt.Sprintf(finalPromptFormat, text))
	}

	s.logger.DebugContext(ctx, "summarizing in chunks", "chunks", len(chunks))

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partial, err := s.generate(ctx, fmt.Sprintf(chunkPromptFormat, chunk))
		if err != nil {
			return "", fmt.Errorf("failed to summarize chunk %d of %d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partial)
	}

	return s.generate(ctx, fmt.Sprintf(finalPromptFormat, strings.Join(partials, "\n\n")))
}
