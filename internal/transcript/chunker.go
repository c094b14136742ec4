package transcript

import "strings"

// DefaultMaxChunkChars bounds summarization chunks when no explicit limit
// is configured.
const DefaultMaxChunkChars = 4000

// SplitByChars splits text into chunks of at most maxChars characters,
// breaking on word boundaries where possible. A single word longer than
// maxChars is split mid-word rather than producing an oversized chunk.
// Empty or whitespace-only input yields no chunks.
func SplitByChars(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			chunks = append(chunks, sb.String())
			sb.Reset()
		}
	}

	for _, word := range words {
		for len(word) > maxChars {
			flush()
			chunks = append(chunks, word[:maxChars])
			word = word[maxChars:]
		}
		if word == "" {
			continue
		}

		needed := len(word)
		if sb.Len() > 0 {
			needed++ // joining space
		}
		if sb.Len()+needed > maxChars {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(word)
	}
	flush()

	return chunks
}
