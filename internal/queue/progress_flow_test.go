package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpulpit/sermon-api/internal/domain"
)

func TestReportChunk(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	startJob := func(t *testing.T, env *testEnv) *domain.Sermon {
		t.Helper()
		sermon := env.addSermon(t, nil)
		_, err := env.svc.Add(ctx, sermon.ID)
		require.NoError(t, err)
		result, err := env.svc.Process(ctx)
		require.NoError(t, err)
		require.True(t, result.Started)
		return sermon
	}

	t.Run("assembles the transcript when the last chunk lands", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := startJob(t, env)

		// Chunks arrive out of order; assembly is by ascending index.
		chunks := []domain.ChunkResult{
			{Index: 2, TotalChunks: 3, Text: "c"},
			{Index: 0, TotalChunks: 3, Text: "a"},
			{Index: 1, TotalChunks: 3, Text: "b"},
		}

		for i, chunk := range chunks {
			report, err := env.svc.ReportChunk(ctx, sermon.ID, chunk)
			require.NoError(t, err)
			assert.Equal(t, i == len(chunks)-1, report.Finished)
		}

		stored, err := env.sermons.GetByID(ctx, sermon.ID)
		require.NoError(t, err)
		assert.Equal(t, "a b c", stored.Transcript)
		assert.Equal(t, domain.TranscriptionStatusCompleted, stored.TranscriptionStatus)
		assert.Equal(t, domain.ProgressStepCompleted, stored.Progress.Step)

		// The finished job releases the processing slot.
		snapshot, err := env.svc.List(ctx)
		require.NoError(t, err)
		assert.Nil(t, snapshot.Processing)
	})

	t.Run("a retried chunk clears its earlier failure", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := startJob(t, env)

		_, err := env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 1, TotalChunks: 2, ErrorText: "decode error",
		})
		require.NoError(t, err)

		stored, err := env.sermons.GetByID(ctx, sermon.ID)
		require.NoError(t, err)
		assert.Equal(t, "decode error", stored.Progress.FailedChunks[1])

		_, err = env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 1, TotalChunks: 2, Text: "second time lucky",
		})
		require.NoError(t, err)

		stored, err = env.sermons.GetByID(ctx, sermon.ID)
		require.NoError(t, err)
		assert.Equal(t, "second time lucky", stored.Progress.CompletedChunks[1])
		assert.NotContains(t, stored.Progress.FailedChunks, 1)
	})

	t.Run("a failure never displaces a completed chunk", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := startJob(t, env)

		_, err := env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 0, TotalChunks: 2, Text: "done",
		})
		require.NoError(t, err)

		_, err = env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 0, TotalChunks: 2, ErrorText: "late failure",
		})
		require.NoError(t, err)

		stored, err := env.sermons.GetByID(ctx, sermon.ID)
		require.NoError(t, err)
		assert.Equal(t, "done", stored.Progress.CompletedChunks[0])
		assert.NotContains(t, stored.Progress.FailedChunks, 0)
	})

	t.Run("rejects an out-of-range chunk index", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := startJob(t, env)

		_, err := env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 5, TotalChunks: 3, Text: "x",
		})
		require.Error(t, err)
	})

	t.Run("does not finish while chunks are missing", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := startJob(t, env)

		report, err := env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
			Index: 0, TotalChunks: 2, Text: "only half",
		})
		require.NoError(t, err)
		assert.False(t, report.Finished)

		stored, err := env.sermons.GetByID(ctx, sermon.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Transcript)
		assert.Equal(t, domain.TranscriptionStatusGenerating, stored.TranscriptionStatus)
	})
}

func TestCompleteJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores a worker-supplied transcript verbatim", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := env.addSermon(t, nil)
		added, err := env.svc.Add(ctx, sermon.ID)
		require.NoError(t, err)
		_, err = env.svc.Process(ctx)
		require.NoError(t, err)

		updated, err := env.svc.CompleteJob(ctx, sermon.ID, "the full transcript")
		require.NoError(t, err)
		assert.Equal(t, "the full transcript", updated.Transcript)
		assert.Equal(t, domain.TranscriptionStatusCompleted, updated.TranscriptionStatus)

		entry, err := env.entries.GetByID(ctx, added.Entry.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueEntryStatusCompleted, entry.Status)
	})

	t.Run("assembles from stored chunks when no transcript is given", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := env.addSermon(t, nil)
		_, err := env.svc.Add(ctx, sermon.ID)
		require.NoError(t, err)
		_, err = env.svc.Process(ctx)
		require.NoError(t, err)

		for i, text := range []string{"first", "second"} {
			_, err = env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
				Index: i, TotalChunks: 3, Text: text,
			})
			require.NoError(t, err)
		}
		// Chunk 2 is missing; only 0 and 1 are assembled.
		updated, err := env.svc.CompleteJob(ctx, sermon.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "first second", updated.Transcript)
	})

	t.Run("fails with neither transcript nor chunks", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		sermon := env.addSermon(t, nil)
		_, err := env.svc.Add(ctx, sermon.ID)
		require.NoError(t, err)
		_, err = env.svc.Process(ctx)
		require.NoError(t, err)

		_, err = env.svc.CompleteJob(ctx, sermon.ID, "")
		require.Error(t, err)
	})
}

func TestFailJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	sermon := env.addSermon(t, nil)
	added, err := env.svc.Add(ctx, sermon.ID)
	require.NoError(t, err)
	_, err = env.svc.Process(ctx)
	require.NoError(t, err)

	_, err = env.svc.ReportChunk(ctx, sermon.ID, domain.ChunkResult{
		Index: 0, TotalChunks: 4, Text: "salvaged",
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.FailJob(ctx, sermon.ID, "audio truncated"))

	entry, err := env.entries.GetByID(ctx, added.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueEntryStatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "audio truncated")

	stored, err := env.sermons.GetByID(ctx, sermon.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptionStatusFailed, stored.TranscriptionStatus)
	// Completed chunks survive the failure for a later re-run.
	assert.Equal(t, "salvaged", stored.Progress.CompletedChunks[0])
}

func TestJobStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	sermon := env.addSermon(t, nil)
	added, err := env.svc.Add(ctx, sermon.ID)
	require.NoError(t, err)

	entry, err := env.svc.JobStatus(ctx, added.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueEntryStatusQueued, entry.Status)
}
