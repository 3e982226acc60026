package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/errors"
	qtesting "github.com/vibecheck/vibegraph/internal/testing"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewWithDB(qtesting.CreateTestDB(t), nil)
	require.NoError(t, err)
	return a
}

func sampleRun(id string, completedAt time.Time) Run {
	return Run{
		AnalysisID:   id,
		RepoURL:      "https://github.com/acme/shop",
		RepoName:     "shop",
		Branch:       "main",
		Status:       analysis.StatusCompleted,
		OverallScore: 74,
		LetterGrade:  "C",
		Findings: analysis.FindingsSummary{
			Critical: 2, Warning: 5, Info: 9, Total: 16,
		},
		DurationSeconds: 58,
		CompletedAt:     completedAt,
	}
}

func TestSaveAndFetchRun(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	saved := sampleRun("an-1", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, a.SaveRun(ctx, saved))

	got, err := a.Run(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, saved.RepoURL, got.RepoURL)
	assert.Equal(t, analysis.StatusCompleted, got.Status)
	assert.Equal(t, 74, got.OverallScore)
	assert.Equal(t, 16, got.Findings.Total)
}

func TestSaveRunUpserts(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	run := sampleRun("an-1", time.Now().UTC())
	require.NoError(t, a.SaveRun(ctx, run))

	run.OverallScore = 91
	run.LetterGrade = "A"
	require.NoError(t, a.SaveRun(ctx, run))

	got, err := a.Run(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, 91, got.OverallScore)
	assert.Equal(t, "A", got.LetterGrade)

	runs, err := a.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveRunRequiresAnalysisID(t *testing.T) {
	a := newTestArchive(t)
	err := a.SaveRun(context.Background(), Run{RepoURL: "https://example.com/repo"})
	require.Error(t, err)
}

func TestRunNotFound(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRecentRunsOrderedByCompletion(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"an-old", "an-mid", "an-new"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, a.SaveRun(ctx, run))
	}

	runs, err := a.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "an-new", runs[0].AnalysisID)
	assert.Equal(t, "an-mid", runs[1].AnalysisID)
}

func TestRunsForRepo(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	first := sampleRun("an-1", time.Now().UTC())
	require.NoError(t, a.SaveRun(ctx, first))

	other := sampleRun("an-2", time.Now().UTC())
	other.RepoURL = "https://github.com/acme/billing"
	require.NoError(t, a.SaveRun(ctx, other))

	runs, err := a.RunsForRepo(ctx, "https://github.com/acme/shop")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "an-1", runs[0].AnalysisID)
}

func TestDeleteRun(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveRun(ctx, sampleRun("an-1", time.Now().UTC())))
	require.NoError(t, a.DeleteRun(ctx, "an-1"))

	_, err := a.Run(ctx, "an-1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = a.DeleteRun(ctx, "an-1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
