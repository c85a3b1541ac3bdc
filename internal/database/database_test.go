package database_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pdfsum/internal/database"
	"pdfsum/internal/domain"
)

func openDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.sqlite")
	ctx := context.Background()

	first, err := database.New(ctx, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := database.New(ctx, path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestAddAndGetRecentAnalyses(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := &domain.Analysis{
		ChatID:    42,
		Source:    domain.SourceText,
		TextHash:  "hash-1",
		Result:    "first result",
		CreatedAt: base,
	}
	newer := &domain.Analysis{
		ChatID:    42,
		Source:    domain.SourcePDF,
		Name:      "report.pdf",
		Language:  "en",
		TextHash:  "hash-2",
		Result:    "Analysis failed: boom",
		Failed:    true,
		CreatedAt: base.Add(time.Minute),
	}
	otherChat := &domain.Analysis{
		ChatID:    7,
		Source:    domain.SourceURL,
		TextHash:  "hash-3",
		Result:    "other",
		CreatedAt: base,
	}

	for _, a := range []*domain.Analysis{older, newer, otherChat} {
		require.NoError(t, db.AddAnalysis(ctx, a))
		require.NotEmpty(t, a.ID)
	}

	got, err := db.GetRecentAnalyses(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, newer.ID, got[0].ID)
	require.Equal(t, domain.SourcePDF, got[0].Source)
	require.Equal(t, "report.pdf", got[0].Name)
	require.Equal(t, "en", got[0].Language)
	require.True(t, got[0].Failed)
	require.Equal(t, newer.CreatedAt, got[0].CreatedAt)

	require.Equal(t, older.ID, got[1].ID)
	require.False(t, got[1].Failed)

	limited, err := db.GetRecentAnalyses(ctx, 42, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, newer.ID, limited[0].ID)
}

func TestAddAnalysisRejectsMissingHash(t *testing.T) {
	db := openDB(t)

	require.Error(t, db.AddAnalysis(context.Background(), &domain.Analysis{ChatID: 1, Result: "x"}))
	require.Error(t, db.AddAnalysis(context.Background(), nil))
}

func TestPruneAnalyses(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.AddAnalysis(ctx, &domain.Analysis{
		ChatID: 1, Source: domain.SourceText, TextHash: "old", Result: "old", CreatedAt: now.AddDate(0, 0, -40),
	}))
	require.NoError(t, db.AddAnalysis(ctx, &domain.Analysis{
		ChatID: 1, Source: domain.SourceText, TextHash: "new", Result: "new", CreatedAt: now.AddDate(0, 0, -1),
	}))

	removed, err := db.PruneAnalyses(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	left, err := db.GetRecentAnalyses(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "new", left[0].Result)
}

func TestGetAnalysisByHashSkipsFailures(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	missing, err := db.GetAnalysisByHash(ctx, "nothing")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, db.AddAnalysis(ctx, &domain.Analysis{
		ChatID: 1, Source: domain.SourceText, TextHash: "same", Result: "good", CreatedAt: base,
	}))
	require.NoError(t, db.AddAnalysis(ctx, &domain.Analysis{
		ChatID: 2, Source: domain.SourceText, TextHash: "same", Result: "Analysis failed: x", Failed: true,
		CreatedAt: base.Add(time.Hour),
	}))

	got, err := db.GetAnalysisByHash(ctx, "same")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "good", got.Result)
	require.Equal(t, int64(1), got.ChatID)
}
