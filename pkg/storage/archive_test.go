package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-scraper/pkg/models"
	"site-scraper/pkg/utils"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	arch, err := OpenArchive(t.TempDir(), testEntry())
	require.NoError(t, err)
	t.Cleanup(func() { arch.Close() })
	return arch
}

func TestArchive_SaveAndGet(t *testing.T) {
	arch := openTestArchive(t)

	entry := ArchiveEntry{
		SessionID:  "abc-123",
		SeedURL:    "https://example.com",
		State:      string(models.SessionStateCompleted),
		FinishedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Report: models.Report{
			TotalDiscovered: 3,
			TotalDownloaded: 2,
			TotalFailed:     1,
		},
	}
	require.NoError(t, arch.SaveReport(entry))

	got, err := arch.Get("abc-123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.SeedURL)
	assert.Equal(t, 2, got.Report.TotalDownloaded)
	assert.True(t, got.FinishedAt.Equal(entry.FinishedAt))
}

func TestArchive_GetMissing(t *testing.T) {
	arch := openTestArchive(t)

	_, err := arch.Get("missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestArchive_ListNewestFirst(t *testing.T) {
	arch := openTestArchive(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, arch.SaveReport(ArchiveEntry{
			SessionID:  id,
			SeedURL:    "https://example.com",
			State:      string(models.SessionStateCompleted),
			FinishedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := arch.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].SessionID)
	assert.Equal(t, "first", entries[2].SessionID)
}
