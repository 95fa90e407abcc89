package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/instasave/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "data", "reels.db"),
	})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background())
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

func newTestReel(url string, topics ...string) *models.Reel {
	if len(topics) == 0 {
		topics = []string{"Productivity"}
	}
	return models.NewReel(url, "", &models.Analysis{
		Title:      "Three Focus Habits",
		Transcript: "three habits for focus and deep work",
		Summary:    "The speaker lists three habits that protect focus.",
		Topics:     topics,
	})
}

// insertAt stores reel with a fixed creation time so ordering tests do not
// depend on clock resolution.
func insertAt(t *testing.T, repo *ReelRepository, reel *models.Reel, at time.Time) {
	t.Helper()
	reel.CreatedAt = at.UTC()
	require.NoError(t, repo.Insert(context.Background(), reel))
}
