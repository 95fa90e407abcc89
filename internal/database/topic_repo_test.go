package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicRepository_Counts(t *testing.T) {
	db := setupTestDB(t)
	reels := NewReelRepository(db)
	topics := NewTopicRepository(db)
	ctx := context.Background()

	counts, err := topics.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, reels.Insert(ctx, newTestReel("https://example.com/reel/a", "Productivity", "AI tools")))
	require.NoError(t, reels.Insert(ctx, newTestReel("https://example.com/reel/b", "AI tools")))
	require.NoError(t, reels.Insert(ctx, newTestReel("https://example.com/reel/c", "Pricing", "AI tools")))

	counts, err = topics.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TopicCount{
		{Topic: "AI tools", Count: 3},
		{Topic: "Pricing", Count: 1},
		{Topic: "Productivity", Count: 1},
	}, counts)
}

func TestTopicRepository_ReelsWithTopic(t *testing.T) {
	db := setupTestDB(t)
	reels := NewReelRepository(db)
	topics := NewTopicRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	a := newTestReel("https://example.com/reel/a", "Pricing")
	b := newTestReel("https://example.com/reel/b", "Marketing", "Pricing")
	c := newTestReel("https://example.com/reel/c", "Marketing")
	insertAt(t, reels, a, base)
	insertAt(t, reels, b, base.Add(time.Minute))
	insertAt(t, reels, c, base.Add(2*time.Minute))

	got, err := topics.ReelsWithTopic(ctx, "Pricing")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)

	got, err = topics.ReelsWithTopic(ctx, "pricing")
	require.NoError(t, err)
	assert.Empty(t, got, "topic match is exact")
}
