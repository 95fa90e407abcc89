package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/kdimtricp/instasave/internal/models"
)

// TopicCount is how many stored reels carry a topic.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// TopicRepository answers topic-level questions over the JSON topics column.
type TopicRepository struct {
	db *DB
}

func NewTopicRepository(db *DB) *TopicRepository {
	return &TopicRepository{db: db}
}

// Counts returns every topic in use, most frequent first.
func (r *TopicRepository) Counts(ctx context.Context) ([]TopicCount, error) {
	var query string
	if r.db.dbType == "postgres" {
		query = `
			SELECT t.topic, COUNT(*) AS n
			FROM reels, jsonb_array_elements_text(reels.topics::jsonb) AS t(topic)
			GROUP BY t.topic
			ORDER BY n DESC, t.topic ASC`
	} else {
		query = `
			SELECT je.value AS topic, COUNT(*) AS n
			FROM reels, json_each(reels.topics) AS je
			GROUP BY je.value
			ORDER BY n DESC, topic ASC`
	}

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic counts: %w", err)
	}
	defer rows.Close()

	counts := []TopicCount{}
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan topic count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read topic counts: %w", err)
	}
	return counts, nil
}

// ReelsWithTopic returns reels whose topics contain topic exactly, newest first.
func (r *TopicRepository) ReelsWithTopic(ctx context.Context, topic string) ([]models.Reel, error) {
	topic = strings.TrimSpace(topic)

	var clause string
	if r.db.dbType == "postgres" {
		clause = "EXISTS (SELECT 1 FROM jsonb_array_elements_text(reels.topics::jsonb) AS t(topic) WHERE t.topic = ?)"
	} else {
		clause = "EXISTS (SELECT 1 FROM json_each(reels.topics) AS je WHERE je.value = ?)"
	}

	var reels []models.Reel
	result := r.db.GORM().WithContext(ctx).Where(clause, topic).Order("created_at DESC").Find(&reels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reels by topic: %w", result.Error)
	}
	return reels, nil
}
