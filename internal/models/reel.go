package models

import (
	"strings"
	"time"

	"github.com/kdimtricp/instasave/internal/id"
)

// DefaultCollection is used when the caller does not name a collection.
const DefaultCollection = "Uncategorized"

// Reel is a persisted analysis of one source URL.
type Reel struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	SourceURL  string    `gorm:"column:reel_url;uniqueIndex" json:"reelUrl"`
	Title      *string   `gorm:"column:title" json:"title"`
	Collection string    `gorm:"column:collection;not null" json:"collection"`
	Transcript string    `gorm:"column:transcript;not null" json:"transcript"`
	Summary    string    `gorm:"column:summary;not null" json:"summary"`
	Topics     []string  `gorm:"column:topics;serializer:json;not null" json:"topics"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
}

func (Reel) TableName() string {
	return "reels"
}

// Analysis is the pipeline's output before it is attached to a source.
type Analysis struct {
	Title      string   `json:"title"`
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Topics     []string `json:"topics"`
}

// NewReel builds a record for url from a completed analysis. The id and
// creation time are assigned here and never change afterwards.
func NewReel(sourceURL, collection string, a *Analysis) *Reel {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = DefaultCollection
	}

	var title *string
	if t := strings.TrimSpace(a.Title); t != "" {
		title = &t
	}

	topics := make([]string, len(a.Topics))
	copy(topics, a.Topics)

	return &Reel{
		ID:         id.NewReelID(),
		SourceURL:  sourceURL,
		Title:      title,
		Collection: collection,
		Transcript: a.Transcript,
		Summary:    a.Summary,
		Topics:     topics,
		CreatedAt:  time.Now().UTC(),
	}
}

// ReelSummary is the list view of a reel; it omits the transcript.
type ReelSummary struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"reelUrl"`
	Title      *string   `json:"title"`
	Collection string    `json:"collection"`
	Summary    string    `json:"summary"`
	Topics     []string  `json:"topics"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r *Reel) ToSummary() ReelSummary {
	return ReelSummary{
		ID:         r.ID,
		SourceURL:  r.SourceURL,
		Title:      r.Title,
		Collection: r.Collection,
		Summary:    r.Summary,
		Topics:     r.Topics,
		CreatedAt:  r.CreatedAt,
	}
}

// AnalysisOf returns the cached analysis stored on a reel.
func (r *Reel) AnalysisOf() *Analysis {
	a := &Analysis{
		Transcript: r.Transcript,
		Summary:    r.Summary,
		Topics:     r.Topics,
	}
	if r.Title != nil {
		a.Title = *r.Title
	}
	return a
}
