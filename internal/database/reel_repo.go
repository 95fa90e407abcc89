package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/models"
)

// ReelRepository is the URL-deduplicated store of completed analyses.
type ReelRepository struct {
	db *DB
}

func NewReelRepository(db *DB) *ReelRepository {
	return &ReelRepository{db: db}
}

// Insert stores reel in a single statement. A second reel with the same
// source URL fails with apperr.ErrAlreadyExists.
func (r *ReelRepository) Insert(ctx context.Context, reel *models.Reel) error {
	result := r.db.GORM().WithContext(ctx).Create(reel)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return apperr.AlreadyExists("reel already exists for this URL").WithCause(result.Error)
		}
		return fmt.Errorf("failed to insert reel: %w", result.Error)
	}
	return nil
}

func (r *ReelRepository) FindByID(ctx context.Context, id string) (*models.Reel, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *ReelRepository) FindByURL(ctx context.Context, url string) (*models.Reel, error) {
	return r.findOne(ctx, "reel_url = ?", url)
}

func (r *ReelRepository) findOne(ctx context.Context, query string, arg string) (*models.Reel, error) {
	var reel models.Reel
	result := r.db.GORM().WithContext(ctx).Where(query, arg).Take(&reel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Reel not found")
		}
		return nil, fmt.Errorf("failed to get reel: %w", result.Error)
	}
	return &reel, nil
}

// List returns every reel, newest first.
func (r *ReelRepository) List(ctx context.Context) ([]models.Reel, error) {
	var reels []models.Reel
	result := r.db.GORM().WithContext(ctx).Order("created_at DESC").Find(&reels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reels: %w", result.Error)
	}
	return reels, nil
}

// Search matches query against title, summary and transcript, newest first.
func (r *ReelRepository) Search(ctx context.Context, query string) ([]models.Reel, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx)
	}

	var reels []models.Reel
	searchPattern := "%" + query + "%"

	db := r.db.GORM().WithContext(ctx)
	if r.db.dbType == "postgres" {
		db = db.Where("title ILIKE ? OR summary ILIKE ? OR transcript ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	} else {
		db = db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(summary) LIKE LOWER(?) OR LOWER(transcript) LIKE LOWER(?)",
			searchPattern, searchPattern, searchPattern)
	}

	result := db.Order("created_at DESC").Find(&reels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search reels: %w", result.Error)
	}
	return reels, nil
}

// Delete removes the reel with id. Deleting an unknown id is not an error.
func (r *ReelRepository) Delete(ctx context.Context, id string) error {
	result := r.db.GORM().WithContext(ctx).Where("id = ?", id).Delete(&models.Reel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete reel: %w", result.Error)
	}
	return nil
}

func (r *ReelRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GORM().WithContext(ctx).Model(&models.Reel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count reels: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
