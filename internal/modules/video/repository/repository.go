package repository

import (
	"context"
	"strings"
	"time"

	"anoa.com/labeebacademy/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoRepository interface {
	Create(ctx context.Context, video *entity.Video) error
	FindAll(ctx context.Context) ([]*entity.Video, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Video, error)
	Search(ctx context.Context, query string) ([]*entity.Video, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, title, description string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	FindDeletedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Video, error)
	Purge(ctx context.Context, id uuid.UUID) error
}

type videoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &videoRepository{db: db}
}

func (r *videoRepository) Create(ctx context.Context, video *entity.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

// FindAll returns the collection in whatever order the database yields.
func (r *videoRepository) FindAll(ctx context.Context) ([]*entity.Video, error) {
	var videos []*entity.Video
	if err := r.db.WithContext(ctx).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *videoRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Video, error) {
	var video entity.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Video, error) {
	var videos []*entity.Video
	if len(ids) == 0 {
		return videos, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// likeEscaper quotes ILIKE wildcards with backslash, postgres' default
// escape character, so the query matches as a literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *videoRepository) Search(ctx context.Context, query string) ([]*entity.Video, error) {
	var videos []*entity.Video
	pattern := "%" + likeEscaper.Replace(query) + "%"
	if err := r.db.WithContext(ctx).
		Where("title ILIKE ? OR description ILIKE ?", pattern, pattern).
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// UpdateDetails overwrites title and description only. Empty values are
// written as given.
func (r *videoRepository) UpdateDetails(ctx context.Context, id uuid.UUID, title, description string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Video{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":       title,
			"description": description,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *videoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Video{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *videoRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Video{}).Count(&count).Error
	return count, err
}

func (r *videoRepository) FindDeletedBefore(ctx context.Context, cutoff time.Time) ([]*entity.Video, error) {
	var videos []*entity.Video
	if err := r.db.WithContext(ctx).
		Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// Purge removes a soft-deleted row for good.
func (r *videoRepository) Purge(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&entity.Video{}).Error
}
