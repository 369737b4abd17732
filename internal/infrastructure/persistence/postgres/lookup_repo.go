package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// LookupRepository 体裁/氛围参照表仓储实现
type LookupRepository struct {
	client *Client
}

var _ repository.LookupRepository = (*LookupRepository)(nil)

// NewLookupRepository 创建参照表仓储
func NewLookupRepository(client *Client) *LookupRepository {
	return &LookupRepository{client: client}
}

// ListGenres 体裁清单
func (r *LookupRepository) ListGenres(ctx context.Context) ([]entity.Genre, error) {
	ctx, span := tracer.Start(ctx, "postgres.LookupRepository.ListGenres")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var genres []entity.Genre
	if err := db.Order("code ASC").Find(&genres).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// ListMoods 氛围清单
func (r *LookupRepository) ListMoods(ctx context.Context) ([]entity.Mood, error) {
	ctx, span := tracer.Start(ctx, "postgres.LookupRepository.ListMoods")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var moods []entity.Mood
	if err := db.Order("code ASC").Find(&moods).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	return moods, nil
}

// GenreExists 体裁是否存在
func (r *LookupRepository) GenreExists(ctx context.Context, code string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.LookupRepository.GenreExists")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Genre{}).Where("code = ?", code).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check genre: %w", err)
	}
	return count > 0, nil
}

// MoodExists 氛围是否存在
func (r *LookupRepository) MoodExists(ctx context.Context, code string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.LookupRepository.MoodExists")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Mood{}).Where("code = ?", code).Count(&count).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check mood: %w", err)
	}
	return count > 0, nil
}

// SeedDefaults 按缺失补种固定参照数据
func (r *LookupRepository) SeedDefaults(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.LookupRepository.SeedDefaults")
	defer span.End()

	db := getDB(ctx, r.client.db)

	genres := entity.DefaultGenres()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&genres).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to seed genres: %w", err)
	}

	moods := entity.DefaultMoods()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&moods).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to seed moods: %w", err)
	}
	return nil
}
