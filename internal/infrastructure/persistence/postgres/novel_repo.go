package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// NovelRepository 小说仓储实现
type NovelRepository struct {
	client *Client
}

var _ repository.NovelRepository = (*NovelRepository)(nil)

// NewNovelRepository 创建小说仓储
func NewNovelRepository(client *Client) *NovelRepository {
	return &NovelRepository{client: client}
}

// Create 创建小说记录
func (r *NovelRepository) Create(ctx context.Context, novel *entity.Novel) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(novel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create novel: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取小说
func (r *NovelRepository) GetByID(ctx context.Context, id string) (*entity.Novel, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var novel entity.Novel
	if err := db.First(&novel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get novel: %w", err)
	}
	return &novel, nil
}

// Update 持久化实体当前状态
func (r *NovelRepository) Update(ctx context.Context, novel *entity.Novel) error {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(novel).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update novel: %w", err)
	}
	return nil
}

// ListByOwner 获取用户的小说列表，按创建时间倒序
func (r *NovelRepository) ListByOwner(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.ListByOwner")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Novel{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count novels: %w", err)
	}

	var novels []*entity.Novel
	err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&novels).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list novels: %w", err)
	}

	return repository.NewPagedResult(novels, total, pagination), nil
}

// ListUnfinished 返回全部未到终态的小说
func (r *NovelRepository) ListUnfinished(ctx context.Context) ([]*entity.Novel, error) {
	ctx, span := tracer.Start(ctx, "postgres.NovelRepository.ListUnfinished")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var novels []*entity.Novel
	err := db.
		Where("status IN ?", []entity.NovelStatus{entity.NovelStatusPending, entity.NovelStatusGenerating}).
		Order("created_at ASC").
		Find(&novels).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list unfinished novels: %w", err)
	}
	return novels, nil
}
