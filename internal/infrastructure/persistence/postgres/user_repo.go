package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// UserRepository 用户仓储实现
type UserRepository struct {
	client *Client
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository 创建用户仓储
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取用户
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var user entity.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List 用户列表
func (r *UserRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var total int64
	if err := db.Model(&entity.User{}).Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*entity.User
	err := db.Model(&entity.User{}).
		Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&users).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return repository.NewPagedResult(users, total, pagination), nil
}
