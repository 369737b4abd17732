// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-api/internal/domain/entity"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.User, error)

	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.User], error)
}

// LookupRepository 体裁/氛围参照表仓储接口
type LookupRepository interface {
	ListGenres(ctx context.Context) ([]entity.Genre, error)
	ListMoods(ctx context.Context) ([]entity.Mood, error)

	GenreExists(ctx context.Context, code string) (bool, error)
	MoodExists(ctx context.Context, code string) (bool, error)

	// SeedDefaults 按缺失补种固定参照数据
	SeedDefaults(ctx context.Context) error
}
