// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-api/internal/domain/entity"
)

// NovelRepository 小说仓储接口
type NovelRepository interface {
	// Create 创建小说记录
	Create(ctx context.Context, novel *entity.Novel) error

	// GetByID 根据 ID 获取小说，不存在时返回 (nil, nil)
	GetByID(ctx context.Context, id string) (*entity.Novel, error)

	// Update 持久化实体当前状态（状态机推进与计数更新）
	Update(ctx context.Context, novel *entity.Novel) error

	// ListByOwner 获取用户的小说列表，按创建时间倒序
	ListByOwner(ctx context.Context, ownerID string, pagination Pagination) (*PagedResult[*entity.Novel], error)

	// ListUnfinished 返回全部未到终态（pending / generating）的小说，
	// 供进程启动时恢复被中断的生成任务
	ListUnfinished(ctx context.Context) ([]*entity.Novel, error)
}
