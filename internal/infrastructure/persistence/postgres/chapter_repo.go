package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// ChapterRepository 章节仓储实现
type ChapterRepository struct {
	client *Client
	tx     *TxManager
}

var _ repository.ChapterRepository = (*ChapterRepository)(nil)

// NewChapterRepository 创建章节仓储
func NewChapterRepository(client *Client, tx *TxManager) *ChapterRepository {
	return &ChapterRepository{client: client, tx: tx}
}

// Append 原子提交一个章节。
//
// 在单个事务内：对小说行加锁、校验序号连续性、写入章节、推进计数。
// 事务提交成功前章节对读取方不可见，因此读取方见到的序号集合恒为
// {1..committed_chapters}。
func (r *ChapterRepository) Append(ctx context.Context, novel *entity.Novel, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Append")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)

		var current entity.Novel
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "id = ?", novel.ID).Error; err != nil {
			return fmt.Errorf("failed to lock novel row: %w", err)
		}

		if chapter.Index != current.CommittedChapters+1 {
			return repository.ErrCommitConflict
		}

		if err := db.Create(chapter).Error; err != nil {
			return fmt.Errorf("failed to insert chapter: %w", err)
		}

		// 计数推进以加锁行的落库值为准
		updates := map[string]any{
			"committed_chapters":    current.CommittedChapters + 1,
			"committed_text_length": current.CommittedTextLength + chapter.TextLength(),
			"updated_at":            time.Now(),
		}
		if err := db.Model(&entity.Novel{}).Where("id = ?", novel.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to advance novel counters: %w", err)
		}

		// 两次写入都成功后才推进内存实体，回滚的事务不留下内存侧的脏计数
		if err := novel.RecordCommit(chapter.Index, chapter.TextLength()); err != nil {
			return fmt.Errorf("commit rejected by novel state: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// RecordFailure 记录失败章节，仅诊断信息
func (r *ChapterRepository) RecordFailure(ctx context.Context, chapter *entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.RecordFailure")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record chapter failure: %w", err)
	}
	return nil
}

// ListCommittedAfter 返回序号大于 fromIndex 的已提交章节，升序
func (r *ChapterRepository) ListCommittedAfter(ctx context.Context, novelID string, fromIndex int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListCommittedAfter")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	err := db.
		Where("novel_id = ? AND outcome = ? AND chapter_index > ?",
			novelID, entity.ChapterOutcomeCommitted, fromIndex).
		Order("chapter_index ASC").
		Find(&chapters).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list committed chapters: %w", err)
	}
	return chapters, nil
}

// ListByNovel 返回小说全部章节记录，按序号升序
func (r *ChapterRepository) ListByNovel(ctx context.Context, novelID string) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.ListByNovel")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var chapters []*entity.Chapter
	err := db.
		Where("novel_id = ?", novelID).
		Order("chapter_index ASC").
		Find(&chapters).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}
