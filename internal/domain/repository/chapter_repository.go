// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"serial-novel-api/internal/domain/entity"
)

// ChapterRepository 章节仓储接口。
//
// 章节按小说追加写入：一部小说已提交章节的序号集合恒为 {1..committed_chapters}，
// 无空洞、无重复、不乱序。提交与小说计数推进在同一事务内完成，提交确认前
// 不得生成下一章。
type ChapterRepository interface {
	// Append 原子提交一个章节：写入正文并推进小说的
	// committed_chapters / committed_text_length。
	// 序号不等于 committed_chapters+1 时返回 ErrCommitConflict。
	Append(ctx context.Context, novel *entity.Novel, chapter *entity.Chapter) error

	// RecordFailure 记录失败章节（仅诊断信息，不推进计数）
	RecordFailure(ctx context.Context, chapter *entity.Chapter) error

	// ListCommittedAfter 返回序号在 (fromIndex, committed] 区间内的已提交章节，升序。
	// 读取必须是一致性快照：章节要么带完整正文可见，要么不可见。
	ListCommittedAfter(ctx context.Context, novelID string, fromIndex int) ([]*entity.Chapter, error)

	// ListByNovel 返回小说全部章节记录（含失败章节），按序号升序
	ListByNovel(ctx context.Context, novelID string) ([]*entity.Chapter, error)
}
