// Package entity 定义领域实体
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NovelStatus 小说生成状态
type NovelStatus string

const (
	NovelStatusPending    NovelStatus = "pending"
	NovelStatusGenerating NovelStatus = "generating"
	NovelStatusCompleted  NovelStatus = "completed"
	NovelStatusFailed     NovelStatus = "failed"
)

// IsTerminal 是否为终态
func (s NovelStatus) IsTerminal() bool {
	return s == NovelStatusCompleted || s == NovelStatusFailed
}

// FailureReason 终态失败原因码
type FailureReason string

const (
	FailureReasonNone             FailureReason = ""
	FailureReasonContentPolicy    FailureReason = "content_policy"
	FailureReasonFatal            FailureReason = "fatal"
	FailureReasonRetriesExhausted FailureReason = "retries_exhausted"
)

// NovelSetting 小说生成设定，创建后不可变
type NovelSetting struct {
	Genre        string `json:"genre,omitempty"`
	Mood         string `json:"mood,omitempty"`
	Style        string `json:"style,omitempty"`
	TargetLength int    `json:"target_length"`
}

// Novel 小说实体
//
// 状态只能单向推进：pending -> generating -> {completed | failed}。
// 到达终态后不再接受任何章节提交或状态变更；已提交章节在失败时保留。
type Novel struct {
	ID                  string        `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID             string        `json:"owner_id" gorm:"type:uuid;index;not null"`
	Title               string        `json:"title" gorm:"type:varchar(255);not null"`
	Summary             string        `json:"summary,omitempty" gorm:"type:text"`
	OverallPlot         string        `json:"overall_plot,omitempty" gorm:"type:text"`
	ChapterPlots        []string      `json:"chapter_plots,omitempty" gorm:"type:jsonb;serializer:json"`
	Setting             NovelSetting  `json:"setting" gorm:"type:jsonb;serializer:json"`
	Status              NovelStatus   `json:"status" gorm:"type:varchar(50);default:'pending';index"`
	FailureReason       FailureReason `json:"failure_reason,omitempty" gorm:"type:varchar(50)"`
	TotalChapterCount   int           `json:"total_chapter_count" gorm:"default:0"` // 0 表示大纲尚未确定章节数
	CommittedChapters   int           `json:"committed_chapters" gorm:"default:0"`
	TotalTextLength     int           `json:"total_text_length" gorm:"default:0"`
	CommittedTextLength int           `json:"committed_text_length" gorm:"default:0"`
	CreatedAt           time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Novel) TableName() string {
	return "novels"
}

// NewNovel 创建新小说
func NewNovel(ownerID string, setting NovelSetting) *Novel {
	now := time.Now()
	return &Novel{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Setting:         setting,
		Status:          NovelStatusPending,
		TotalTextLength: setting.TargetLength,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// BeginGenerating 进入生成中状态并固定大纲信息
func (n *Novel) BeginGenerating(title, summary, plot string, totalChapters int) error {
	if n.Status != NovelStatusPending {
		return fmt.Errorf("novel %s: cannot begin generating from status %s", n.ID, n.Status)
	}
	if totalChapters < 1 {
		return fmt.Errorf("novel %s: invalid total chapter count %d", n.ID, totalChapters)
	}
	n.Title = title
	n.Summary = summary
	n.OverallPlot = plot
	n.TotalChapterCount = totalChapters
	n.Status = NovelStatusGenerating
	n.UpdatedAt = time.Now()
	return nil
}

// RecordCommit 记录一次章节提交后的计数推进
func (n *Novel) RecordCommit(index, textLength int) error {
	if n.Status != NovelStatusGenerating {
		return fmt.Errorf("novel %s: commit in status %s", n.ID, n.Status)
	}
	if index != n.CommittedChapters+1 {
		return fmt.Errorf("novel %s: commit index %d, expected %d", n.ID, index, n.CommittedChapters+1)
	}
	n.CommittedChapters = index
	n.CommittedTextLength += textLength
	n.UpdatedAt = time.Now()
	return nil
}

// CompleteGeneration 进入完成终态
func (n *Novel) CompleteGeneration() error {
	if n.Status != NovelStatusGenerating {
		return fmt.Errorf("novel %s: cannot complete from status %s", n.ID, n.Status)
	}
	if n.CommittedChapters != n.TotalChapterCount {
		return fmt.Errorf("novel %s: complete with %d/%d chapters", n.ID, n.CommittedChapters, n.TotalChapterCount)
	}
	n.Status = NovelStatusCompleted
	n.UpdatedAt = time.Now()
	return nil
}

// FailGeneration 进入失败终态，已提交章节全部保留
func (n *Novel) FailGeneration(reason FailureReason) error {
	if n.Status.IsTerminal() {
		return fmt.Errorf("novel %s: cannot fail from terminal status %s", n.ID, n.Status)
	}
	n.Status = NovelStatusFailed
	n.FailureReason = reason
	n.UpdatedAt = time.Now()
	return nil
}
