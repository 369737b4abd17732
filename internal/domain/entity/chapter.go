// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChapterOutcome 章节结局
type ChapterOutcome string

const (
	// ChapterOutcomeCommitted 正文已提交，内容不再变更
	ChapterOutcomeCommitted ChapterOutcome = "committed"
	// ChapterOutcomeFailed 生成失败，仅保留诊断信息，不计入已提交章节数
	ChapterOutcomeFailed ChapterOutcome = "failed"
)

// Chapter 章节实体，按小说追加写入，提交后不可变
type Chapter struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	NovelID   string         `json:"novel_id" gorm:"type:uuid;index:idx_novel_chapter,unique;not null"`
	Index     int            `json:"index" gorm:"column:chapter_index;index:idx_novel_chapter,unique;not null"`
	Text      string         `json:"text,omitempty" gorm:"type:text"`
	Plot      string         `json:"plot,omitempty" gorm:"type:text"`
	Outcome   ChapterOutcome `json:"outcome" gorm:"type:varchar(50);not null"`
	Error     string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Chapter) TableName() string {
	return "chapters"
}

// NewCommittedChapter 创建提交章节
func NewCommittedChapter(novelID string, index int, text, plot string) *Chapter {
	return &Chapter{
		ID:        uuid.NewString(),
		NovelID:   novelID,
		Index:     index,
		Text:      text,
		Plot:      plot,
		Outcome:   ChapterOutcomeCommitted,
		CreatedAt: time.Now(),
	}
}

// NewFailedChapter 创建失败章节记录，正文不落库
func NewFailedChapter(novelID string, index int, genErr error) *Chapter {
	c := &Chapter{
		ID:        uuid.NewString(),
		NovelID:   novelID,
		Index:     index,
		Outcome:   ChapterOutcomeFailed,
		CreatedAt: time.Now(),
	}
	if genErr != nil {
		c.Error = genErr.Error()
	}
	return c
}

// TextLength 正文长度（rune 数）
func (c *Chapter) TextLength() int {
	return len([]rune(c.Text))
}
