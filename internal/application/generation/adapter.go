package generation

import (
	"context"

	"serial-novel-api/internal/domain/entity"
)

// Outline 大纲生成结果
type Outline struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Plot         string   `json:"plot"`
	ChapterPlots []string `json:"chapter_plots"`
}

// ChapterRequest 单章生成请求
type ChapterRequest struct {
	NovelID       string
	Index         int
	TotalChapters int
	OverallPlot   string
	ChapterPlot   string
	Style         string

	// PreviousContext 由 ContextBuilder 从已提交前文推导出的确定性窗口
	PreviousContext string
}

// Client 文本生成后端适配接口。
// 实现方必须通过本包的 Error 类型标注错误分类，未标注的错误按 Fatal 处理。
type Client interface {
	// GenerateOutline 生成大纲：标题、梗概、整体情节与恰好 chapterCount 条分章情节
	GenerateOutline(ctx context.Context, setting entity.NovelSetting, chapterCount int) (*Outline, error)

	// GenerateChapter 生成一章正文
	GenerateChapter(ctx context.Context, req ChapterRequest) (string, error)
}

// PlanPolicy 章节数换算策略
type PlanPolicy struct {
	// SingleChapterThreshold 低于该目标长度只生成一章
	SingleChapterThreshold int
	// ChapterTargetRunes 单章目标长度
	ChapterTargetRunes int
}

// DefaultPlanPolicy 默认换算策略
func DefaultPlanPolicy() PlanPolicy {
	return PlanPolicy{
		SingleChapterThreshold: 4000,
		ChapterTargetRunes:     2000,
	}
}

// ChapterCount 由目标长度换算章节数
func (p PlanPolicy) ChapterCount(targetLength int) int {
	if p.ChapterTargetRunes <= 0 {
		return 1
	}
	if targetLength < p.SingleChapterThreshold {
		return 1
	}
	n := targetLength / p.ChapterTargetRunes
	if n < 1 {
		n = 1
	}
	return n
}
