// Package reading 实现小说阅读侧的查询服务，含章节增量拉取
package reading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
	pkgerrors "serial-novel-api/pkg/errors"
	"serial-novel-api/pkg/metrics"
)

var tracer = otel.Tracer("application/reading")

// Cache 只读缓存接口，单飞加载防止缓存击穿
type Cache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// ChapterView 返回给客户端的章节视图
type ChapterView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Plot  string `json:"plot,omitempty"`
}

// Update 一次增量拉取的结果。
//
// Chapters 为严格升序、无缺漏的新章节；客户端把游标推进到 LastIndex
// 后重复同一调用即可最终读到全部章节，重复拉取不会产生重复内容。
type Update struct {
	NovelID       string               `json:"novel_id"`
	Status        entity.NovelStatus   `json:"status"`
	FailureReason entity.FailureReason `json:"failure_reason,omitempty"`
	TotalChapters int                  `json:"total_chapters"`
	LastIndex     int                  `json:"last_index"`
	Chapters      []ChapterView        `json:"chapters"`
}

// Finished 生成是否已到终态。终态且无新章节时客户端应停止轮询。
func (u *Update) Finished() bool {
	return u.Status.IsTerminal()
}

// Contents 小说全文视图
type Contents struct {
	NovelID       string               `json:"novel_id"`
	Title         string               `json:"title"`
	Status        entity.NovelStatus   `json:"status"`
	FailureReason entity.FailureReason `json:"failure_reason,omitempty"`
	TotalChapters int                  `json:"total_chapters"`
	Chapters      []ChapterView        `json:"chapters"`
	FullText      string               `json:"full_text"`
}

// Service 阅读侧应用服务
type Service struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository

	// cache 可为 nil，仅用于已完成小说的全文缓存
	cache       Cache
	contentsTTL time.Duration
}

// NewService 创建阅读服务
func NewService(novelRepo repository.NovelRepository, chapterRepo repository.ChapterRepository, cache Cache) *Service {
	return &Service{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		cache:       cache,
		contentsTTL: 30 * time.Minute,
	}
}

// GetNovel 获取小说详情
func (s *Service) GetNovel(ctx context.Context, novelID string) (*entity.Novel, error) {
	novel, err := s.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询小说失败")
	}
	if novel == nil {
		return nil, pkgerrors.ErrNovelNotFound
	}
	return novel, nil
}

// ListNovels 获取用户的小说列表
func (s *Service) ListNovels(ctx context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidParam, "owner_id 不能为空")
	}
	result, err := s.novelRepo.ListByOwner(ctx, ownerID, pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询小说列表失败")
	}
	return result, nil
}

// GetNewChapters 拉取游标之后的新章节。
//
// fromIndex 为客户端已读到的最后章节序号，首次拉取传 0。读取基于一致性
// 快照：返回的章节序号必然从 fromIndex+1 起连续递增，空结果表示当前
// 没有新提交的章节。游标超前于已提交进度不是错误，同样返回空结果且
// 游标原地不动，负数游标才被拒绝。
func (s *Service) GetNewChapters(ctx context.Context, novelID string, fromIndex int) (*Update, error) {
	ctx, span := tracer.Start(ctx, "ReadingService.GetNewChapters",
		trace.WithAttributes(
			attribute.String("novel.id", novelID),
			attribute.Int("from_index", fromIndex),
		))
	defer span.End()

	if fromIndex < 0 {
		return nil, pkgerrors.ErrInvalidCursor
	}

	novel, err := s.GetNovel(ctx, novelID)
	if err != nil {
		return nil, err
	}

	chapters, err := s.chapterRepo.ListCommittedAfter(ctx, novelID, fromIndex)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询新章节失败")
	}

	update := &Update{
		NovelID:       novel.ID,
		Status:        novel.Status,
		FailureReason: novel.FailureReason,
		TotalChapters: novel.TotalChapterCount,
		LastIndex:     fromIndex,
		Chapters:      make([]ChapterView, 0, len(chapters)),
	}
	for _, c := range chapters {
		update.Chapters = append(update.Chapters, ChapterView{Index: c.Index, Text: c.Text, Plot: c.Plot})
		update.LastIndex = c.Index
	}

	if len(chapters) > 0 {
		metrics.RetrievalPollsTotal.WithLabelValues("new_chapters").Inc()
		metrics.RetrievalChaptersReturned.Add(float64(len(chapters)))
	} else {
		metrics.RetrievalPollsTotal.WithLabelValues("empty").Inc()
	}
	return update, nil
}

// ListChapters 返回小说全部章节记录，含失败留痕
func (s *Service) ListChapters(ctx context.Context, novelID string) ([]*entity.Chapter, error) {
	if _, err := s.GetNovel(ctx, novelID); err != nil {
		return nil, err
	}
	chapters, err := s.chapterRepo.ListByNovel(ctx, novelID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询章节列表失败")
	}
	return chapters, nil
}

// GetContents 返回小说全文。
// 已到终态的小说内容不再变化，结果经缓存返回；生成中的小说直接回源。
func (s *Service) GetContents(ctx context.Context, novelID string) (*Contents, error) {
	ctx, span := tracer.Start(ctx, "ReadingService.GetContents",
		trace.WithAttributes(attribute.String("novel.id", novelID)))
	defer span.End()

	novel, err := s.GetNovel(ctx, novelID)
	if err != nil {
		return nil, err
	}

	if s.cache == nil || !novel.Status.IsTerminal() {
		return s.loadContents(ctx, novel)
	}

	key := fmt.Sprintf("novel:contents:%s", novelID)
	data, err := s.cache.GetOrLoad(ctx, key, s.contentsTTL, func(ctx context.Context) ([]byte, error) {
		contents, err := s.loadContents(ctx, novel)
		if err != nil {
			return nil, err
		}
		return json.Marshal(contents)
	})
	if err != nil {
		// 缓存故障时降级回源
		return s.loadContents(ctx, novel)
	}

	var contents Contents
	if err := json.Unmarshal(data, &contents); err != nil {
		return s.loadContents(ctx, novel)
	}
	return &contents, nil
}

func (s *Service) loadContents(ctx context.Context, novel *entity.Novel) (*Contents, error) {
	chapters, err := s.chapterRepo.ListCommittedAfter(ctx, novel.ID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询章节失败")
	}

	contents := &Contents{
		NovelID:       novel.ID,
		Title:         novel.Title,
		Status:        novel.Status,
		FailureReason: novel.FailureReason,
		TotalChapters: novel.TotalChapterCount,
		Chapters:      make([]ChapterView, 0, len(chapters)),
	}
	var sb strings.Builder
	for i, c := range chapters {
		contents.Chapters = append(contents.Chapters, ChapterView{Index: c.Index, Text: c.Text, Plot: c.Plot})
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Text)
	}
	contents.FullText = sb.String()
	return contents, nil
}
