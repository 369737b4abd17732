package generation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
	"serial-novel-api/pkg/logger"
	"serial-novel-api/pkg/metrics"
)

var tracer = otel.Tracer("application/generation")

// CommitHook 章节提交成功后的回调，在提交事务确认后同步调用
type CommitHook func(index int, text string)

// Runner 驱动单部小说的完整生成流程。
//
// 流程严格串行：大纲确定后逐章生成，上一章提交确认前绝不开始下一章。
// 瞬时错误在章节内部退避重试；内容安全与结构性错误立即终结整部小说。
// 小说进入失败终态时，已提交章节全部保留。
type Runner struct {
	novelRepo   repository.NovelRepository
	chapterRepo repository.ChapterRepository
	client      Client

	retry      RetryPolicy
	plan       PlanPolicy
	ctxBuilder ContextBuilder

	// sleep 可注入以便测试消除真实等待
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner 创建生成执行器
func NewRunner(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	client Client,
	retry RetryPolicy,
	plan PlanPolicy,
	ctxBuilder ContextBuilder,
) *Runner {
	return &Runner{
		novelRepo:   novelRepo,
		chapterRepo: chapterRepo,
		client:      client,
		retry:       retry,
		plan:        plan,
		ctxBuilder:  ctxBuilder,
		sleep:       sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run 执行一部小说的生成直至终态。
//
// ctx 取消（进程关闭）时中途返回且不改变小说状态，小说停留在当前状态等待
// 下次启动恢复。返回非 nil 错误表示生成以失败终态结束或被中断。
func (r *Runner) Run(ctx context.Context, novel *entity.Novel, onCommit CommitHook) error {
	ctx, span := tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(attribute.String("novel.id", novel.ID)))
	defer span.End()

	ctx = logger.WithContext(ctx, logger.NovelIDKey, novel.ID)
	log := logger.FromContext(ctx)

	if novel.Status.IsTerminal() {
		log.Info("小说已处于终态，跳过生成", "status", string(novel.Status))
		return nil
	}

	if novel.Status == entity.NovelStatusPending {
		if err := r.runOutline(ctx, novel); err != nil {
			return err
		}
	}

	prevText := ""
	for index := novel.CommittedChapters + 1; index <= novel.TotalChapterCount; index++ {
		if index > 1 && prevText == "" {
			// 进程重启后的恢复路径：上一章正文需要回读
			text, err := r.loadCommittedText(ctx, novel.ID, index-1)
			if err != nil {
				return r.fail(ctx, novel, entity.FailureReasonFatal, err)
			}
			prevText = text
		}

		text, err := r.runChapter(ctx, novel, index, prevText)
		if err != nil {
			return err
		}
		prevText = text

		if onCommit != nil {
			onCommit(index, text)
		}
	}

	if err := novel.CompleteGeneration(); err != nil {
		return r.fail(ctx, novel, entity.FailureReasonFatal, err)
	}
	if err := r.novelRepo.Update(ctx, novel); err != nil {
		return fmt.Errorf("persist completed novel %s: %w", novel.ID, err)
	}

	metrics.NovelGenerationTotal.WithLabelValues(string(entity.NovelStatusCompleted)).Inc()
	log.Info("小说生成完成",
		"total_chapters", novel.TotalChapterCount,
		"committed_text_length", novel.CommittedTextLength)
	return nil
}

// runOutline 生成大纲并把小说推进到生成中状态
func (r *Runner) runOutline(ctx context.Context, novel *entity.Novel) error {
	ctx, span := tracer.Start(ctx, "Runner.runOutline")
	defer span.End()

	log := logger.FromContext(ctx)
	chapterCount := r.plan.ChapterCount(novel.Setting.TargetLength)

	var outline *Outline
	for attempt := 1; ; attempt++ {
		var err error
		outline, err = r.client.GenerateOutline(ctx, novel.Setting, chapterCount)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := KindOf(err)
		if kind == KindTransient && attempt < r.retry.MaxAttempts {
			delay := r.retry.Delay(attempt)
			metrics.ChapterRetriesTotal.Inc()
			log.Warn("大纲生成瞬时失败，退避重试",
				"attempt", attempt, "delay", delay.String(), "error", err.Error())
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		return r.fail(ctx, novel, failureReasonFor(kind, attempt >= r.retry.MaxAttempts), err)
	}

	if len(outline.ChapterPlots) != chapterCount {
		err := fmt.Errorf("outline returned %d chapter plots, expected %d",
			len(outline.ChapterPlots), chapterCount)
		return r.fail(ctx, novel, entity.FailureReasonFatal, err)
	}

	if err := novel.BeginGenerating(outline.Title, outline.Summary, outline.Plot, chapterCount); err != nil {
		return r.fail(ctx, novel, entity.FailureReasonFatal, err)
	}
	novel.ChapterPlots = outline.ChapterPlots
	if err := r.novelRepo.Update(ctx, novel); err != nil {
		return fmt.Errorf("persist outline for novel %s: %w", novel.ID, err)
	}

	log.Info("大纲生成完成", "title", novel.Title, "total_chapters", chapterCount)
	return nil
}

// runChapter 生成并提交一个章节，返回已提交正文
func (r *Runner) runChapter(ctx context.Context, novel *entity.Novel, index int, prevText string) (string, error) {
	ctx, span := tracer.Start(ctx, "Runner.runChapter",
		trace.WithAttributes(attribute.Int("chapter.index", index)))
	defer span.End()

	ctx = logger.WithContext(ctx, logger.ChapterKey, index)
	log := logger.FromContext(ctx)

	req := ChapterRequest{
		NovelID:         novel.ID,
		Index:           index,
		TotalChapters:   novel.TotalChapterCount,
		OverallPlot:     novel.OverallPlot,
		ChapterPlot:     chapterPlotAt(novel, index),
		Style:           novel.Setting.Style,
		PreviousContext: r.ctxBuilder.Build(index, prevText),
	}

	start := time.Now()
	var text string
	for attempt := 1; ; attempt++ {
		var err error
		text, err = r.client.GenerateChapter(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		kind := KindOf(err)
		if kind == KindTransient && attempt < r.retry.MaxAttempts {
			delay := r.retry.Delay(attempt)
			metrics.ChapterRetriesTotal.Inc()
			log.Warn("章节生成瞬时失败，退避重试",
				"attempt", attempt, "delay", delay.String(), "error", err.Error())
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return "", sleepErr
			}
			continue
		}

		// 终结性失败：留痕后终结整部小说
		if recErr := r.chapterRepo.RecordFailure(ctx, entity.NewFailedChapter(novel.ID, index, err)); recErr != nil {
			log.Error("失败章节留痕失败", "error", recErr.Error())
		}
		return "", r.fail(ctx, novel, failureReasonFor(kind, attempt >= r.retry.MaxAttempts), err)
	}

	chapter := entity.NewCommittedChapter(novel.ID, index, text, req.ChapterPlot)
	if err := r.chapterRepo.Append(ctx, novel, chapter); err != nil {
		log.Error("章节提交失败", "error", err.Error())
		return "", r.fail(ctx, novel, entity.FailureReasonFatal, err)
	}

	metrics.ChaptersCommittedTotal.Inc()
	metrics.ChapterGenerationDuration.Observe(time.Since(start).Seconds())
	metrics.ChapterWordCount.Observe(float64(chapter.TextLength()))
	log.Info("章节已提交",
		"committed", novel.CommittedChapters,
		"total", novel.TotalChapterCount,
		"text_length", chapter.TextLength())
	return text, nil
}

// loadCommittedText 回读指定序号已提交章节的正文
func (r *Runner) loadCommittedText(ctx context.Context, novelID string, index int) (string, error) {
	chapters, err := r.chapterRepo.ListCommittedAfter(ctx, novelID, index-1)
	if err != nil {
		return "", fmt.Errorf("load chapter %d of novel %s: %w", index, novelID, err)
	}
	for _, c := range chapters {
		if c.Index == index {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("chapter %d of novel %s not found", index, novelID)
}

// fail 把小说推进到失败终态并持久化，返回原始错误
func (r *Runner) fail(ctx context.Context, novel *entity.Novel, reason entity.FailureReason, cause error) error {
	log := logger.FromContext(ctx)

	if err := novel.FailGeneration(reason); err != nil {
		log.Error("失败终态推进被拒绝", "error", err.Error())
		return cause
	}
	if err := r.novelRepo.Update(ctx, novel); err != nil {
		log.Error("失败终态持久化失败", "error", err.Error())
	}

	metrics.NovelGenerationTotal.WithLabelValues(string(entity.NovelStatusFailed)).Inc()
	metrics.GenerationFailuresTotal.WithLabelValues(string(reason)).Inc()
	log.Error("小说生成失败",
		"reason", string(reason),
		"committed", novel.CommittedChapters,
		"error", cause.Error())
	return cause
}

// failureReasonFor 由错误分类推导失败原因码
func failureReasonFor(kind ErrorKind, exhausted bool) entity.FailureReason {
	switch kind {
	case KindContentPolicy:
		return entity.FailureReasonContentPolicy
	case KindTransient:
		if exhausted {
			return entity.FailureReasonRetriesExhausted
		}
		return entity.FailureReasonFatal
	default:
		return entity.FailureReasonFatal
	}
}

// chapterPlotAt 取第 index 章的分章情节，缺失时返回空串
func chapterPlotAt(novel *entity.Novel, index int) string {
	if index < 1 || index > len(novel.ChapterPlots) {
		return ""
	}
	return novel.ChapterPlots[index-1]
}
