package generation

import (
	"context"
	"time"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
	pkgerrors "serial-novel-api/pkg/errors"
	"serial-novel-api/pkg/logger"
)

// CreateRequest 创建小说请求
type CreateRequest struct {
	OwnerID string
	Setting entity.NovelSetting
}

// CreateResult 创建小说的同步返回：第一章提交后返回
type CreateResult struct {
	NovelID          string
	Title            string
	FirstChapterText string
	TotalChapters    int
}

// Service 生成侧应用服务：创建小说、启动与恢复后台生成
type Service struct {
	novelRepo  repository.NovelRepository
	userRepo   repository.UserRepository
	lookupRepo repository.LookupRepository
	manager    *Manager

	// firstChapterTimeout 创建请求同步等待第一章的上限
	firstChapterTimeout time.Duration
}

// NewService 创建生成服务
func NewService(
	novelRepo repository.NovelRepository,
	userRepo repository.UserRepository,
	lookupRepo repository.LookupRepository,
	manager *Manager,
	firstChapterTimeout time.Duration,
) *Service {
	if firstChapterTimeout <= 0 {
		firstChapterTimeout = 10 * time.Minute
	}
	return &Service{
		novelRepo:           novelRepo,
		userRepo:            userRepo,
		lookupRepo:          lookupRepo,
		manager:             manager,
		firstChapterTimeout: firstChapterTimeout,
	}
}

// CreateNovel 创建小说并启动后台生成。
//
// 调用同步阻塞到第一章提交为止；后续章节在后台继续生成，客户端通过
// 增量拉取接口获取。第一章生成失败时小说进入失败终态并返回错误。
func (s *Service) CreateNovel(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	novel := entity.NewNovel(req.OwnerID, req.Setting)
	if err := s.novelRepo.Create(ctx, novel); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "创建小说失败")
	}

	ctx = logger.WithContext(ctx, logger.NovelIDKey, novel.ID)
	task, started := s.manager.Start(ctx, novel)
	if task == nil {
		return nil, pkgerrors.New(pkgerrors.CodeServiceUnavailable, "服务正在关闭，无法启动生成")
	}
	if started {
		logger.Info(ctx, "后台生成任务已启动", "owner_id", req.OwnerID)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.firstChapterTimeout)
	defer cancel()

	firstText, err := task.AwaitFirstChapter(waitCtx)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			// 超时不中断后台任务，客户端可稍后轮询
			return nil, pkgerrors.New(pkgerrors.CodeGenerationFailed, "第一章生成超时，请稍后查询生成进度")
		}
		if KindOf(err) == KindContentPolicy {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeGenerationBlocked, "生成内容被安全策略拦截")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeGenerationFailed, "小说生成失败")
	}

	// 大纲阶段由后台任务写回，此处回读以返回标题与章节数
	fresh, getErr := s.novelRepo.GetByID(ctx, novel.ID)
	if getErr != nil || fresh == nil {
		fresh = novel
	}

	return &CreateResult{
		NovelID:          fresh.ID,
		Title:            fresh.Title,
		FirstChapterText: firstText,
		TotalChapters:    fresh.TotalChapterCount,
	}, nil
}

// ResumeInterrupted 启动时恢复未到终态的小说生成任务
func (s *Service) ResumeInterrupted(ctx context.Context) error {
	novels, err := s.novelRepo.ListUnfinished(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询未完成小说失败")
	}

	for _, novel := range novels {
		if _, started := s.manager.Start(ctx, novel); started {
			logger.Info(ctx, "恢复被中断的生成任务",
				"novel_id", novel.ID, "status", string(novel.Status),
				"committed", novel.CommittedChapters, "total", novel.TotalChapterCount)
		}
	}
	return nil
}

// Shutdown 优雅停止后台生成
func (s *Service) Shutdown(ctx context.Context) error {
	return s.manager.Shutdown(ctx)
}

func (s *Service) validate(ctx context.Context, req CreateRequest) error {
	if req.OwnerID == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidParam, "owner_id 不能为空")
	}
	if req.Setting.TargetLength < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidParam, "target_length 必须为正数")
	}

	user, err := s.userRepo.GetByID(ctx, req.OwnerID)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询用户失败")
	}
	if user == nil {
		return pkgerrors.ErrUserNotFound
	}

	if req.Setting.Genre != "" {
		ok, err := s.lookupRepo.GenreExists(ctx, req.Setting.Genre)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询体裁失败")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidGenre, "未知的体裁")
		}
	}
	if req.Setting.Mood != "" {
		ok, err := s.lookupRepo.MoodExists(ctx, req.Setting.Mood)
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "查询氛围失败")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidMood, "未知的氛围")
		}
	}
	return nil
}
