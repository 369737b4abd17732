package generation

import (
	"context"
	"sync"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/pkg/logger"
	"serial-novel-api/pkg/metrics"
)

// Task 一次进行中的生成任务句柄
type Task struct {
	NovelID string

	firstOnce sync.Once
	firstCh   chan struct{}
	firstText string
	firstErr  error

	done chan struct{}
	err  error
}

func newTask(novelID string) *Task {
	return &Task{
		NovelID: novelID,
		firstCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// deliverFirst 投递第一章结果，只生效一次
func (t *Task) deliverFirst(text string, err error) {
	t.firstOnce.Do(func() {
		t.firstText = text
		t.firstErr = err
		close(t.firstCh)
	})
}

// AwaitFirstChapter 阻塞等待第一章提交或生成失败。
// ctx 超时不影响后台任务本身，只放弃等待。
func (t *Task) AwaitFirstChapter(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.firstCh:
		return t.firstText, t.firstErr
	}
}

// Done 任务结束信号
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err 任务结束后的最终错误，Done 关闭前调用无意义
func (t *Task) Err() error {
	return t.err
}

// Manager 按小说维度的单飞任务管理器。
//
// 同一部小说任意时刻至多一个生成任务在运行：重复的启动请求返回
// 已在运行的任务句柄，而不是并行再启动一个。这是章节序号连续性的
// 运行时保障。
type Manager struct {
	runner *Runner

	mu    sync.Mutex
	tasks map[string]*Task

	// baseCtx 后台任务的根上下文，进程关闭时统一取消
	baseCtx    context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	shutdownMu sync.Mutex
	shutdown   bool
}

// NewManager 创建任务管理器
func NewManager(runner *Runner) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		tasks:   make(map[string]*Task),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start 为小说启动后台生成任务。
//
// 已有进行中任务时返回该任务且 started=false；小说已处于终态时返回
// (nil, false)。任务生命周期与调用方请求解耦：请求断开不会中断生成。
func (m *Manager) Start(ctx context.Context, novel *entity.Novel) (task *Task, started bool) {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil, false
	}
	m.shutdownMu.Unlock()

	if novel.Status.IsTerminal() {
		return nil, false
	}

	m.mu.Lock()
	if existing, ok := m.tasks[novel.ID]; ok {
		m.mu.Unlock()
		return existing, false
	}
	task = newTask(novel.ID)
	m.tasks[novel.ID] = task
	m.mu.Unlock()

	// 保留调用方 context 中的追踪与日志信息，剥离其取消信号
	runCtx := context.WithoutCancel(ctx)
	runCtx, stop := context.WithCancel(runCtx)
	go func() {
		select {
		case <-m.baseCtx.Done():
			stop()
		case <-task.done:
			stop()
		}
	}()

	m.wg.Add(1)
	metrics.ActiveRunners.Inc()
	go m.run(runCtx, novel, task)

	return task, true
}

// Lookup 返回小说当前进行中的任务，没有则返回 nil
func (m *Manager) Lookup(novelID string) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[novelID]
}

func (m *Manager) run(ctx context.Context, novel *entity.Novel, task *Task) {
	defer func() {
		m.mu.Lock()
		delete(m.tasks, novel.ID)
		m.mu.Unlock()

		metrics.ActiveRunners.Dec()
		close(task.done)
		m.wg.Done()
	}()

	err := m.runner.Run(ctx, novel, func(index int, text string) {
		if index == 1 {
			task.deliverFirst(text, nil)
		}
	})
	task.err = err
	if err != nil {
		// 第一章都未产出就失败时，等待方需要被唤醒
		task.deliverFirst("", err)
		logger.Error(ctx, "生成任务结束于错误", err, "novel_id", novel.ID)
		return
	}
	logger.Info(ctx, "生成任务正常结束", "novel_id", novel.ID)
}

// Shutdown 停止接收新任务并等待在途任务退出。
// 在途任务被取消后小说停留在当前状态，下次启动时可恢复。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	m.shutdown = true
	m.shutdownMu.Unlock()

	m.cancel()

	waitCh := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waitCh:
		return nil
	}
}
