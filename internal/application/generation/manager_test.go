package generation

import (
	"context"
	"testing"
	"time"

	"serial-novel-api/internal/domain/entity"
)

func waitTask(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish in time")
	}
}

func TestManager_SingleFlightPerNovel(t *testing.T) {
	store := newMemStore()
	block := make(chan struct{})
	client := &fakeClient{blockUntil: block}
	manager := NewManager(newTestRunner(store, client, nil))

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 1000})
	_ = store.Create(context.Background(), novel)

	task1, started1 := manager.Start(context.Background(), novel)
	if task1 == nil || !started1 {
		t.Fatalf("first Start() = (%v, %v), want new task", task1, started1)
	}

	// 任务在途时重复启动返回同一句柄
	task2, started2 := manager.Start(context.Background(), novel)
	if started2 {
		t.Fatal("second Start() started a duplicate runner")
	}
	if task2 != task1 {
		t.Fatal("second Start() returned a different task")
	}
	if got := manager.Lookup(novel.ID); got != task1 {
		t.Fatal("Lookup() did not return the in-flight task")
	}

	close(block)
	waitTask(t, task1)

	if manager.Lookup(novel.ID) != nil {
		t.Fatal("finished task still registered")
	}
	if novel.Status != entity.NovelStatusCompleted {
		t.Fatalf("status = %s, want completed", novel.Status)
	}
}

func TestManager_TerminalNovelNotStarted(t *testing.T) {
	store := newMemStore()
	manager := NewManager(newTestRunner(store, &fakeClient{}, nil))

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 1000})
	_ = novel.FailGeneration(entity.FailureReasonFatal)

	if task, started := manager.Start(context.Background(), novel); task != nil || started {
		t.Fatalf("Start() on terminal novel = (%v, %v), want (nil, false)", task, started)
	}
}

func TestManager_FirstChapterDelivery(t *testing.T) {
	store := newMemStore()
	manager := NewManager(newTestRunner(store, &fakeClient{}, nil))

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 6000})
	_ = store.Create(context.Background(), novel)

	task, _ := manager.Start(context.Background(), novel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := task.AwaitFirstChapter(ctx)
	if err != nil {
		t.Fatalf("AwaitFirstChapter() err = %v", err)
	}
	if text == "" {
		t.Fatal("first chapter text is empty")
	}

	waitTask(t, task)
	if task.Err() != nil {
		t.Fatalf("task err = %v, want nil", task.Err())
	}
}

func TestManager_FirstChapterFailureWakesWaiter(t *testing.T) {
	store := newMemStore()
	client := &fakeClient{
		chapterErrs: map[int][]error{
			1: {ContentPolicy("llm.chapter", context.DeadlineExceeded)},
		},
	}
	manager := NewManager(newTestRunner(store, client, nil))

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 1000})
	_ = store.Create(context.Background(), novel)

	task, _ := manager.Start(context.Background(), novel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := task.AwaitFirstChapter(ctx); err == nil {
		t.Fatal("AwaitFirstChapter() err = nil, want generation error")
	} else if KindOf(err) != KindContentPolicy {
		t.Fatalf("AwaitFirstChapter() err kind = %s, want content_policy", KindOf(err))
	}
	waitTask(t, task)
}

func TestManager_AwaitDecoupledFromCaller(t *testing.T) {
	store := newMemStore()
	block := make(chan struct{})
	client := &fakeClient{blockUntil: block}
	manager := NewManager(newTestRunner(store, client, nil))

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 1000})
	_ = store.Create(context.Background(), novel)

	callerCtx, callerCancel := context.WithCancel(context.Background())
	task, _ := manager.Start(callerCtx, novel)

	// 调用方放弃等待，后台任务继续
	callerCancel()
	if _, err := task.AwaitFirstChapter(callerCtx); err == nil {
		t.Fatal("AwaitFirstChapter() with cancelled ctx err = nil")
	}

	close(block)
	waitTask(t, task)
	if novel.Status != entity.NovelStatusCompleted {
		t.Fatalf("status = %s, caller cancellation must not stop the runner", novel.Status)
	}
}

func TestManager_ShutdownRejectsNewTasks(t *testing.T) {
	store := newMemStore()
	manager := NewManager(newTestRunner(store, &fakeClient{}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() err = %v", err)
	}

	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 1000})
	if task, started := manager.Start(context.Background(), novel); task != nil || started {
		t.Fatal("Start() after shutdown accepted a task")
	}
}
