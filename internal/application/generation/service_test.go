package generation

import (
	"context"
	"sync"
	"testing"
	"time"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
	pkgerrors "serial-novel-api/pkg/errors"
)

// fakeDirectory 测试用用户与参照表仓储
type fakeDirectory struct {
	mu     sync.Mutex
	users  map[string]*entity.User
	genres map[string]bool
	moods  map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:  map[string]*entity.User{},
		genres: map[string]bool{"sf": true, "fantasy": true},
		moods:  map[string]bool{"serious": true, "comical": true},
	}
}

func (d *fakeDirectory) Create(_ context.Context, user *entity.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
	return nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id string) (*entity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[id], nil
}

func (d *fakeDirectory) List(_ context.Context, p repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	return repository.NewPagedResult([]*entity.User{}, 0, p), nil
}

func (d *fakeDirectory) ListGenres(_ context.Context) ([]entity.Genre, error) { return nil, nil }
func (d *fakeDirectory) ListMoods(_ context.Context) ([]entity.Mood, error)  { return nil, nil }
func (d *fakeDirectory) SeedDefaults(_ context.Context) error                { return nil }

func (d *fakeDirectory) GenreExists(_ context.Context, code string) (bool, error) {
	return d.genres[code], nil
}

func (d *fakeDirectory) MoodExists(_ context.Context, code string) (bool, error) {
	return d.moods[code], nil
}

func newTestService(t *testing.T, store *memStore, client Client) (*Service, *fakeDirectory) {
	t.Helper()
	dir := newFakeDirectory()
	manager := NewManager(newTestRunner(store, client, nil))
	svc := NewService(store, dir, dir, manager, 5*time.Second)
	return svc, dir
}

func TestService_CreateNovel(t *testing.T) {
	store := newMemStore()
	svc, dir := newTestService(t, store, &fakeClient{})

	owner := entity.NewUser("読者A", "a@example.com")
	_ = dir.Create(context.Background(), owner)

	res, err := svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: owner.ID,
		Setting: entity.NovelSetting{Genre: "sf", Mood: "serious", TargetLength: 6000},
	})
	if err != nil {
		t.Fatalf("CreateNovel() err = %v", err)
	}

	if res.NovelID == "" || res.Title == "" {
		t.Fatalf("incomplete result: %+v", res)
	}
	if res.FirstChapterText == "" {
		t.Fatal("first chapter text missing from create result")
	}
	if res.TotalChapters != 3 {
		t.Fatalf("total chapters = %d, want 3", res.TotalChapters)
	}

	// 后台任务继续推进，最终完成
	deadline := time.After(5 * time.Second)
	for {
		novel, _ := store.GetByID(context.Background(), res.NovelID)
		if novel.Status == entity.NovelStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("novel never completed, status %s", novel.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestService_CreateNovel_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, newMemStore(), &fakeClient{})

	_, err := svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: "ghost",
		Setting: entity.NovelSetting{TargetLength: 1000},
	})
	if err == nil {
		t.Fatal("CreateNovel() with unknown user err = nil")
	}
	if appErr := pkgerrors.AsAppError(err); appErr.Code != pkgerrors.CodeUserNotFound {
		t.Fatalf("error code = %s, want %s", appErr.Code, pkgerrors.CodeUserNotFound)
	}
}

func TestService_CreateNovel_InvalidLookups(t *testing.T) {
	store := newMemStore()
	svc, dir := newTestService(t, store, &fakeClient{})
	owner := entity.NewUser("読者B", "b@example.com")
	_ = dir.Create(context.Background(), owner)

	_, err := svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: owner.ID,
		Setting: entity.NovelSetting{Genre: "nope", TargetLength: 1000},
	})
	if appErr := pkgerrors.AsAppError(err); appErr.Code != pkgerrors.CodeInvalidGenre {
		t.Fatalf("genre error code = %s, want %s", appErr.Code, pkgerrors.CodeInvalidGenre)
	}

	_, err = svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: owner.ID,
		Setting: entity.NovelSetting{Mood: "nope", TargetLength: 1000},
	})
	if appErr := pkgerrors.AsAppError(err); appErr.Code != pkgerrors.CodeInvalidMood {
		t.Fatalf("mood error code = %s, want %s", appErr.Code, pkgerrors.CodeInvalidMood)
	}

	_, err = svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: owner.ID,
		Setting: entity.NovelSetting{TargetLength: 0},
	})
	if appErr := pkgerrors.AsAppError(err); appErr.Code != pkgerrors.CodeInvalidParam {
		t.Fatalf("target length error code = %s, want %s", appErr.Code, pkgerrors.CodeInvalidParam)
	}
}

func TestService_CreateNovel_FirstChapterBlocked(t *testing.T) {
	store := newMemStore()
	client := &fakeClient{
		chapterErrs: map[int][]error{
			1: {ContentPolicy("llm.chapter", pkgerrors.ErrGenerationBlocked)},
		},
	}
	svc, dir := newTestService(t, store, client)
	owner := entity.NewUser("読者C", "c@example.com")
	_ = dir.Create(context.Background(), owner)

	_, err := svc.CreateNovel(context.Background(), CreateRequest{
		OwnerID: owner.ID,
		Setting: entity.NovelSetting{TargetLength: 1000},
	})
	if err == nil {
		t.Fatal("CreateNovel() err = nil, want blocked error")
	}
	if appErr := pkgerrors.AsAppError(err); appErr.Code != pkgerrors.CodeGenerationBlocked {
		t.Fatalf("error code = %s, want %s", appErr.Code, pkgerrors.CodeGenerationBlocked)
	}
}

func TestService_ResumeInterrupted(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store, &fakeClient{})

	// 半途的小说：大纲已定、1/2 章已提交
	novel := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: 4000})
	if err := novel.BeginGenerating("中断作品", "s", "p", 2); err != nil {
		t.Fatalf("BeginGenerating() err = %v", err)
	}
	novel.ChapterPlots = []string{"p1", "p2"}
	_ = store.Create(context.Background(), novel)
	if err := store.Append(context.Background(), novel, entity.NewCommittedChapter(novel.ID, 1, "旧正文", "p1")); err != nil {
		t.Fatalf("Append() err = %v", err)
	}

	if err := svc.ResumeInterrupted(context.Background()); err != nil {
		t.Fatalf("ResumeInterrupted() err = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		fresh, _ := store.GetByID(context.Background(), novel.ID)
		if fresh.Status == entity.NovelStatusCompleted {
			if fresh.CommittedChapters != 2 {
				t.Fatalf("committed = %d, want 2", fresh.CommittedChapters)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("interrupted novel never resumed, status %s", fresh.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
