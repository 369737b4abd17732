package memory

import (
	"context"
	"errors"
	"testing"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

func newGeneratingNovel(t *testing.T, store *Store, total int) *entity.Novel {
	t.Helper()
	n := entity.NewNovel("user-1", entity.NovelSetting{TargetLength: total * 2000})
	if err := n.BeginGenerating("タイトル", "梗概", "情節", total); err != nil {
		t.Fatalf("BeginGenerating() err = %v", err)
	}
	if err := store.Create(context.Background(), n); err != nil {
		t.Fatalf("Create() err = %v", err)
	}
	return n
}

func TestStore_AppendAdvancesCounters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	n := newGeneratingNovel(t, store, 2)

	c1 := entity.NewCommittedChapter(n.ID, 1, "第一章です。", "p1")
	if err := store.Append(ctx, n, c1); err != nil {
		t.Fatalf("Append(1) err = %v", err)
	}
	if n.CommittedChapters != 1 {
		t.Fatalf("entity committed = %d, want 1", n.CommittedChapters)
	}

	stored, _ := store.GetByID(ctx, n.ID)
	if stored.CommittedChapters != 1 {
		t.Fatalf("stored committed = %d, want 1", stored.CommittedChapters)
	}
	if stored.CommittedTextLength != c1.TextLength() {
		t.Fatalf("stored text length = %d, want %d", stored.CommittedTextLength, c1.TextLength())
	}
}

func TestStore_AppendRejectsConflict(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	n := newGeneratingNovel(t, store, 3)

	// 跳号提交被拒绝
	c3 := entity.NewCommittedChapter(n.ID, 3, "text", "")
	if err := store.Append(ctx, n, c3); !errors.Is(err, repository.ErrCommitConflict) {
		t.Fatalf("Append(3) err = %v, want ErrCommitConflict", err)
	}

	_ = store.Append(ctx, n, entity.NewCommittedChapter(n.ID, 1, "text", ""))

	// 重复提交同样被拒绝
	dup := entity.NewCommittedChapter(n.ID, 1, "text", "")
	if err := store.Append(ctx, n, dup); !errors.Is(err, repository.ErrCommitConflict) {
		t.Fatalf("Append(1) twice err = %v, want ErrCommitConflict", err)
	}
}

func TestStore_ListCommittedAfter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	n := newGeneratingNovel(t, store, 3)

	for i := 1; i <= 3; i++ {
		if err := store.Append(ctx, n, entity.NewCommittedChapter(n.ID, i, "text", "")); err != nil {
			t.Fatalf("Append(%d) err = %v", i, err)
		}
	}
	// 失败记录不出现在已提交列表中
	_ = store.RecordFailure(ctx, entity.NewFailedChapter(n.ID, 4, errors.New("boom")))

	got, err := store.ListCommittedAfter(ctx, n.ID, 1)
	if err != nil {
		t.Fatalf("ListCommittedAfter() err = %v", err)
	}
	if len(got) != 2 || got[0].Index != 2 || got[1].Index != 3 {
		t.Fatalf("ListCommittedAfter(1) indices wrong: %+v", got)
	}

	all, _ := store.ListByNovel(ctx, n.ID)
	if len(all) != 4 {
		t.Fatalf("ListByNovel() = %d records, want 4 including failure", len(all))
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	n := newGeneratingNovel(t, store, 1)
	_ = store.Append(ctx, n, entity.NewCommittedChapter(n.ID, 1, "原文", ""))

	got, _ := store.ListCommittedAfter(ctx, n.ID, 0)
	got[0].Text = "改ざん"

	again, _ := store.ListCommittedAfter(ctx, n.ID, 0)
	if again[0].Text != "原文" {
		t.Fatalf("stored chapter mutated through returned snapshot: %q", again[0].Text)
	}

	novel, _ := store.GetByID(ctx, n.ID)
	novel.Status = entity.NovelStatusFailed
	fresh, _ := store.GetByID(ctx, n.ID)
	if fresh.Status != entity.NovelStatusGenerating {
		t.Fatalf("stored novel mutated through returned snapshot: %s", fresh.Status)
	}
}

func TestStore_SeedDefaultsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() err = %v", err)
	}
	if err := store.SeedDefaults(ctx); err != nil {
		t.Fatalf("SeedDefaults() twice err = %v", err)
	}

	genres, _ := store.ListGenres(ctx)
	if len(genres) != len(entity.DefaultGenres()) {
		t.Fatalf("genres = %d, want %d", len(genres), len(entity.DefaultGenres()))
	}
	moods, _ := store.ListMoods(ctx)
	if len(moods) != len(entity.DefaultMoods()) {
		t.Fatalf("moods = %d, want %d", len(moods), len(entity.DefaultMoods()))
	}

	ok, _ := store.GenreExists(ctx, "sf")
	if !ok {
		t.Fatal("GenreExists(sf) = false after seed")
	}
	ok, _ = store.MoodExists(ctx, "unknown")
	if ok {
		t.Fatal("MoodExists(unknown) = true")
	}
}

func TestStore_Users(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	users := store.Users()

	u := entity.NewUser("読者", "reader@example.com")
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() err = %v", err)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = (%v, %v)", got, err)
	}
	if got.UserName != "読者" {
		t.Fatalf("user name = %q", got.UserName)
	}

	missing, err := users.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing) = (%v, %v), want (nil, nil)", missing, err)
	}

	page, err := users.List(ctx, repository.NewPagination(1, 10))
	if err != nil || page.Total != 1 {
		t.Fatalf("List() total = %d, err = %v", page.Total, err)
	}
}

func TestStore_ListByOwnerAndUnfinished(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	n1 := entity.NewNovel("owner-a", entity.NovelSetting{TargetLength: 1000})
	n2 := entity.NewNovel("owner-a", entity.NovelSetting{TargetLength: 1000})
	_ = n2.BeginGenerating("t", "s", "p", 1)
	n3 := entity.NewNovel("owner-b", entity.NovelSetting{TargetLength: 1000})
	_ = n3.FailGeneration(entity.FailureReasonFatal)

	for _, n := range []*entity.Novel{n1, n2, n3} {
		_ = store.Create(ctx, n)
	}

	page, err := store.ListByOwner(ctx, "owner-a", repository.NewPagination(1, 10))
	if err != nil {
		t.Fatalf("ListByOwner() err = %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("owner-a novels = %d, want 2", page.Total)
	}

	unfinished, _ := store.ListUnfinished(ctx)
	if len(unfinished) != 2 {
		t.Fatalf("unfinished = %d, want 2 (pending + generating)", len(unfinished))
	}
}
