// Package memory 提供内存仓储实现，用于测试与本地开发
package memory

import (
	"context"
	"sort"
	"sync"

	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/domain/repository"
)

// Store 内存存储，同时实现全部仓储接口。
// 所有读取返回写入时刻的快照副本，调用方修改返回值不影响存储内容。
type Store struct {
	mu       sync.RWMutex
	novels   map[string]*entity.Novel
	chapters map[string][]*entity.Chapter
	users    map[string]*entity.User
	genres   map[string]entity.Genre
	moods    map[string]entity.Mood
}

var (
	_ repository.NovelRepository   = (*Store)(nil)
	_ repository.ChapterRepository = (*Store)(nil)
	_ repository.LookupRepository  = (*Store)(nil)
	_ repository.UserRepository    = (*userStore)(nil)
)

// NewStore 创建内存存储
func NewStore() *Store {
	return &Store{
		novels:   make(map[string]*entity.Novel),
		chapters: make(map[string][]*entity.Chapter),
		users:    make(map[string]*entity.User),
		genres:   make(map[string]entity.Genre),
		moods:    make(map[string]entity.Mood),
	}
}

func cloneNovel(n *entity.Novel) *entity.Novel {
	c := *n
	c.ChapterPlots = append([]string(nil), n.ChapterPlots...)
	return &c
}

func cloneChapter(c *entity.Chapter) *entity.Chapter {
	cp := *c
	return &cp
}

// Create 创建小说记录
func (s *Store) Create(_ context.Context, novel *entity.Novel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.novels[novel.ID] = cloneNovel(novel)
	return nil
}

// GetByID 根据 ID 获取小说，不存在时返回 (nil, nil)
func (s *Store) GetByID(_ context.Context, id string) (*entity.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.novels[id]
	if !ok {
		return nil, nil
	}
	return cloneNovel(n), nil
}

// Update 持久化实体当前状态
func (s *Store) Update(_ context.Context, novel *entity.Novel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.novels[novel.ID] = cloneNovel(novel)
	return nil
}

// ListByOwner 获取用户的小说列表，按创建时间倒序
func (s *Store) ListByOwner(_ context.Context, ownerID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*entity.Novel
	for _, n := range s.novels {
		if n.OwnerID == ownerID {
			all = append(all, cloneNovel(n))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	start := pagination.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + pagination.Limit()
	if end > len(all) {
		end = len(all)
	}
	return repository.NewPagedResult(all[start:end], total, pagination), nil
}

// ListUnfinished 返回全部未到终态的小说
func (s *Store) ListUnfinished(_ context.Context) ([]*entity.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Novel
	for _, n := range s.novels {
		if !n.Status.IsTerminal() {
			out = append(out, cloneNovel(n))
		}
	}
	return out, nil
}

// Append 原子提交章节并推进小说计数
func (s *Store) Append(_ context.Context, novel *entity.Novel, chapter *entity.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.novels[novel.ID]
	if !ok {
		stored = cloneNovel(novel)
	}
	if chapter.Index != stored.CommittedChapters+1 {
		return repository.ErrCommitConflict
	}
	if err := novel.RecordCommit(chapter.Index, chapter.TextLength()); err != nil {
		return err
	}

	s.chapters[novel.ID] = append(s.chapters[novel.ID], cloneChapter(chapter))
	s.novels[novel.ID] = cloneNovel(novel)
	return nil
}

// RecordFailure 记录失败章节
func (s *Store) RecordFailure(_ context.Context, chapter *entity.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapters[chapter.NovelID] = append(s.chapters[chapter.NovelID], cloneChapter(chapter))
	return nil
}

// ListCommittedAfter 返回序号大于 fromIndex 的已提交章节，升序
func (s *Store) ListCommittedAfter(_ context.Context, novelID string, fromIndex int) ([]*entity.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entity.Chapter
	for _, c := range s.chapters[novelID] {
		if c.Outcome == entity.ChapterOutcomeCommitted && c.Index > fromIndex {
			out = append(out, cloneChapter(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// ListByNovel 返回小说全部章节记录，按序号升序
func (s *Store) ListByNovel(_ context.Context, novelID string) ([]*entity.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Chapter, 0, len(s.chapters[novelID]))
	for _, c := range s.chapters[novelID] {
		out = append(out, cloneChapter(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// userStore 用户仓储视图。用户侧与小说侧的方法签名冲突，
// 通过独立视图实现 UserRepository 接口。
type userStore struct {
	s *Store
}

// Users 返回用户仓储视图
func (s *Store) Users() repository.UserRepository {
	return &userStore{s: s}
}

// Create 创建用户
func (u *userStore) Create(ctx context.Context, user *entity.User) error {
	return u.s.createUser(ctx, user)
}

// GetByID 根据 ID 获取用户，不存在时返回 (nil, nil)
func (u *userStore) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return u.s.getUserByID(ctx, id)
}

// List 用户列表
func (u *userStore) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	return u.s.listUsers(ctx, pagination)
}

func (s *Store) createUser(_ context.Context, user *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) getUserByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (s *Store) listUsers(_ context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*entity.User
	for _, u := range s.users {
		c := *u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := int64(len(all))
	start := pagination.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + pagination.Limit()
	if end > len(all) {
		end = len(all)
	}
	return repository.NewPagedResult(all[start:end], total, pagination), nil
}

// ListGenres 体裁清单
func (s *Store) ListGenres(_ context.Context) ([]entity.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Genre, 0, len(s.genres))
	for _, g := range s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ListMoods 氛围清单
func (s *Store) ListMoods(_ context.Context) ([]entity.Mood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Mood, 0, len(s.moods))
	for _, m := range s.moods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// GenreExists 体裁是否存在
func (s *Store) GenreExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.genres[code]
	return ok, nil
}

// MoodExists 氛围是否存在
func (s *Store) MoodExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.moods[code]
	return ok, nil
}

// SeedDefaults 按缺失补种固定参照数据
func (s *Store) SeedDefaults(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range entity.DefaultGenres() {
		if _, ok := s.genres[g.Code]; !ok {
			s.genres[g.Code] = g
		}
	}
	for _, m := range entity.DefaultMoods() {
		if _, ok := s.moods[m.Code]; !ok {
			s.moods[m.Code] = m
		}
	}
	return nil
}
