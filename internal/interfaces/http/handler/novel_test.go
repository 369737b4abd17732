package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"serial-novel-api/internal/application/reading"
	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/internal/infrastructure/persistence/memory"
)

func newReadRouter(t *testing.T, store *memory.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	readSvc := reading.NewService(store, store, nil)
	h := NewNovelHandler(nil, readSvc)

	r := gin.New()
	r.GET("/v1/novels/:nid", h.Get)
	r.GET("/v1/novels/:nid/updates", h.GetUpdates)
	r.GET("/v1/novels/:nid/chapters", h.ListChapters)
	r.GET("/v1/novels/:nid/contents", h.GetContents)
	return r
}

func seedNovel(t *testing.T, store *memory.Store, chapters int) *entity.Novel {
	t.Helper()
	ctx := context.Background()

	novel := entity.NewNovel("owner-1", entity.NovelSetting{TargetLength: 6000})
	if err := store.Create(ctx, novel); err != nil {
		t.Fatalf("create novel: %v", err)
	}
	novel.BeginGenerating("試練の塔", "summary", "overall plot", 3)
	if err := store.Update(ctx, novel); err != nil {
		t.Fatalf("update novel: %v", err)
	}
	for i := 1; i <= chapters; i++ {
		ch := entity.NewCommittedChapter(novel.ID, i, strings.Repeat("章", 100), "plot")
		if err := store.Append(ctx, novel, ch); err != nil {
			t.Fatalf("append chapter %d: %v", i, err)
		}
	}
	return novel
}

func TestNovelHandlerGet(t *testing.T) {
	store := memory.NewStore()
	r := newReadRouter(t, store)
	novel := seedNovel(t, store, 2)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/novels/"+novel.ID, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ID                string `json:"id"`
			Status            string `json:"status"`
			CommittedChapters int    `json:"committed_chapters"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.ID != novel.ID {
		t.Fatalf("id = %s, want %s", resp.Data.ID, novel.ID)
	}
	if resp.Data.CommittedChapters != 2 {
		t.Fatalf("committed = %d, want 2", resp.Data.CommittedChapters)
	}
}

func TestNovelHandlerGetNotFound(t *testing.T) {
	store := memory.NewStore()
	r := newReadRouter(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/novels/does-not-exist", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestNovelHandlerGetUpdates(t *testing.T) {
	store := memory.NewStore()
	r := newReadRouter(t, store)
	novel := seedNovel(t, store, 3)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/novels/"+novel.ID+"/updates?from_index=1", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			LastIndex int `json:"last_index"`
			Chapters  []struct {
				Index int `json:"index"`
			} `json:"chapters"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(resp.Data.Chapters))
	}
	if resp.Data.Chapters[0].Index != 2 || resp.Data.LastIndex != 3 {
		t.Fatalf("unexpected cursor window: first=%d last=%d",
			resp.Data.Chapters[0].Index, resp.Data.LastIndex)
	}
}

func TestNovelHandlerGetUpdatesBadCursor(t *testing.T) {
	store := memory.NewStore()
	r := newReadRouter(t, store)
	novel := seedNovel(t, store, 1)

	for _, query := range []string{"from_index=abc", "from_index=-1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/novels/"+novel.ID+"/updates?"+query, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: status = %d, want 400", query, w.Code)
		}
	}

	// 超前游标按协议返回空结果，不是错误
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/novels/"+novel.ID+"/updates?from_index=99", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("over-advanced cursor status = %d, want 200", w.Code)
	}
	var resp struct {
		Data struct {
			LastIndex int `json:"last_index"`
			Chapters  []struct {
				Index int `json:"index"`
			} `json:"chapters"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Data.Chapters) != 0 || resp.Data.LastIndex != 99 {
		t.Fatalf("over-advanced cursor: chapters=%d last=%d, want 0 and 99",
			len(resp.Data.Chapters), resp.Data.LastIndex)
	}
}

func TestNovelHandlerGetContents(t *testing.T) {
	store := memory.NewStore()
	r := newReadRouter(t, store)
	novel := seedNovel(t, store, 2)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/novels/"+novel.ID+"/contents", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			TotalChapters int    `json:"total_chapters"`
			FullText      string `json:"full_text"`
			Chapters      []struct {
				Index int `json:"index"`
			} `json:"chapters"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Data.TotalChapters != 3 {
		t.Fatalf("total = %d, want 3", resp.Data.TotalChapters)
	}
	if len(resp.Data.Chapters) != 2 || resp.Data.FullText == "" {
		t.Fatalf("unexpected contents: chapters=%d", len(resp.Data.Chapters))
	}
}

func TestUserHandlerCreateAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	h := NewUserHandler(store.Users())

	r := gin.New()
	r.POST("/v1/users", h.Create)
	r.GET("/v1/users/:uid", h.Get)

	w := httptest.NewRecorder()
	body := strings.NewReader(`{"user_name":"読者A","email":"reader@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/users", body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if created.Data.ID == "" {
		t.Fatal("expected generated user id")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/users/"+created.Data.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/users/missing", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", w.Code)
	}
}

func TestUserHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	h := NewUserHandler(store.Users())

	r := gin.New()
	r.POST("/v1/users", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/users", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
