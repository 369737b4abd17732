package dto

import (
	"time"

	"serial-novel-api/internal/application/generation"
	"serial-novel-api/internal/application/reading"
	"serial-novel-api/internal/domain/entity"
)

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	Genre        string `json:"genre"`
	Mood         string `json:"mood"`
	Style        string `json:"style"`
	TargetLength int    `json:"target_length" binding:"required,min=1"`
}

// ToSetting 转换为领域设定
func (r *CreateNovelRequest) ToSetting() entity.NovelSetting {
	return entity.NovelSetting{
		Genre:        r.Genre,
		Mood:         r.Mood,
		Style:        r.Style,
		TargetLength: r.TargetLength,
	}
}

// CreateNovelResponse 创建小说响应：第一章提交后同步返回
type CreateNovelResponse struct {
	NovelID            string `json:"novel_id"`
	Title              string `json:"title"`
	FirstChapterText   string `json:"first_chapter_text"`
	TotalChapterNumber int    `json:"total_chapter_number"`
}

// ToCreateNovelResponse 转换创建结果
func ToCreateNovelResponse(res *generation.CreateResult) CreateNovelResponse {
	return CreateNovelResponse{
		NovelID:            res.NovelID,
		Title:              res.Title,
		FirstChapterText:   res.FirstChapterText,
		TotalChapterNumber: res.TotalChapters,
	}
}

// NovelResponse 小说详情响应
type NovelResponse struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	Title               string    `json:"title"`
	Summary             string    `json:"summary,omitempty"`
	Genre               string    `json:"genre,omitempty"`
	Mood                string    `json:"mood,omitempty"`
	Style               string    `json:"style,omitempty"`
	TargetLength        int       `json:"target_length"`
	Status              string    `json:"status"`
	FailureReason       string    `json:"failure_reason,omitempty"`
	TotalChapterCount   int       `json:"total_chapter_count"`
	CommittedChapters   int       `json:"committed_chapters"`
	CommittedTextLength int       `json:"committed_text_length"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ToNovelResponse 转换小说实体
func ToNovelResponse(n *entity.Novel) NovelResponse {
	return NovelResponse{
		ID:                  n.ID,
		OwnerID:             n.OwnerID,
		Title:               n.Title,
		Summary:             n.Summary,
		Genre:               n.Setting.Genre,
		Mood:                n.Setting.Mood,
		Style:               n.Setting.Style,
		TargetLength:        n.Setting.TargetLength,
		Status:              string(n.Status),
		FailureReason:       string(n.FailureReason),
		TotalChapterCount:   n.TotalChapterCount,
		CommittedChapters:   n.CommittedChapters,
		CommittedTextLength: n.CommittedTextLength,
		CreatedAt:           n.CreatedAt,
		UpdatedAt:           n.UpdatedAt,
	}
}

// ToNovelResponses 转换小说实体列表
func ToNovelResponses(novels []*entity.Novel) []NovelResponse {
	out := make([]NovelResponse, 0, len(novels))
	for _, n := range novels {
		out = append(out, ToNovelResponse(n))
	}
	return out
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Plot  string `json:"plot,omitempty"`
}

// ChapterRecordResponse 章节留痕响应，含失败记录
type ChapterRecordResponse struct {
	Index     int       `json:"index"`
	Outcome   string    `json:"outcome"`
	Text      string    `json:"text,omitempty"`
	Plot      string    `json:"plot,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToChapterRecordResponses 转换章节记录列表
func ToChapterRecordResponses(chapters []*entity.Chapter) []ChapterRecordResponse {
	out := make([]ChapterRecordResponse, 0, len(chapters))
	for _, c := range chapters {
		out = append(out, ChapterRecordResponse{
			Index:     c.Index,
			Outcome:   string(c.Outcome),
			Text:      c.Text,
			Plot:      c.Plot,
			Error:     c.Error,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

// NovelUpdateResponse 增量拉取响应
type NovelUpdateResponse struct {
	NovelID       string            `json:"novel_id"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	TotalChapters int               `json:"total_chapters"`
	LastIndex     int               `json:"last_index"`
	Finished      bool              `json:"finished"`
	Chapters      []ChapterResponse `json:"chapters"`
}

// ToNovelUpdateResponse 转换增量拉取结果
func ToNovelUpdateResponse(u *reading.Update) NovelUpdateResponse {
	resp := NovelUpdateResponse{
		NovelID:       u.NovelID,
		Status:        string(u.Status),
		FailureReason: string(u.FailureReason),
		TotalChapters: u.TotalChapters,
		LastIndex:     u.LastIndex,
		Finished:      u.Finished(),
		Chapters:      make([]ChapterResponse, 0, len(u.Chapters)),
	}
	for _, c := range u.Chapters {
		resp.Chapters = append(resp.Chapters, ChapterResponse{Index: c.Index, Text: c.Text, Plot: c.Plot})
	}
	return resp
}

// NovelContentsResponse 小说全文响应
type NovelContentsResponse struct {
	NovelID       string            `json:"novel_id"`
	Title         string            `json:"title"`
	Status        string            `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	TotalChapters int               `json:"total_chapters"`
	Chapters      []ChapterResponse `json:"chapters"`
	FullText      string            `json:"full_text"`
}

// ToNovelContentsResponse 转换全文结果
func ToNovelContentsResponse(contents *reading.Contents) NovelContentsResponse {
	resp := NovelContentsResponse{
		NovelID:       contents.NovelID,
		Title:         contents.Title,
		Status:        string(contents.Status),
		FailureReason: string(contents.FailureReason),
		TotalChapters: contents.TotalChapters,
		Chapters:      make([]ChapterResponse, 0, len(contents.Chapters)),
		FullText:      contents.FullText,
	}
	for _, c := range contents.Chapters {
		resp.Chapters = append(resp.Chapters, ChapterResponse{Index: c.Index, Text: c.Text, Plot: c.Plot})
	}
	return resp
}
