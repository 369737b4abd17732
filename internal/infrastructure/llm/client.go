package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"serial-novel-api/internal/application/generation"
	"serial-novel-api/internal/domain/entity"
	"serial-novel-api/pkg/logger"
	"serial-novel-api/pkg/metrics"
)

const (
	opOutline = "outline"
	opChapter = "chapter"
)

// Client 基于 Eino ChatModel 的生成客户端，实现 generation.Client。
// 错误分类在此完成：可重试的供应商错误标为 Transient，安全拦截标为
// ContentPolicy，其余按 Fatal 交由上层终结生成。
type Client struct {
	factory  *Factory
	provider string
}

var _ generation.Client = (*Client)(nil)

// NewClient 创建生成客户端
func NewClient(factory *Factory, provider string) *Client {
	return &Client{factory: factory, provider: provider}
}

// GenerateOutline 生成大纲：标题、梗概、整体情节与分章情节
func (c *Client) GenerateOutline(ctx context.Context, setting entity.NovelSetting, chapterCount int) (*generation.Outline, error) {
	prompt := buildOutlinePrompt(setting, chapterCount)

	content, err := c.invoke(ctx, opOutline, prompt)
	if err != nil {
		return nil, err
	}

	outline, err := parseOutline(content, chapterCount)
	if err != nil {
		return nil, generation.Fatal("llm.outline", err)
	}

	logger.Info(ctx, "大纲已生成",
		"title", outline.Title, "chapter_plots", len(outline.ChapterPlots))
	return outline, nil
}

// GenerateChapter 生成一章正文
func (c *Client) GenerateChapter(ctx context.Context, req generation.ChapterRequest) (string, error) {
	prompt := buildChapterPrompt(req)

	content, err := c.invoke(ctx, opChapter, prompt)
	if err != nil {
		return "", err
	}
	return content, nil
}

// invoke 调用模型并返回非空正文
func (c *Client) invoke(ctx context.Context, operation, prompt string) (string, error) {
	op := "llm." + operation

	chatModel, err := c.factory.Get(ctx, c.provider)
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(c.provider, operation, "error").Inc()
		return "", generation.Fatal(op, err)
	}

	start := time.Now()
	msg, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	metrics.LLMCallDuration.WithLabelValues(c.provider, operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(c.provider, operation, "error").Inc()
		return "", classify(op, err)
	}

	content := ""
	if msg != nil {
		content = strings.TrimSpace(msg.Content)
	}
	if content == "" {
		// 空响应偶发于供应商侧，按瞬时错误交给重试
		metrics.LLMCallTotal.WithLabelValues(c.provider, operation, "empty").Inc()
		return "", generation.Transient(op, errors.New("empty response from model"))
	}

	metrics.LLMCallTotal.WithLabelValues(c.provider, operation, "success").Inc()
	return content, nil
}

func buildOutlinePrompt(setting entity.NovelSetting, chapterCount int) string {
	genre := orUnspecified(setting.Genre)
	mood := orUnspecified(setting.Mood)
	style := orUnspecified(setting.Style)

	return fmt.Sprintf(`下記の内容の小説を作成するのに、設定やプロットを具体的に作成してください。小説は全体で%d文字程度、章は%dです。
- ジャンル: %s
- 雰囲気: %s
- 文章スタイル: %s

出力は以下のjson形式で行ってください、その他は一切出力してはいけません。:
{
    "title": (novel's title),
    "summary": (summary),
    "plot": (plot),
    "chapter_plots": [
        (plot of each chapter as a string, generate same number of items as chapters)
    ]
}`, setting.TargetLength, chapterCount, genre, mood, style)
}

func buildChapterPrompt(req generation.ChapterRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sの小説の第%d章（全%d章）を、以下の情報を参考に生成してください。",
		req.OverallPlot, req.Index, req.TotalChapters)
	if req.ChapterPlot != "" {
		fmt.Fprintf(&sb, "\n- この章のプロット: %s", req.ChapterPlot)
	}
	if req.Style != "" {
		fmt.Fprintf(&sb, "\n- 文体: %s", req.Style)
	}
	if req.PreviousContext != "" {
		fmt.Fprintf(&sb, "\n下記は前の章です:\n%s", req.PreviousContext)
	}
	return sb.String()
}

func orUnspecified(s string) string {
	if s == "" {
		return "指定なし"
	}
	return s
}

// chapterPlotItem 兼容字符串与 {"plot": "..."} 两种分章情节表示
type chapterPlotItem struct {
	value string
}

func (p *chapterPlotItem) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.value = s
		return nil
	}
	var obj struct {
		Plot string `json:"plot"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	p.value = obj.Plot
	return nil
}

// parseOutline 解析大纲响应并校验分章情节数量
func parseOutline(content string, chapterCount int) (*generation.Outline, error) {
	raw := extractJSONObject(content)

	var payload struct {
		Title        string            `json:"title"`
		Summary      string            `json:"summary"`
		Plot         string            `json:"plot"`
		ChapterPlots []chapterPlotItem `json:"chapter_plots"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed outline response: %w", err)
	}
	if payload.Title == "" || payload.Plot == "" {
		return nil, errors.New("outline response missing title or plot")
	}
	if len(payload.ChapterPlots) != chapterCount {
		return nil, fmt.Errorf("outline returned %d chapter plots, expected %d",
			len(payload.ChapterPlots), chapterCount)
	}

	outline := &generation.Outline{
		Title:        payload.Title,
		Summary:      payload.Summary,
		Plot:         payload.Plot,
		ChapterPlots: make([]string, 0, len(payload.ChapterPlots)),
	}
	for _, p := range payload.ChapterPlots {
		outline.ChapterPlots = append(outline.ChapterPlots, p.value)
	}
	return outline, nil
}
