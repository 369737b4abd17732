package llm

import (
	"errors"
	"strings"
	"testing"

	"serial-novel-api/internal/application/generation"
	"serial-novel-api/internal/domain/entity"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want generation.ErrorKind
	}{
		{"429 Too Many Requests", generation.KindTransient},
		{"context deadline exceeded", generation.KindTransient},
		{"connection reset by peer", generation.KindTransient},
		{"model overloaded, retry later", generation.KindTransient},
		{"503 Service Unavailable", generation.KindTransient},
		{"response blocked by safety settings", generation.KindContentPolicy},
		{"content_filter triggered", generation.KindContentPolicy},
		{"invalid api key", generation.KindFatal},
		{"unexpected status code 400", generation.KindFatal},
	}
	for _, c := range cases {
		got := classify("llm.test", errors.New(c.msg))
		if got.Kind != c.want {
			t.Fatalf("classify(%q) = %s, want %s", c.msg, got.Kind, c.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	noisy := "以下が出力です。\n```json\n{\"title\": \"t\"}\n```\nご確認ください。"
	if got := extractJSONObject(noisy); got != `{"title": "t"}` {
		t.Fatalf("extractJSONObject() = %q", got)
	}

	clean := `{"a": 1}`
	if got := extractJSONObject(clean); got != clean {
		t.Fatalf("extractJSONObject(clean) = %q", got)
	}

	garbage := "not json at all"
	if got := extractJSONObject(garbage); got != garbage {
		t.Fatalf("extractJSONObject(garbage) = %q", got)
	}
}

func TestParseOutline(t *testing.T) {
	content := `{
		"title": "星の旅",
		"summary": "梗概",
		"plot": "全体プロット",
		"chapter_plots": ["第一章", "第二章", "第三章"]
	}`
	outline, err := parseOutline(content, 3)
	if err != nil {
		t.Fatalf("parseOutline() err = %v", err)
	}
	if outline.Title != "星の旅" || len(outline.ChapterPlots) != 3 {
		t.Fatalf("outline = %+v", outline)
	}
}

func TestParseOutline_ObjectPlots(t *testing.T) {
	// 一部モデルは {"plot": ...} 形式で返す
	content := `{
		"title": "t",
		"summary": "s",
		"plot": "p",
		"chapter_plots": [{"plot": "one"}, {"plot": "two"}]
	}`
	outline, err := parseOutline(content, 2)
	if err != nil {
		t.Fatalf("parseOutline() err = %v", err)
	}
	if outline.ChapterPlots[0] != "one" || outline.ChapterPlots[1] != "two" {
		t.Fatalf("chapter plots = %v", outline.ChapterPlots)
	}
}

func TestParseOutline_Errors(t *testing.T) {
	if _, err := parseOutline("not json", 1); err == nil {
		t.Fatal("malformed response accepted")
	}
	if _, err := parseOutline(`{"title": "t", "plot": "p", "chapter_plots": ["a"]}`, 2); err == nil {
		t.Fatal("chapter plot count mismatch accepted")
	}
	if _, err := parseOutline(`{"summary": "s", "chapter_plots": []}`, 0); err == nil {
		t.Fatal("missing title accepted")
	}
}

func TestBuildChapterPrompt(t *testing.T) {
	req := generation.ChapterRequest{
		Index:           2,
		TotalChapters:   3,
		OverallPlot:     "全体プロット",
		ChapterPlot:     "第二章のプロット",
		Style:           "ライトノベル風",
		PreviousContext: "前章の末尾",
	}
	prompt := buildChapterPrompt(req)

	for _, want := range []string{"第2章", "全3章", "第二章のプロット", "ライトノベル風", "前章の末尾"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("chapter prompt missing %q:\n%s", want, prompt)
		}
	}

	// 第一章は前章コンテキストを含まない
	first := buildChapterPrompt(generation.ChapterRequest{Index: 1, TotalChapters: 3, OverallPlot: "p"})
	if strings.Contains(first, "前の章") {
		t.Fatalf("first chapter prompt carries previous context:\n%s", first)
	}
}

func TestBuildOutlinePrompt_Defaults(t *testing.T) {
	prompt := buildOutlinePrompt(entity.NovelSetting{TargetLength: 6000}, 3)
	if !strings.Contains(prompt, "指定なし") {
		t.Fatal("unset fields not rendered as 指定なし")
	}
	if !strings.Contains(prompt, "6000文字") || !strings.Contains(prompt, "章は3") {
		t.Fatalf("outline prompt missing target length or chapter count:\n%s", prompt)
	}
}
