package llm

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// extractJSONObject 从可能带有前后缀噪音的模型输出中提取顶层 JSON。
// 无法确认 JSON 有效性时回退为原始输入（trim 后）。
func extractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start := -1
	end := -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err == nil {
		if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
			return raw
		}
	}

	dec = json.NewDecoder(strings.NewReader(raw))
	for {
		_, e := dec.Token()
		if e != nil {
			if errors.Is(e, io.EOF) {
				break
			}
			return strings.TrimSpace(s)
		}
	}
	return raw
}
