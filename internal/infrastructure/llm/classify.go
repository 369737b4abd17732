package llm

import (
	"strings"

	"serial-novel-api/internal/application/generation"
)

// classify 把供应商错误映射为生成错误分类。
// 供应商 SDK 不提供稳定的错误类型，按错误消息匹配。
func classify(op string, err error) *generation.Error {
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg,
		"rate limit", "too many requests", "429",
		"timeout", "deadline exceeded", "timed out",
		"connection", "network", "broken pipe", "reset by peer",
		"temporarily", "overloaded", "unavailable", "502", "503", "504",
		"empty response", "empty content"):
		return generation.Transient(op, err)

	case containsAny(msg,
		"safety", "content policy", "content_filter", "content filter",
		"blocked", "prohibited", "flagged", "harm"):
		return generation.ContentPolicy(op, err)

	default:
		return generation.Fatal(op, err)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
