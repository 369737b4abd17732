package generation

// TailWindow 截取文本末尾不超过 maxRunes 个 rune 的窗口。
// 同一前文必然得到同一窗口，生成上下文因此是确定性的。
func TailWindow(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[len(runes)-maxRunes:])
}

// ContextBuilder 从已提交前文推导章节生成上下文
type ContextBuilder struct {
	// WindowRunes 取上一章末尾的窗口大小
	WindowRunes int
}

// DefaultContextBuilder 默认上下文构造器
func DefaultContextBuilder() ContextBuilder {
	return ContextBuilder{WindowRunes: 2000}
}

// Build 构造第 index 章的前文上下文。
// 第一章没有前文；其余章节取上一章已提交正文的末尾窗口。
func (b ContextBuilder) Build(index int, previousText string) string {
	if index <= 1 {
		return ""
	}
	return TailWindow(previousText, b.WindowRunes)
}
