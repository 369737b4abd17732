// Package llm 提供基于 Eino 的文本生成客户端
package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"serial-novel-api/internal/config"
)

// Factory 管理多个 Eino ChatModel 客户端实例
type Factory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

// NewFactory 创建 LLM 工厂
func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，未指定时返回默认客户端
func (f *Factory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.config.DefaultProvider
	}

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found in LLM config", name)
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// Default 返回默认 ChatModel
func (f *Factory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

func ptrFloat32(f float32) *float32 {
	return &f
}
