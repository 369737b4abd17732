package generation

import (
	"math/rand"
	"time"

	"serial-novel-api/internal/config"
)

// RetryPolicy 瞬时错误重试策略。
// 只作用于单个章节内部：重试永远不会跨越章节边界。
type RetryPolicy struct {
	// MaxAttempts 单章最大尝试次数（含首次）
	MaxAttempts int
	// BaseDelay 首次重试前的等待时间
	BaseDelay time.Duration
	// Multiplier 每次重试的等待时间增长倍率
	Multiplier float64
	// MaxDelay 等待时间上限
	MaxDelay time.Duration
	// Jitter 是否叠加随机抖动，避免并发任务同步重试
	Jitter bool
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    60 * time.Second,
		Jitter:      true,
	}
}

// RetryPolicyFromConfig 从配置构造重试策略，空值回退默认
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.Multiplier > 1 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	p.Jitter = cfg.Jitter
	return p
}

// Delay 计算第 attempt 次失败后的退避时间（attempt 从 1 开始计数）
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		// 0.5x ~ 1.0x 区间抖动
		d = d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
	}
	return d
}
