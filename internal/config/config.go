// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// FirstChapterTimeout 创建请求同步等待第 1 章的最长时间
	FirstChapterTimeout time.Duration `yaml:"first_chapter_timeout" mapstructure:"first_chapter_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// GenerationConfig 后台生成配置
type GenerationConfig struct {
	// Retry 章节级瞬时错误重试策略
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`

	// ContextWindowRunes 章节提示词携带的前文窗口大小（rune 数）
	ContextWindowRunes int `yaml:"context_window_runes" mapstructure:"context_window_runes"`

	// ChapterTargetRunes 单章目标长度，用于换算章节数
	ChapterTargetRunes int `yaml:"chapter_target_runes" mapstructure:"chapter_target_runes"`

	// SingleChapterThreshold 不足该长度的小说只生成一章
	SingleChapterThreshold int `yaml:"single_chapter_threshold" mapstructure:"single_chapter_threshold"`
}

// RetryConfig 重试策略配置
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter      bool          `yaml:"jitter" mapstructure:"jitter"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}
