// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, "configs/config.yaml", false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := fmt.Sprintf("configs/config.%s.yaml", env)
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := expandEnv(string(content))

	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	// 匹配 ${VAR} 或 ${VAR:default}
	re := regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		submatch := re.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 原样返回以便识别未定义的变量
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "serial-novel-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "120s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.first_chapter_timeout", "10m")

	// 数据库默认值
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "serial_novel")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 100)
	v.SetDefault("cache.redis.min_idle_conns", 10)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// 生成策略默认值
	v.SetDefault("generation.retry.max_attempts", 3)
	v.SetDefault("generation.retry.base_delay", "2s")
	v.SetDefault("generation.retry.multiplier", 2.0)
	v.SetDefault("generation.retry.max_delay", "60s")
	v.SetDefault("generation.retry.jitter", true)
	v.SetDefault("generation.context_window_runes", 2000)
	v.SetDefault("generation.chapter_target_runes", 2000)
	v.SetDefault("generation.single_chapter_threshold", 4000)

	// LLM 默认值
	v.SetDefault("llm.default_provider", "openai")

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.output", "stdout")
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.exporter", "otlp")
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 100)
	v.SetDefault("security.rate_limit.burst", 200)
}
