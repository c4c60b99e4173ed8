package server

import (
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig 每个连接的入站消息限流参数。PerSecond <= 0 表示不限流（默认）；
// 开启后超限消息会被丢弃
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Config 服务运行配置
type Config struct {
	Addr            string
	AllowedOrigins  []string // CORS 与 WebSocket 允许的来源，"*" 表示全部
	StaticDir       string   // 前端静态资源目录
	LogFile         string
	SendBuffer      int // 每个连接发送队列容量
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration
}

// DefaultConfig 默认配置：监听 :8080，允许本地前端 http://localhost:3000，不限流
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		AllowedOrigins:  []string{"http://localhost:3000"},
		StaticDir:       "../frontend",
		LogFile:         "app.log",
		SendBuffer:      64,
		RateLimit:       RateLimitConfig{Burst: 40},
		ShutdownTimeout: 10 * time.Second,
	}
}

// ConfigFromEnv 在默认配置基础上读取环境变量；getenv 通常为 os.Getenv
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()

	if port := getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if addr := getenv("GRIDBALL_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if origins := getenv("GRIDBALL_ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = ParseOrigins(origins)
	}
	if dir := getenv("GRIDBALL_STATIC_DIR"); dir != "" {
		cfg.StaticDir = dir
	}
	if file := getenv("GRIDBALL_LOG_FILE"); file != "" {
		cfg.LogFile = file
	}
	if v := getenv("GRIDBALL_SEND_BUFFER"); v != "" {
		cfg.SendBuffer = parsePositiveInt(v, cfg.SendBuffer)
	}
	if v := getenv("GRIDBALL_RATE_BURST"); v != "" {
		cfg.RateLimit.Burst = parsePositiveInt(v, cfg.RateLimit.Burst)
	}
	if v := getenv("GRIDBALL_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimit.PerSecond = f
		}
	}
	return cfg.Sanitize()
}

// Sanitize 将非法或缺省字段回退为默认值
func (c Config) Sanitize() Config {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.RateLimit.PerSecond < 0 {
		c.RateLimit.PerSecond = 0
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	c.AllowedOrigins = normalizeOrigins(c.AllowedOrigins)
	return c
}

// ParseOrigins 解析逗号分隔的来源列表
func ParseOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePositiveInt(value string, fallback int) int {
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return n
	}
	return fallback
}
