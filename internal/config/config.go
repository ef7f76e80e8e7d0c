package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// minLimit 与 compose.MinLimit 保持一致，太小的上限无法容纳分段标记。
const minLimit = 16

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	ATProto ATProtoConfig
	Bridge  BridgeConfig
	Blog    BlogConfig
	Session SessionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	atproto, err := loadATProtoConfig()
	if err != nil {
		return nil, err
	}

	bridge, err := loadBridgeConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	blog := BlogConfig{
		Name: getEnvOrDefault("BLOG_NAME", "Bluesky Blog"),
		URL:  getEnvOrDefault("BLOG_URL", "https://bsky.social"),
	}

	return &Config{Server: server, ATProto: atproto, Bridge: bridge, Blog: blog, Session: session}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3001"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3001" 或 "127.0.0.1:3001"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ATProtoConfig 描述远端 PDS 连接配置。
type ATProtoConfig struct {
	Service string
	Timeout time.Duration
}

func loadATProtoConfig() (ATProtoConfig, error) {
	timeout, err := parseOptionalIntEnv("ATPROTO_TIMEOUT")
	if err != nil {
		return ATProtoConfig{}, err
	}
	timeoutSeconds := 30 // 默认30秒
	if timeout != nil {
		if *timeout <= 0 {
			return ATProtoConfig{}, fmt.Errorf("invalid ATPROTO_TIMEOUT value %d: must be positive", *timeout)
		}
		timeoutSeconds = *timeout
	}

	service := strings.TrimRight(getEnvOrDefault("ATPROTO_SERVICE", "https://bsky.social"), "/")
	if !strings.HasPrefix(service, "http://") && !strings.HasPrefix(service, "https://") {
		return ATProtoConfig{}, fmt.Errorf("invalid ATPROTO_SERVICE value %q: must be an http(s) URL", service)
	}

	return ATProtoConfig{
		Service: service,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// BridgeConfig 描述拆分与线程发布规则。
type BridgeConfig struct {
	ThreadLimit   int
	RecordLimit   int
	LongFormLimit int
	ThreadPause   time.Duration
	AutoThread    bool
}

func loadBridgeConfig() (BridgeConfig, error) {
	threadLimit, err := parseIntEnvOrDefault("BRIDGE_THREAD_LIMIT", 280)
	if err != nil {
		return BridgeConfig{}, err
	}
	recordLimit, err := parseIntEnvOrDefault("BRIDGE_RECORD_LIMIT", 300)
	if err != nil {
		return BridgeConfig{}, err
	}
	longFormLimit, err := parseIntEnvOrDefault("BRIDGE_LONGFORM_LIMIT", 100000)
	if err != nil {
		return BridgeConfig{}, err
	}
	pauseMs, err := parseIntEnvOrDefault("BRIDGE_THREAD_PAUSE_MS", 500)
	if err != nil {
		return BridgeConfig{}, err
	}
	autoThread, err := parseBoolEnv("BRIDGE_AUTO_THREAD", true)
	if err != nil {
		return BridgeConfig{}, err
	}

	cfg := BridgeConfig{
		ThreadLimit:   threadLimit,
		RecordLimit:   recordLimit,
		LongFormLimit: longFormLimit,
		ThreadPause:   time.Duration(pauseMs) * time.Millisecond,
		AutoThread:    autoThread,
	}
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

// Validate 检查上限之间的约束。
func (c BridgeConfig) Validate() error {
	for name, v := range map[string]int{
		"BRIDGE_THREAD_LIMIT":   c.ThreadLimit,
		"BRIDGE_RECORD_LIMIT":   c.RecordLimit,
		"BRIDGE_LONGFORM_LIMIT": c.LongFormLimit,
	} {
		if v < minLimit {
			return fmt.Errorf("invalid %s value %d: must be at least %d", name, v, minLimit)
		}
	}
	if c.ThreadLimit > c.RecordLimit {
		return fmt.Errorf("BRIDGE_THREAD_LIMIT (%d) must not exceed BRIDGE_RECORD_LIMIT (%d)", c.ThreadLimit, c.RecordLimit)
	}
	if c.ThreadPause < 0 {
		return fmt.Errorf("invalid BRIDGE_THREAD_PAUSE_MS: must not be negative")
	}
	return nil
}

// BlogConfig 是 getUsersBlogs 返回的博客描述。
type BlogConfig struct {
	Name string
	URL  string
}

// SessionConfig 描述会话缓存配置。
type SessionConfig struct {
	TTL      time.Duration
	RedisURL string
}

// Enabled 表示是否缓存会话。
func (c SessionConfig) Enabled() bool {
	return c.TTL > 0
}

func loadSessionConfig() (SessionConfig, error) {
	ttl, err := parseIntEnvOrDefault("SESSION_CACHE_TTL", 5400)
	if err != nil {
		return SessionConfig{}, err
	}
	if ttl < 0 {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_CACHE_TTL value %d: must not be negative", ttl)
	}
	return SessionConfig{
		TTL:      time.Duration(ttl) * time.Second,
		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnvOrDefault(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
