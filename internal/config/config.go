package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Application ApplicationConfig
	AI          AIConfig
	Notify      NotifyConfig
	Telemetry   TelemetryConfig
	Log         LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	application, err := loadApplicationConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:      server,
		Store:       store,
		Application: application,
		AI:          ai,
		Notify:      notify,
		Telemetry:   telemetry,
		Log:         loadLogConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// PublicBaseURL is how agents and browsers reach this process; it prefixes
	// the routing information handed out at session creation.
	PublicBaseURL string
	MCPBasePath   string
	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":8000" 或 "127.0.0.1:8000"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	basePath := getEnvOrDefault("MCP_BASE_PATH", "/mcp")
	if !strings.HasPrefix(basePath, "/") {
		return ServerConfig{}, fmt.Errorf("invalid MCP_BASE_PATH value %q: must start with /", basePath)
	}
	basePath = strings.TrimRight(basePath, "/")
	if basePath == "" {
		return ServerConfig{}, fmt.Errorf("invalid MCP_BASE_PATH value: must not be the root path")
	}

	publicURL := strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost"+addrPort(addr)), "/")

	return ServerConfig{
		Addr:               addr,
		PublicBaseURL:      publicURL,
		MCPBasePath:        basePath,
		CORSAllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}, nil
}

func addrPort(addr string) string {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return ""
	}
	return addr[idx:]
}

// StoreConfig selects and configures the state store backend.
type StoreConfig struct {
	Backend        string
	RedisURL       string
	ConnectTimeout time.Duration
}

const (
	StoreBackendAuto   = "auto"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreBackendAuto))
	switch backend {
	case StoreBackendAuto, StoreBackendRedis, StoreBackendMemory:
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_BACKEND value %q: want auto, redis or memory", backend)
	}

	timeout, err := parseDurationEnv("STORE_CONNECT_TIMEOUT", 2*time.Second)
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		Backend:        backend,
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		ConnectTimeout: timeout,
	}, nil
}

// ApplicationConfig 描述会话与申请记录的保留策略。
type ApplicationConfig struct {
	SessionTTL          time.Duration
	SubmissionRetention time.Duration
	SeedDemoJobs        bool
}

func loadApplicationConfig() (ApplicationConfig, error) {
	sessionTTL, err := parseDurationEnv("SESSION_TTL", time.Hour)
	if err != nil {
		return ApplicationConfig{}, err
	}
	if sessionTTL <= 0 {
		return ApplicationConfig{}, fmt.Errorf("invalid SESSION_TTL value %s: must be positive", sessionTTL)
	}

	retention, err := parseDurationEnv("SUBMISSION_RETENTION", 7*24*time.Hour)
	if err != nil {
		return ApplicationConfig{}, err
	}
	if retention <= 0 {
		return ApplicationConfig{}, fmt.Errorf("invalid SUBMISSION_RETENTION value %s: must be positive", retention)
	}

	seed, err := parseBoolEnv("SEED_DEMO_JOBS", true)
	if err != nil {
		return ApplicationConfig{}, err
	}

	return ApplicationConfig{
		SessionTTL:          sessionTTL,
		SubmissionRetention: retention,
		SeedDemoJobs:        seed,
	}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey          string
	AccessKey       string
	SecretKey       string
	Model           string
	BaseURL         string
	Region          string
	Temperature     *float64
	TopP            *float64
	MaxTokens       *int
	HistoryLimit    int
	DefaultLanguage string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			historyLimit = 0
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		APIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:           strings.TrimSpace(os.Getenv("Model")),
		BaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:     temperature,
		TopP:            topP,
		MaxTokens:       maxTokens,
		HistoryLimit:    historyLimit,
		DefaultLanguage: strings.ToLower(getEnvOrDefault("DEFAULT_LANGUAGE", "en")),
	}, nil
}

// NotifyConfig 描述提交后通知下游系统的 NATS 配置，URL 为空时关闭。
type NotifyConfig struct {
	NATSURL     string
	Subject     string
	ConnTimeout time.Duration
}

// Enabled reports whether a NATS server was configured.
func (c NotifyConfig) Enabled() bool {
	return c.NATSURL != ""
}

func loadNotifyConfig() (NotifyConfig, error) {
	timeout, err := parseDurationEnv("NATS_CONN_TIMEOUT", 5*time.Second)
	if err != nil {
		return NotifyConfig{}, err
	}
	return NotifyConfig{
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		Subject:     getEnvOrDefault("NATS_SUBJECT", "applications.submitted"),
		ConnTimeout: timeout,
	}, nil
}

// TelemetryConfig 描述链路追踪导出配置。
type TelemetryConfig struct {
	CollectorEndpoint string
	ServiceName       string
	ServiceVersion    string
	// SampleRatio 为根 span 采样比例，取值 [0, 1]。
	SampleRatio float64
}

// Enabled reports whether an OTLP collector endpoint was configured.
func (c TelemetryConfig) Enabled() bool {
	return c.CollectorEndpoint != ""
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	cfg := TelemetryConfig{
		CollectorEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:       getEnvOrDefault("OTEL_SERVICE_NAME", "job-voice-backend"),
		ServiceVersion:    getEnvOrDefault("OTEL_SERVICE_VERSION", "1.0.0"),
		SampleRatio:       1,
	}

	ratio, err := parseOptionalFloatEnv("OTEL_TRACES_SAMPLER_ARG")
	if err != nil {
		return TelemetryConfig{}, err
	}
	if ratio != nil {
		if *ratio < 0 || *ratio > 1 {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG value %v: must be between 0 and 1", *ratio)
		}
		cfg.SampleRatio = *ratio
	}
	return cfg, nil
}

// LogConfig 描述日志级别与输出格式。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	// 纯数字按秒处理，例如 SESSION_TTL=3600。
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
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
