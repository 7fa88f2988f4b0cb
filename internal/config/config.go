package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/legalease/backend/internal/llm/gemini"
)

const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"

	defaultConfigPath = "legalease.toml"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig    `toml:"server"`
	AI        AIConfig        `toml:"ai"`
	Store     StoreConfig     `toml:"store"`
	Render    RenderConfig    `toml:"render"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string   `toml:"provider"`
	APIKey         string   `toml:"ark_api_key"`
	AccessKey      string   `toml:"ark_access_key"`
	SecretKey      string   `toml:"ark_secret_key"`
	Model          string   `toml:"model"`
	BaseURL        string   `toml:"ark_base_url"`
	Region         string   `toml:"ark_region"`
	GeminiAPIKey   string   `toml:"gemini_api_key"`
	GeminiModel    string   `toml:"gemini_model"`
	Temperature    *float64 `toml:"temperature"`
	TopP           *float64 `toml:"top_p"`
	MaxTokens      *int     `toml:"max_tokens"`
	StreamResponse bool     `toml:"stream"`
	HistoryLimit   int      `toml:"history_limit"`
}

// StoreConfig 选择会话与确认状态的存储后端。
type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// RenderConfig 控制回复渲染缓存与白名单策略。
type RenderConfig struct {
	CacheSize     int  `toml:"cache_size"`
	EnforcePolicy bool `toml:"enforce_policy"`
}

// RateLimitConfig 限制单个客户端的请求速率。
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":3000"},
		AI: AIConfig{
			BaseURL:        "https://ark.cn-beijing.volces.com/api/v3",
			Region:         "cn-beijing",
			GeminiModel:    "gemini-1.5-flash",
			StreamResponse: true,
			HistoryLimit:   6,
		},
		Store:     StoreConfig{Driver: "memory"},
		Render:    RenderConfig{CacheSize: 512, EnforcePolicy: true},
		RateLimit: RateLimitConfig{RPS: 2, Burst: 5},
	}
}

// Load 读取可选的 TOML 配置文件，再用环境变量覆盖。
func Load() (*Config, error) {
	cfg := Default()

	path := getEnvOrDefault("LEGALEASE_CONFIG", defaultConfigPath)
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := applyServerEnv(&cfg.Server); err != nil {
		return nil, err
	}
	if err := applyAIEnv(&cfg.AI); err != nil {
		return nil, err
	}
	applyStoreEnv(&cfg.Store)
	if err := applyRenderEnv(&cfg.Render); err != nil {
		return nil, err
	}
	if err := applyRateLimitEnv(&cfg.RateLimit); err != nil {
		return nil, err
	}

	cfg.AI.Provider = resolveProvider(cfg.AI)
	if cfg.AI.HistoryLimit < 1 {
		cfg.AI.HistoryLimit = 1
	}
	return &cfg, nil
}

// loadFile decodes path over cfg. A missing file is not an error.
func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	return nil
}

// applyServerEnv 解析服务器监听地址。
func applyServerEnv(server *ServerConfig) error {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		server.Addr = port
		return nil
	}

	if strings.Contains(port, " ") {
		return fmt.Errorf("invalid PORT value: %q", port)
	}

	server.Addr = ":" + port
	return nil
}

func applyAIEnv(ai *AIConfig) error {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return err
	}
	if temperature != nil {
		ai.Temperature = temperature
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return err
	}
	if topP != nil {
		ai.TopP = topP
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return err
	}
	if maxTokens != nil {
		ai.MaxTokens = maxTokens
	}

	stream, err := parseBoolEnv("AI_STREAM", ai.StreamResponse)
	if err != nil {
		return err
	}
	ai.StreamResponse = stream

	history, err := parseOptionalIntEnv("HISTORY_LIMIT")
	if err != nil {
		return err
	}
	if history != nil {
		ai.HistoryLimit = *history
	}

	ai.Provider = getEnvOrDefault("AI_PROVIDER", ai.Provider)
	ai.APIKey = getEnvOrDefault("ARK_API_KEY", ai.APIKey)
	ai.AccessKey = getEnvOrDefault("ARK_ACCESS_KEY", ai.AccessKey)
	ai.SecretKey = getEnvOrDefault("ARK_SECRET_KEY", ai.SecretKey)
	ai.Model = getEnvOrDefault("Model", ai.Model)
	ai.BaseURL = getEnvOrDefault("ARK_BASE_URL", ai.BaseURL)
	ai.Region = getEnvOrDefault("ARK_REGION", ai.Region)
	ai.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", ai.GeminiAPIKey)
	ai.GeminiModel = getEnvOrDefault("GEMINI_MODEL", ai.GeminiModel)
	return nil
}

func applyStoreEnv(store *StoreConfig) {
	store.Driver = getEnvOrDefault("STORE_DRIVER", store.Driver)
	store.DSN = getEnvOrDefault("STORE_DSN", store.DSN)
}

func applyRenderEnv(render *RenderConfig) error {
	size, err := parseOptionalIntEnv("RENDER_CACHE_SIZE")
	if err != nil {
		return err
	}
	if size != nil {
		render.CacheSize = *size
	}

	enforce, err := parseBoolEnv("RENDER_ENFORCE_POLICY", render.EnforcePolicy)
	if err != nil {
		return err
	}
	render.EnforcePolicy = enforce
	return nil
}

func applyRateLimitEnv(limit *RateLimitConfig) error {
	rps, err := parseOptionalFloatEnv("RATE_LIMIT_RPS")
	if err != nil {
		return err
	}
	if rps != nil {
		limit.RPS = *rps
	}

	burst, err := parseOptionalIntEnv("RATE_LIMIT_BURST")
	if err != nil {
		return err
	}
	if burst != nil {
		limit.Burst = *burst
	}
	return nil
}

// resolveProvider picks Gemini when only a Gemini key is configured.
func resolveProvider(ai AIConfig) string {
	provider := strings.ToLower(strings.TrimSpace(ai.Provider))
	if provider != "" {
		return provider
	}
	if ai.GeminiAPIKey != "" && ai.APIKey == "" && ai.AccessKey == "" {
		return ProviderGemini
	}
	return ProviderArk
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s credentials missing: provide GEMINI_API_KEY, or Model with ARK_API_KEY or an AK/SK pair", c.Provider)
	}

	temperature := toFloat32(c.Temperature)
	topP := toFloat32(c.TopP)

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case ProviderGemini:
		return gemini.NewChatModel(ctx, gemini.Config{
			APIKey:      c.GeminiAPIKey,
			Model:       c.GeminiModel,
			Temperature: temperature,
			TopP:        topP,
		})
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			TopP:        topP,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", c.Provider)
	}
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
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
