package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Webhook    WebhookConfig
	Feedback   FeedbackConfig
	Normalizer NormalizerConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	webhook, err := loadWebhookConfig()
	if err != nil {
		return nil, err
	}

	feedback, err := loadFeedbackConfig()
	if err != nil {
		return nil, err
	}

	normalizer, err := loadNormalizerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Webhook: webhook, Feedback: feedback, Normalizer: normalizer}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// WebhookConfig 描述 n8n webhook 以及发送节流配置。
type WebhookConfig struct {
	TextURL  string
	ImageURL string
	// Mode 为 single 或 dual。
	Mode     string
	Cooldown time.Duration
	Timeout  time.Duration
}

// Dual 表示是否启用独立的图片 webhook。
func (c WebhookConfig) Dual() bool {
	return c.Mode == "dual"
}

func loadWebhookConfig() (WebhookConfig, error) {
	textURL := strings.TrimSpace(os.Getenv("N8N_WEBHOOK_URL"))
	if textURL == "" {
		return WebhookConfig{}, fmt.Errorf("N8N_WEBHOOK_URL is required")
	}
	if err := validateURL("N8N_WEBHOOK_URL", textURL); err != nil {
		return WebhookConfig{}, err
	}

	imageURL := strings.TrimSpace(os.Getenv("N8N_IMAGE_WEBHOOK_URL"))
	if imageURL != "" {
		if err := validateURL("N8N_IMAGE_WEBHOOK_URL", imageURL); err != nil {
			return WebhookConfig{}, err
		}
	}

	mode := strings.ToLower(getEnvOrDefault("WEBHOOK_MODE", "single"))
	switch mode {
	case "single":
	case "dual":
		if imageURL == "" {
			return WebhookConfig{}, fmt.Errorf("WEBHOOK_MODE=dual requires N8N_IMAGE_WEBHOOK_URL")
		}
	default:
		return WebhookConfig{}, fmt.Errorf("invalid WEBHOOK_MODE value %q: want single or dual", mode)
	}

	cooldown, err := parseMillisEnv("REQUEST_COOLDOWN_MS", 180000)
	if err != nil {
		return WebhookConfig{}, err
	}

	timeout, err := parseMillisEnv("REQUEST_TIMEOUT_MS", 30000)
	if err != nil {
		return WebhookConfig{}, err
	}
	if timeout <= 0 {
		return WebhookConfig{}, fmt.Errorf("REQUEST_TIMEOUT_MS must be positive")
	}

	return WebhookConfig{
		TextURL:  textURL,
		ImageURL: imageURL,
		Mode:     mode,
		Cooldown: cooldown,
		Timeout:  timeout,
	}, nil
}

// FeedbackConfig 描述反馈上报地址。URL 为空时只记录日志。
type FeedbackConfig struct {
	URL    string
	APIKey string
}

func loadFeedbackConfig() (FeedbackConfig, error) {
	feedbackURL := strings.TrimSpace(os.Getenv("FEEDBACK_WEBHOOK_URL"))
	if feedbackURL != "" {
		if err := validateURL("FEEDBACK_WEBHOOK_URL", feedbackURL); err != nil {
			return FeedbackConfig{}, err
		}
	}

	return FeedbackConfig{
		URL:    feedbackURL,
		APIKey: strings.TrimSpace(os.Getenv("FEEDBACK_API_KEY")),
	}, nil
}

// NormalizerConfig 覆盖响应字段优先级与最短内容长度。
type NormalizerConfig struct {
	TextFields       []string
	ImageFields      []string
	MinContentLength int
}

func loadNormalizerConfig() (NormalizerConfig, error) {
	minLength := 0
	if override, err := parseOptionalIntEnv("MIN_CONTENT_LENGTH"); err != nil {
		return NormalizerConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return NormalizerConfig{}, fmt.Errorf("MIN_CONTENT_LENGTH must be at least 1")
		}
		minLength = *override
	}

	return NormalizerConfig{
		TextFields:       parseListEnv("TEXT_RESPONSE_FIELDS"),
		ImageFields:      parseListEnv("IMAGE_RESPONSE_FIELDS"),
		MinContentLength: minLength,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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

func parseMillisEnv(key string, defaultMillis int) (time.Duration, error) {
	override, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	millis := defaultMillis
	if override != nil {
		if *override < 0 {
			return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *override)
		}
		millis = *override
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// parseListEnv 解析逗号分隔的列表，忽略空项。
func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s value %q: want an http(s) URL", key, raw)
	}
	return nil
}
