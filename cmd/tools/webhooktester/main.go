package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/dr-gini/backend/internal/config"
	"github.com/zhouzirui/dr-gini/backend/internal/export"
	"github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	"github.com/zhouzirui/dr-gini/backend/internal/normalizer"
	"github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	message := flag.String("message", "", "发送给 webhook 的问题")
	textURL := flag.String("url", "", "文本 webhook 地址，默认读取 N8N_WEBHOOK_URL")
	imageURL := flag.String("image-url", "", "图片 webhook 地址，设置后启用 dual 模式")
	format := flag.String("format", "txt", "输出格式: txt 或 csv")
	timeout := flag.Duration("timeout", 0, "请求超时时间，默认使用 REQUEST_TIMEOUT_MS")

	flag.Parse()

	if strings.TrimSpace(*message) == "" {
		flag.Usage()
		log.Fatal("请通过 -message 提供问题")
	}

	outFormat, err := export.ParseFormat(*format)
	if err != nil || outFormat == export.FormatDoc {
		log.Fatalf("不支持的输出格式: %s", *format)
	}

	webhookCfg := resolveWebhookConfig(*textURL, *imageURL, *timeout)

	chatSvc := chat.NewService()
	deps := coordinator.Deps{
		Transcript: chatSvc,
		Normalizer: normalizer.New(normalizer.DefaultOptions()),
		Text:       webhook.NewClient(webhookCfg.TextURL, webhookCfg.Timeout),
	}
	mode := coordinator.ModeSingle
	if webhookCfg.ImageURL != "" {
		mode = coordinator.ModeDual
		deps.Image = webhook.NewClient(webhookCfg.ImageURL, webhookCfg.Timeout)
	}

	ctx := context.Background()
	session, err := chatSvc.CreateSession(ctx, assistant.DefaultID)
	if err != nil {
		log.Fatalf("创建会话失败: %v", err)
	}

	c := coordinator.New(session.ID, deps, coordinator.Options{Mode: mode, Timeout: webhookCfg.Timeout})

	log.Printf("开始测试 webhook: mode=%s url=%s", mode, webhookCfg.TextURL)
	start := time.Now()
	if err := c.Send(ctx, *message); err != nil {
		log.Printf("[WARN] webhook 调用失败: %v", err)
	}
	log.Printf("webhook 调用结束: 耗时=%s", time.Since(start).Round(time.Millisecond))

	messages, err := chatSvc.LoadTranscript(ctx, session.ID)
	if err != nil {
		log.Fatalf("读取会话失败: %v", err)
	}

	file, err := export.Render(outFormat, "Dr. Gini", session, messages, time.Now())
	if err != nil {
		log.Fatalf("导出失败: %v", err)
	}
	fmt.Fprint(os.Stdout, string(file.Body))
}

// resolveWebhookConfig 命令行参数优先，否则回退到环境变量配置
func resolveWebhookConfig(textURL, imageURL string, timeout time.Duration) config.WebhookConfig {
	if textURL == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("配置加载失败: %v", err)
		}
		out := cfg.Webhook
		if imageURL != "" {
			out.ImageURL = imageURL
		} else if !out.Dual() {
			out.ImageURL = ""
		}
		if timeout > 0 {
			out.Timeout = timeout
		}
		return out
	}

	if timeout <= 0 {
		timeout = coordinator.DefaultTimeout
	}
	return config.WebhookConfig{TextURL: textURL, ImageURL: imageURL, Timeout: timeout}
}
