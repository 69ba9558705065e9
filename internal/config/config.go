package config

import (
	"fmt"
	"os"

	"web3-talent-scout/internal/adapter/gemini"
	"web3-talent-scout/internal/common"

	"github.com/joho/godotenv"
)

// Config 进程级配置，启动时加载一次
type Config struct {
	AppEnv      string // development / production
	Port        string
	GitHubToken string
	GeminiKey   string
	GeminiModel string
	DatabaseDSN string // 为空则关闭落库
	FeishuHook  string // 为空则关闭推送
}

// Load 读取 .env (没有就直接用进程环境变量)，缺关键配置时 fail-fast
func Load() (*Config, error) {
	// .env 不存在不算错误，容器里都是直接注入环境变量
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel: getEnv("GEMINI_MODEL", gemini.DefaultModel),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		FeishuHook:  os.Getenv("FEISHU_WEBHOOK"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	// 没 token 的匿名 GitHub 客户端配额低到没法用，当成配置错误
	if c.GitHubToken == "" {
		return common.NewError(common.ErrCodeInvalidInput, "缺少环境变量 GITHUB_TOKEN")
	}
	if c.GeminiKey == "" {
		return common.NewError(common.ErrCodeInvalidInput, "缺少环境变量 GEMINI_API_KEY")
	}
	return nil
}

// Addr HTTP 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.Port)
}

// IsProduction 是否生产环境 (决定 zap 用哪种编码器)
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
