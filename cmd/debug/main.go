package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"web3-talent-scout/internal/adapter/aggregate"
	"web3-talent-scout/internal/adapter/gemini"
	"web3-talent-scout/internal/adapter/github"
	"web3-talent-scout/internal/adapter/web3"
	"web3-talent-scout/internal/cache"
	"web3-talent-scout/internal/domain"
	"web3-talent-scout/internal/ratelimit"
	"web3-talent-scout/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 调试入口：对单个用户跑一遍完整流水线，不起 HTTP、不碰数据库，报告直接打到 stdout
func main() {
	username := flag.String("u", "", "要分析的 GitHub 用户名或主页链接")
	flag.Parse()

	if *username == "" {
		fmt.Println("⚠️ 请指定要分析的用户，例如: -u vitalik 或 -u https://github.com/vitalik")
		return
	}

	_ = godotenv.Load()
	githubToken := os.Getenv("GITHUB_TOKEN")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		log.Fatal("❌ 缺少环境变量 GEMINI_API_KEY")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// 初始化组件 (store 和 notifier 都留空)
	collector := github.NewCollector(githubToken, logger)
	reporter, err := gemini.NewReporter(ctx, geminiKey, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatalf("❌ AI 初始化失败: %v", err)
	}
	defer reporter.Close()

	svc := service.NewAnalysisService(
		collector,
		web3.NewDetector(),
		aggregate.NewBuilder(),
		reporter,
		nil,
		nil,
		cache.New[*domain.HiringReport](8, time.Hour),
		ratelimit.New(100, time.Hour),
		logger,
	)

	fmt.Printf("🔍 调试模式：分析候选人 %s\n", *username)

	result, err := svc.Analyze(ctx, *username, "debug-cli")
	if err != nil {
		log.Fatalf("❌ 分析失败: %v", err)
	}

	out, err := json.MarshalIndent(result.Report, "", "  ")
	if err != nil {
		log.Fatalf("❌ 报告序列化失败: %v", err)
	}

	fmt.Println("\n================ [ 招聘分析报告 ] ================")
	fmt.Println(string(out))
	fmt.Println("==================================================")
	fmt.Printf("✅ 完成：overall=%d verdict=%s\n", result.Report.Scores.Overall, result.Report.Recommendation.Verdict)
}
