package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"web3-talent-scout/internal/adapter/aggregate"
	"web3-talent-scout/internal/adapter/feishu"
	"web3-talent-scout/internal/adapter/gemini"
	"web3-talent-scout/internal/adapter/github"
	"web3-talent-scout/internal/adapter/repository"
	"web3-talent-scout/internal/adapter/web3"
	"web3-talent-scout/internal/api"
	"web3-talent-scout/internal/cache"
	"web3-talent-scout/internal/config"
	"web3-talent-scout/internal/domain"
	"web3-talent-scout/internal/port"
	"web3-talent-scout/internal/ratelimit"
	"web3-talent-scout/internal/service"

	"go.uber.org/zap"
)

const (
	// 报告缓存：容量 256，1 小时内同一个用户复用同一份报告
	reportCacheSize = 256
	reportCacheTTL  = time.Hour

	// 本地限流：每个来源 IP 每小时 10 次分析
	rateLimitRequests = 10
	rateLimitWindow   = time.Hour

	shutdownTimeout = 10 * time.Second
)

func main() {
	// 1. 配置：缺关键环境变量直接退出
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 配置加载失败: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer logger.Sync()

	// 2. 出站依赖
	ctx := context.Background()

	collector := github.NewCollector(cfg.GitHubToken, logger)

	reporter, err := gemini.NewReporter(ctx, cfg.GeminiKey, cfg.GeminiModel)
	if err != nil {
		logger.Fatal("❌ AI 初始化失败", zap.Error(err))
	}
	defer reporter.Close()

	// 落库和推送都是可选的，没配就跑纯内存模式
	var store port.Store
	if cfg.DatabaseDSN != "" {
		pgStore, err := repository.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("❌ DB 初始化失败", zap.Error(err))
		}
		store = pgStore
	} else {
		logger.Warn("⚠️ 未配置 DATABASE_DSN，历史记录功能不可用")
	}

	var notifier port.Notifier
	if cfg.FeishuHook != "" {
		notifier = feishu.NewNotifier(cfg.FeishuHook, logger)
	}

	// 3. 进程级单例：报告缓存 + 限流器 (带定时清扫)
	reportCache := cache.New[*domain.HiringReport](reportCacheSize, reportCacheTTL)
	limiter := ratelimit.New(rateLimitRequests, rateLimitWindow)
	limiter.StartSweeper()
	defer limiter.StopSweeper()

	svc := service.NewAnalysisService(
		collector,
		web3.NewDetector(),
		aggregate.NewBuilder(),
		reporter,
		store,
		notifier,
		reportCache,
		limiter,
		logger,
	)

	// 4. HTTP server + 优雅退出
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.NewRouter(api.NewHandler(svc, logger)),
	}

	go func() {
		logger.Info("🚀 服务已启动", zap.String("addr", cfg.Addr()), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("💥 HTTP server 异常退出", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("👋 收到停止信号，正在退出...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("💥 优雅退出失败", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
