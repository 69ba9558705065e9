package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"web3-talent-scout/internal/adapter/aggregate"
	"web3-talent-scout/internal/cache"
	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"
	"web3-talent-scout/internal/port"
	"web3-talent-scout/internal/ratelimit"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRepos 进入分析的仓库数上限
	DefaultMaxRepos = 30
	// DefaultMaxContentRepos 做内容探测的仓库数上限，控制外部调用量
	DefaultMaxContentRepos = 8
)

// GitHub 用户名：字母数字开头，中间允许连字符，最长 39
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,38})$`)

// AnalysisResult 是一次分析请求的完整结论
type AnalysisResult struct {
	Report        *domain.HiringReport `json:"report"`
	Cached        bool                 `json:"cached"`
	Username      string               `json:"username"`
	RateRemaining int                  `json:"-"`
	RateResetAt   time.Time            `json:"-"`
}

// AnalysisService 串起整条流水线：
// 限流 -> 缓存 -> 抓取 -> 启发式判定 -> 汇总 -> LLM 报告 -> 缓存/落库/推送
// 每个请求内部步骤严格顺序执行；同一用户的并发请求可能重复做上游工作，
// 这里刻意不做 in-flight 去重，宁可多花一次上游调用也不引入协调状态
type AnalysisService struct {
	collector       port.Collector
	detector        port.Detector
	builder         *aggregate.Builder
	reporter        port.Reporter
	store           port.Store    // nil 表示不落库 (debug 模式)
	notifier        port.Notifier // nil 表示不推送
	reportCache     *cache.Cache[*domain.HiringReport]
	limiter         *ratelimit.Limiter
	logger          *zap.Logger
	maxRepos        int
	maxContentRepos int
}

// NewAnalysisService 创建分析服务
// cache 和 limiter 是进程级单例，由 main 构造后注入，方便测试替换
func NewAnalysisService(
	collector port.Collector,
	detector port.Detector,
	builder *aggregate.Builder,
	reporter port.Reporter,
	store port.Store,
	notifier port.Notifier,
	reportCache *cache.Cache[*domain.HiringReport],
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *AnalysisService {
	return &AnalysisService{
		collector:       collector,
		detector:        detector,
		builder:         builder,
		reporter:        reporter,
		store:           store,
		notifier:        notifier,
		reportCache:     reportCache,
		limiter:         limiter,
		logger:          logger,
		maxRepos:        DefaultMaxRepos,
		maxContentRepos: DefaultMaxContentRepos,
	}
}

// Analyze 执行一次完整分析
func (s *AnalysisService) Analyze(ctx context.Context, profileURL, clientID string) (*AnalysisResult, error) {
	username, err := ParseProfileURL(profileURL)
	if err != nil {
		return nil, err
	}

	// 1. 本地限流 (clientID 归一化后做 key)
	rate := s.limiter.Check(strings.ToLower(clientID))
	if !rate.Allowed {
		return nil, common.NewRateLimited("请求太频繁了，稍后再试", rate.ResetAt)
	}

	// 2. 缓存命中直接返回
	if report, ok := s.reportCache.Get(username); ok {
		s.logger.Info("✅ 缓存命中", zap.String("username", username))
		return &AnalysisResult{
			Report:        report,
			Cached:        true,
			Username:      username,
			RateRemaining: rate.Remaining,
			RateResetAt:   rate.ResetAt,
		}, nil
	}

	s.logger.Info("🚀 开始分析候选人", zap.String("username", username))

	// 3. 抓取
	profile, err := s.collector.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	repos, err := s.collector.FetchRepos(ctx, username, s.maxRepos)
	if err != nil {
		return nil, err
	}
	s.logger.Info("📥 仓库列表抓取完成", zap.String("username", username), zap.Int("repos", len(repos)))

	// 4. 内容探测：只做原创、未归档的前 N 个；单仓失败不中断
	entries := s.collectEntries(ctx, repos)

	// 5. 汇总 + LLM 报告
	payload := s.builder.Build(profile, entries)
	s.logger.Info("🧠 payload 构建完成",
		zap.String("username", username),
		zap.Int("web3Repos", payload.Stats.Web3RepoCount),
		zap.Float64("web3Ratio", payload.Stats.Web3Ratio))

	report, err := s.reporter.GenerateReport(ctx, payload)
	if err != nil {
		return nil, err
	}

	// 6. 写缓存，然后 best-effort 落库和推送
	s.reportCache.Set(username, report)
	s.persist(ctx, username, profileURL, report, payload)
	s.notify(ctx, username, report)

	s.logger.Info("🎉 分析完成",
		zap.String("username", username),
		zap.Int("overall", report.Scores.Overall),
		zap.String("verdict", report.Recommendation.Verdict))

	return &AnalysisResult{
		Report:        report,
		Cached:        false,
		Username:      username,
		RateRemaining: rate.Remaining,
		RateResetAt:   rate.ResetAt,
	}, nil
}

func (s *AnalysisService) collectEntries(ctx context.Context, repos []*domain.Repository) []domain.RepoEntry {
	entries := make([]domain.RepoEntry, 0, len(repos))
	contentFetched := 0

	for _, repo := range repos {
		var content *domain.RepoContent

		if contentFetched < s.maxContentRepos && !repo.Fork && !repo.Archived {
			fetched, err := s.collector.FetchRepoContent(ctx, repo)
			if err != nil {
				// 单个仓库内容抓挂了就带着 nil content 继续走，绝不中断整个分析
				s.logger.Warn("⚠️ 仓库内容探测失败，跳过内容信号",
					zap.String("repo", repo.FullName),
					zap.Error(err))
			} else {
				content = fetched
			}
			contentFetched++
		}

		entries = append(entries, domain.RepoEntry{
			Repo:      *repo,
			Content:   content,
			Detection: s.detector.Detect(repo, content),
		})
	}

	return entries
}

// persist 落库失败只记日志，不影响给调用方的响应
func (s *AnalysisService) persist(ctx context.Context, username, profileURL string, report *domain.HiringReport, payload *domain.AnalysisPayload) {
	if s.store == nil {
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("⚠️ 报告序列化失败，跳过落库", zap.Error(err))
		return
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("⚠️ payload 序列化失败，跳过落库", zap.Error(err))
		return
	}

	record := &domain.AnalysisRecord{
		ID:         uuid.NewString(),
		Username:   username,
		ProfileURL: profileURL,
		Report:     string(reportJSON),
		RawPayload: string(payloadJSON),
		CreatedAt:  time.Now(),
	}
	if err := s.store.Save(ctx, record); err != nil {
		s.logger.Warn("⚠️ 分析记录落库失败", zap.String("username", username), zap.Error(err))
	}
}

// notify 推送失败同样只记日志
func (s *AnalysisService) notify(ctx context.Context, username string, report *domain.HiringReport) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, username, report); err != nil {
		s.logger.Warn("⚠️ 推送分析摘要失败", zap.String("username", username), zap.Error(err))
	}
}

// Latest 某个用户最近一次已落库的分析
func (s *AnalysisService) Latest(ctx context.Context, username string) (*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeNotFound, "未配置持久化")
	}
	if !usernamePattern.MatchString(username) {
		return nil, common.NewError(common.ErrCodeInvalidInput, "用户名格式不对")
	}
	return s.store.LatestByUsername(ctx, username)
}

// ByID 按 id 查已落库的分析
func (s *AnalysisService) ByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeNotFound, "未配置持久化")
	}
	return s.store.ByID(ctx, id)
}

// History 最近的分析记录
func (s *AnalysisService) History(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeNotFound, "未配置持久化")
	}
	return s.store.History(ctx, limit)
}

// ParseProfileURL 把完整主页 URL 或裸用户名解析成归一化 (小写) 的登录名
func ParseProfileURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", common.NewError(common.ErrCodeInvalidInput, "profileUrl 不能为空")
	}

	candidate := trimmed
	if strings.Contains(trimmed, "/") || strings.Contains(trimmed, ":") {
		normalized := trimmed
		if !strings.Contains(normalized, "://") {
			normalized = "https://" + normalized
		}
		u, err := url.Parse(normalized)
		if err != nil {
			return "", common.WrapError(common.ErrCodeInvalidInput, "无法解析 profileUrl", err)
		}
		if !strings.EqualFold(u.Host, "github.com") && !strings.EqualFold(u.Host, "www.github.com") {
			return "", common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("只支持 github.com 的主页链接，收到 %q", u.Host))
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			return "", common.NewError(common.ErrCodeInvalidInput, "链接里没有用户名")
		}
		candidate = parts[0]
	}

	if !usernamePattern.MatchString(candidate) {
		return "", common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("用户名格式不对: %q", candidate))
	}

	// 缓存和落库都按小写归一化的用户名做 key
	return strings.ToLower(candidate), nil
}
