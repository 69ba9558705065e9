package port

import (
	"context"

	"web3-talent-scout/internal/domain"
)

// Collector (侦察兵): 负责从 GitHub 抓取候选人的原始数据
type Collector interface {
	// FetchProfile 抓取用户快照，用户不存在时返回 NOT_FOUND
	FetchProfile(ctx context.Context, username string) (*domain.Profile, error)

	// FetchRepos 抓取仓库列表：按更新时间请求，本地按 stars*2 + (非fork加5) 重排，截断到 maxRepos
	FetchRepos(ctx context.Context, username string, maxRepos int) ([]*domain.Repository, error)

	// FetchRepoContent 对单个仓库做内容探测 (README / manifest / 工程信号)
	// 单个探测失败不致命，调用方拿到 nil content 继续往下走
	FetchRepoContent(ctx context.Context, repo *domain.Repository) (*domain.RepoContent, error)
}

// Detector (鉴定师): 纯函数式的 Web3 启发式判定，不做任何 I/O
type Detector interface {
	Detect(repo *domain.Repository, content *domain.RepoContent) *domain.Web3Detection
}

// Reporter (出报告的): 调 LLM 生成结构化招聘报告
// 模型挂了、返回为空、JSON 解析失败都算 GENERATION_ERROR，不自动重试
type Reporter interface {
	GenerateReport(ctx context.Context, payload *domain.AnalysisPayload) (*domain.HiringReport, error)
}

// Store (仓库管理员): 负责分析记录的持久化和查询
type Store interface {
	// Save 保存一条分析记录 (调用方按 best-effort 处理失败)
	Save(ctx context.Context, record *domain.AnalysisRecord) error

	// LatestByUsername 某个用户最近一次的分析
	LatestByUsername(ctx context.Context, username string) (*domain.AnalysisRecord, error)

	// ByID 按 id 查单条
	ByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)

	// History 最近的 N 条分析记录
	History(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error)
}

// Notifier (信使): 分析完成后把摘要推送出去 (可选，失败只记日志)
type Notifier interface {
	Notify(ctx context.Context, username string, report *domain.HiringReport) error
}
