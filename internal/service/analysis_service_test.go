package service

import (
	"context"
	"testing"
	"time"

	"web3-talent-scout/internal/adapter/aggregate"
	"web3-talent-scout/internal/adapter/web3"
	"web3-talent-scout/internal/cache"
	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"
	"web3-talent-scout/internal/port"
	"web3-talent-scout/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mock 实现 ---

type MockCollector struct {
	mock.Mock
}

var _ port.Collector = (*MockCollector)(nil)

func (m *MockCollector) FetchProfile(ctx context.Context, username string) (*domain.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockCollector) FetchRepos(ctx context.Context, username string, maxRepos int) ([]*domain.Repository, error) {
	args := m.Called(ctx, username, maxRepos)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repository), args.Error(1)
}

func (m *MockCollector) FetchRepoContent(ctx context.Context, repo *domain.Repository) (*domain.RepoContent, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoContent), args.Error(1)
}

type MockReporter struct {
	mock.Mock
	lastPayload *domain.AnalysisPayload
}

var _ port.Reporter = (*MockReporter)(nil)

func (m *MockReporter) GenerateReport(ctx context.Context, payload *domain.AnalysisPayload) (*domain.HiringReport, error) {
	m.lastPayload = payload
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HiringReport), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

var _ port.Store = (*MockStore)(nil)

func (m *MockStore) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStore) LatestByUsername(ctx context.Context, username string) (*domain.AnalysisRecord, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisRecord), args.Error(1)
}

func (m *MockStore) ByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisRecord), args.Error(1)
}

func (m *MockStore) History(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AnalysisRecord), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

var _ port.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, username string, report *domain.HiringReport) error {
	args := m.Called(ctx, username, report)
	return args.Error(0)
}

// --- 夹具 ---

func sampleReport(overall int) *domain.HiringReport {
	report := &domain.HiringReport{
		ProfileSummary: "候选人有扎实的 Solidity 基础",
		Scores: domain.ReportScores{
			Overall: overall, Web3Expertise: 78, CodeQuality: 65,
			Activity: 70, Consistency: 60, Collaboration: 55, Documentation: 50,
		},
	}
	report.Web3Assessment.IsWeb3Developer = true
	report.Web3Assessment.Stacks = []string{"Solidity"}
	report.Web3Assessment.Depth = "intermediate"
	report.Recommendation.Verdict = domain.VerdictHire
	report.Recommendation.Reasoning = "链上项目有真实产出"
	return report
}

func sampleRepos(now time.Time) []*domain.Repository {
	return []*domain.Repository{
		{
			Name: "solidity-vault", FullName: "charlie/solidity-vault",
			Language: "Solidity", Topics: []string{"solidity", "defi"},
			Stars: 20, PushedAt: now.AddDate(0, 0, -10), UpdatedAt: now.AddDate(0, 0, -10),
		},
		{
			Name: "dotfiles", FullName: "charlie/dotfiles",
			Language: "Shell", Stars: 2,
			PushedAt: now.AddDate(0, 0, -40), UpdatedAt: now.AddDate(0, 0, -40),
		},
		{
			Name: "blog", FullName: "charlie/blog",
			Language: "JavaScript", Stars: 5,
			PushedAt: now.AddDate(0, 0, -70), UpdatedAt: now.AddDate(0, 0, -70),
		},
	}
}

type serviceFixture struct {
	svc       *AnalysisService
	collector *MockCollector
	reporter  *MockReporter
	store     *MockStore
	notifier  *MockNotifier
}

func newServiceFixture(t *testing.T, maxReqs int) *serviceFixture {
	t.Helper()
	collector := new(MockCollector)
	reporter := new(MockReporter)
	store := new(MockStore)
	notifier := new(MockNotifier)

	svc := NewAnalysisService(
		collector,
		web3.NewDetector(),
		aggregate.NewBuilder(),
		reporter,
		store,
		notifier,
		cache.New[*domain.HiringReport](16, time.Hour),
		ratelimit.New(maxReqs, time.Minute),
		zap.NewNop(),
	)
	return &serviceFixture{svc: svc, collector: collector, reporter: reporter, store: store, notifier: notifier}
}

// --- 测试 ---

func TestParseProfileURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "完整 URL", input: "https://github.com/Vitalik", expected: "vitalik"},
		{name: "带尾斜杠", input: "https://github.com/alice/", expected: "alice"},
		{name: "无协议", input: "github.com/bob", expected: "bob"},
		{name: "裸用户名", input: "Charlie-99", expected: "charlie-99"},
		{name: "带多余路径段只取第一段", input: "https://github.com/alice/some-repo", expected: "alice"},
		{name: "空输入", input: "   ", wantErr: true},
		{name: "其他域名", input: "https://gitlab.com/alice", wantErr: true},
		{name: "非法字符", input: "bad name!", wantErr: true},
		{name: "连字符开头", input: "-alice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfileURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, common.ErrCodeInvalidInput, common.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAnalyze_EndToEnd(t *testing.T) {
	fx := newServiceFixture(t, 10)
	now := time.Now()
	ctx := context.Background()

	profile := &domain.Profile{Login: "charlie", PublicRepos: 3, CreatedAt: now.AddDate(-3, 0, 0)}
	repos := sampleRepos(now)

	fx.collector.On("FetchProfile", mock.Anything, "charlie").Return(profile, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).Return(repos, nil).Once()
	fx.collector.On("FetchRepoContent", mock.Anything, mock.Anything).
		Return(&domain.RepoContent{HasTests: true}, nil).Times(3)
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(72), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).Return(nil).Once()

	result, err := fx.svc.Analyze(ctx, "https://github.com/Charlie", "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, "charlie", result.Username)
	assert.Equal(t, 72, result.Report.Scores.Overall)

	// 汇总统计应该反映 1/3 的 Web3 仓库
	payload := fx.reporter.lastPayload
	require.NotNil(t, payload)
	assert.Equal(t, 3, payload.Stats.TotalRepos)
	assert.Equal(t, 1, payload.Stats.Web3RepoCount)
	assert.InDelta(t, 1.0/3.0, payload.Stats.Web3Ratio, 0.001)
	assert.Equal(t, 1, payload.Stats.TopicsBreakdown["solidity"])

	// Solidity 仓库的判定应该是 web3，其他仓库不是
	assert.True(t, payload.Repos[0].Detection.IsWeb3)
	assert.False(t, payload.Repos[1].Detection.IsWeb3)
	assert.False(t, payload.Repos[2].Detection.IsWeb3)

	// 落库和推送各发生一次
	fx.store.AssertExpectations(t)
	fx.notifier.AssertExpectations(t)
	fx.collector.AssertExpectations(t)
}

func TestAnalyze_SecondCallHitsCache(t *testing.T) {
	fx := newServiceFixture(t, 10)
	now := time.Now()
	ctx := context.Background()

	fx.collector.On("FetchProfile", mock.Anything, "charlie").
		Return(&domain.Profile{Login: "charlie"}, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).
		Return(sampleRepos(now), nil).Once()
	fx.collector.On("FetchRepoContent", mock.Anything, mock.Anything).
		Return(&domain.RepoContent{}, nil).Times(3)
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(60), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).Return(nil).Once()

	first, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	// 第二次：URL 写法不同也能命中同一份缓存，上游不再被调用
	second, err := fx.svc.Analyze(ctx, "https://github.com/Charlie", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Report, second.Report)

	fx.collector.AssertNumberOfCalls(t, "FetchProfile", 1)
	fx.collector.AssertNumberOfCalls(t, "FetchRepos", 1)
	fx.reporter.AssertNumberOfCalls(t, "GenerateReport", 1)
}

func TestAnalyze_RateLimited(t *testing.T) {
	fx := newServiceFixture(t, 1)
	now := time.Now()
	ctx := context.Background()

	fx.collector.On("FetchProfile", mock.Anything, "charlie").
		Return(&domain.Profile{Login: "charlie"}, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).
		Return(sampleRepos(now), nil).Once()
	fx.collector.On("FetchRepoContent", mock.Anything, mock.Anything).
		Return(&domain.RepoContent{}, nil).Times(3)
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(60), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).Return(nil).Once()

	_, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.NoError(t, err)

	// 同一个 clientID 超过窗口配额，即使结果已经在缓存里也要先被限流挡下
	_, err = fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.Error(t, err)
	appErr := common.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, common.ErrCodeRateLimited, appErr.Code)
	assert.False(t, appErr.ResetAt.IsZero())

	// 换一个 clientID 不受影响
	result, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, result.Cached)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	fx := newServiceFixture(t, 10)

	_, err := fx.svc.Analyze(context.Background(), "https://gitlab.com/alice", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeInvalidInput, common.CodeOf(err))
	fx.collector.AssertNotCalled(t, "FetchProfile", mock.Anything, mock.Anything)
}

func TestAnalyze_UpstreamErrorsPropagate(t *testing.T) {
	fx := newServiceFixture(t, 10)
	ctx := context.Background()

	fx.collector.On("FetchProfile", mock.Anything, "ghost").
		Return(nil, common.NewError(common.ErrCodeNotFound, "用户不存在")).Once()

	_, err := fx.svc.Analyze(ctx, "ghost", "10.0.0.1")
	require.Error(t, err)
	assert.Equal(t, common.ErrCodeNotFound, common.CodeOf(err))
	fx.reporter.AssertNotCalled(t, "GenerateReport", mock.Anything, mock.Anything)
}

func TestAnalyze_ContentFailureIsNotFatal(t *testing.T) {
	fx := newServiceFixture(t, 10)
	now := time.Now()
	ctx := context.Background()

	fx.collector.On("FetchProfile", mock.Anything, "charlie").
		Return(&domain.Profile{Login: "charlie"}, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).
		Return(sampleRepos(now), nil).Once()
	// 所有内容探测都失败，分析仍然要完成
	fx.collector.On("FetchRepoContent", mock.Anything, mock.Anything).
		Return(nil, common.NewError(common.ErrCodeUpstream, "GitHub 打喷嚏了")).Times(3)
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(60), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).Return(nil).Once()

	result, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Cached)

	for _, entry := range fx.reporter.lastPayload.Repos {
		assert.Nil(t, entry.Content)
		require.NotNil(t, entry.Detection)
	}
}

func TestAnalyze_PersistAndNotifyAreBestEffort(t *testing.T) {
	fx := newServiceFixture(t, 10)
	now := time.Now()
	ctx := context.Background()

	fx.collector.On("FetchProfile", mock.Anything, "charlie").
		Return(&domain.Profile{Login: "charlie"}, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).
		Return(sampleRepos(now), nil).Once()
	fx.collector.On("FetchRepoContent", mock.Anything, mock.Anything).
		Return(&domain.RepoContent{}, nil).Times(3)
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(60), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).
		Return(common.NewError(common.ErrCodePersistence, "数据库挂了")).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).
		Return(common.NewError(common.ErrCodeInternal, "webhook 超时")).Once()

	// 落库和推送失败都不影响响应
	result, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 60, result.Report.Scores.Overall)
}

func TestAnalyze_SkipsForkAndArchivedContent(t *testing.T) {
	fx := newServiceFixture(t, 10)
	now := time.Now()
	ctx := context.Background()

	repos := []*domain.Repository{
		{Name: "forked", FullName: "charlie/forked", Fork: true, PushedAt: now, UpdatedAt: now},
		{Name: "old", FullName: "charlie/old", Archived: true, PushedAt: now, UpdatedAt: now},
		{Name: "active", FullName: "charlie/active", PushedAt: now, UpdatedAt: now},
	}

	fx.collector.On("FetchProfile", mock.Anything, "charlie").
		Return(&domain.Profile{Login: "charlie"}, nil).Once()
	fx.collector.On("FetchRepos", mock.Anything, "charlie", DefaultMaxRepos).
		Return(repos, nil).Once()
	// 只有 active 会被做内容探测
	fx.collector.On("FetchRepoContent", mock.Anything, repos[2]).
		Return(&domain.RepoContent{HasTests: true}, nil).Once()
	fx.reporter.On("GenerateReport", mock.Anything, mock.Anything).Return(sampleReport(60), nil).Once()
	fx.store.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("Notify", mock.Anything, "charlie", mock.Anything).Return(nil).Once()

	_, err := fx.svc.Analyze(ctx, "charlie", "10.0.0.1")
	require.NoError(t, err)

	fx.collector.AssertNumberOfCalls(t, "FetchRepoContent", 1)
	payload := fx.reporter.lastPayload
	assert.Nil(t, payload.Repos[0].Content)
	assert.Nil(t, payload.Repos[1].Content)
	require.NotNil(t, payload.Repos[2].Content)
	assert.True(t, payload.Repos[2].Content.HasTests)
}
