package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"web3-talent-scout/internal/cache"
	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// DefaultMaxRepos 仓库列表截断上限
	DefaultMaxRepos = 30
	// 分页抓取的页数上限，防止超大账号打爆配额
	maxRepoPages = 3
	// 短时突发内的重复请求走这层缓存，减少上游调用
	burstCacheTTL  = 10 * time.Minute
	burstCacheSize = 512
)

// README 的常规文件名，按顺序探测，第一个命中即停
var readmeCandidates = []string{
	"README.md",
	"README.MD",
	"readme.md",
	"Readme.md",
	"README",
	"README.rst",
}

var testPaths = []string{"test", "tests", "__tests__", "spec"}

var ciPaths = []string{
	".github/workflows",
	".circleci",
	".travis.yml",
	".gitlab-ci.yml",
	"Jenkinsfile",
}

var lintPaths = []string{
	".eslintrc",
	".eslintrc.js",
	".eslintrc.json",
	".eslintrc.cjs",
	".prettierrc",
	"prettier.config.js",
}

// 合约源码目录，链上代码的弱信号
var contractsPaths = []string{"contracts", "src/contracts"}

// manifest 依赖名 -> 框架名
var frameworkDeps = map[string]string{
	"hardhat":                  "Hardhat",
	"truffle":                  "Truffle",
	"ethers":                   "Ethers.js",
	"web3":                     "Web3.js",
	"wagmi":                    "wagmi",
	"viem":                     "viem",
	"@openzeppelin/contracts":  "OpenZeppelin",
	"@solana/web3.js":          "Solana Web3.js",
	"@project-serum/anchor":    "Anchor",
	"@coral-xyz/anchor":        "Anchor",
	"ganache":                  "Ganache",
	"@nomicfoundation/hardhat-toolbox": "Hardhat",
}

// 框架配置文件名 -> 框架名
var frameworkFiles = map[string]string{
	"hardhat.config.js":  "Hardhat",
	"hardhat.config.ts":  "Hardhat",
	"truffle-config.js":  "Truffle",
	"foundry.toml":       "Foundry",
	"Anchor.toml":        "Anchor",
	"brownie-config.yaml": "Brownie",
}

// Collector 实现了 port.Collector 接口
type Collector struct {
	client *github.Client
	logger *zap.Logger
	burst  *cache.Cache[any] // 10 分钟的突发去重层
}

// NewCollector 初始化 GitHub 客户端
// token: Personal Access Token (空字符串就是匿名访问，限制 60次/小时)
func NewCollector(token string, logger *zap.Logger) *Collector {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	return &Collector{
		client: client,
		logger: logger,
		burst:  cache.New[any](burstCacheSize, burstCacheTTL),
	}
}

// FetchProfile 抓取用户快照
func (c *Collector) FetchProfile(ctx context.Context, username string) (*domain.Profile, error) {
	cacheKey := "profile:" + strings.ToLower(username)
	if cached, ok := c.burst.Get(cacheKey); ok {
		return cached.(*domain.Profile), nil
	}

	var user *github.User
	err := c.doWithRetry(ctx, func() error {
		var resp *github.Response
		var apiErr error
		user, resp, apiErr = c.client.Users.Get(ctx, username)
		return c.mapAPIError(resp, apiErr, "获取用户 "+username)
	})
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		Bio:         user.GetBio(),
		Location:    user.GetLocation(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		PublicRepos: user.GetPublicRepos(),
		CreatedAt:   user.GetCreatedAt().Time,
		UpdatedAt:   user.GetUpdatedAt().Time,
	}

	c.burst.Set(cacheKey, profile)
	return profile, nil
}

// FetchRepos 抓取仓库列表
// 按更新时间向上游请求，本地再按 stars*2 + (非fork加5) 重排：
// 原创且有 star 的作品排前面，fork 靠后
func (c *Collector) FetchRepos(ctx context.Context, username string, maxRepos int) ([]*domain.Repository, error) {
	if maxRepos <= 0 {
		maxRepos = DefaultMaxRepos
	}

	cacheKey := fmt.Sprintf("repos:%s:%d", strings.ToLower(username), maxRepos)
	if cached, ok := c.burst.Get(cacheKey); ok {
		return cached.([]*domain.Repository), nil
	}

	opts := &github.RepositoryListOptions{
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var items []*github.Repository
	for page := 0; page < maxRepoPages; page++ {
		var pageItems []*github.Repository
		var nextPage int
		err := c.doWithRetry(ctx, func() error {
			var resp *github.Response
			var apiErr error
			pageItems, resp, apiErr = c.client.Repositories.List(ctx, username, opts)
			if apiErr == nil {
				nextPage = resp.NextPage
			}
			return c.mapAPIError(resp, apiErr, "获取仓库列表 "+username)
		})
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		if nextPage == 0 {
			break
		}
		opts.Page = nextPage
	}

	repos := make([]*domain.Repository, 0, len(items))
	for _, item := range items {
		repos = append(repos, convertRepo(item))
	}

	// 综合分 = stars*2 + (非 fork 加 5)
	sort.SliceStable(repos, func(i, j int) bool {
		return repoScore(repos[i]) > repoScore(repos[j])
	})
	if len(repos) > maxRepos {
		repos = repos[:maxRepos]
	}

	// 截断之后再补每个仓库的语言字节数，控制调用量
	// 子调用失败不致命：留空 map，记条警告继续走
	for _, repo := range repos {
		langs, err := c.fetchLanguages(ctx, repo.FullName)
		if err != nil {
			c.logger.Warn("⚠️ 获取仓库语言失败，用空 map 继续",
				zap.String("repo", repo.FullName),
				zap.Error(err))
			repo.Languages = map[string]int{}
			continue
		}
		repo.Languages = langs
	}

	c.burst.Set(cacheKey, repos)
	return repos, nil
}

func repoScore(r *domain.Repository) int {
	score := r.Stars * 2
	if !r.Fork {
		score += 5
	}
	return score
}

func (c *Collector) fetchLanguages(ctx context.Context, fullName string) (map[string]int, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}
	langs, resp, apiErr := c.client.Repositories.ListLanguages(ctx, owner, name)
	if mapped := c.mapAPIError(resp, apiErr, "获取语言 "+fullName); mapped != nil {
		return nil, mapped
	}
	return langs, nil
}

// FetchRepoContent 对单个仓库做内容探测
// 每项探测互相独立，单项的 404/出错都按 "不存在" 处理，绝不中断整个分析
func (c *Collector) FetchRepoContent(ctx context.Context, repo *domain.Repository) (*domain.RepoContent, error) {
	cacheKey := "content:" + strings.ToLower(repo.FullName)
	if cached, ok := c.burst.Get(cacheKey); ok {
		return cached.(*domain.RepoContent), nil
	}

	owner, name, err := splitFullName(repo.FullName)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "仓库全名格式不对", err)
	}

	content := &domain.RepoContent{}

	// 1. README：按常规文件名试，第一个命中即停 (API 返回 base64，库里负责解码)
	for _, candidate := range readmeCandidates {
		text, ok := c.fetchFileContent(ctx, owner, name, candidate)
		if ok {
			content.Readme = text
			break
		}
	}

	// 2. manifest (package.json)：解析失败不致命，当作没有
	if raw, ok := c.fetchFileContent(ctx, owner, name, "package.json"); ok {
		var manifest domain.Manifest
		if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
			c.logger.Warn("⚠️ package.json 解析失败，按无 manifest 处理",
				zap.String("repo", repo.FullName),
				zap.Error(err))
		} else {
			content.Manifest = manifest
		}
	}

	// 3. 工程信号：只探测路径是否存在，不拉内容
	content.HasTests = c.anyPathExists(ctx, owner, name, testPaths)
	content.HasCI = c.anyPathExists(ctx, owner, name, ciPaths)
	content.HasLintConfig = c.anyPathExists(ctx, owner, name, lintPaths)
	content.HasContractsDir = c.anyPathExists(ctx, owner, name, contractsPaths)

	// manifest 里的 eslint/prettier devDependencies 也算 lint 证据
	if !content.HasLintConfig && hasLintDevDependency(content.Manifest) {
		content.HasLintConfig = true
	}

	// 4. Web3 框架：manifest 依赖名 + 已知配置文件名，两路合并去重
	content.DetectedFrameworks = c.detectFrameworks(ctx, owner, name, content.Manifest)

	c.burst.Set(cacheKey, content)
	return content, nil
}

// fetchFileContent 拉单个文件内容，任何失败都返回 ok=false
func (c *Collector) fetchFileContent(ctx context.Context, owner, name, path string) (string, bool) {
	file, _, _, err := c.client.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil || file == nil {
		return "", false
	}
	text, err := file.GetContent()
	if err != nil {
		return "", false
	}
	return text, true
}

func (c *Collector) pathExists(ctx context.Context, owner, name, path string) bool {
	file, dir, _, err := c.client.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return false
	}
	return file != nil || dir != nil
}

func (c *Collector) anyPathExists(ctx context.Context, owner, name string, paths []string) bool {
	for _, p := range paths {
		if c.pathExists(ctx, owner, name, p) {
			return true
		}
	}
	return false
}

func (c *Collector) detectFrameworks(ctx context.Context, owner, name string, manifest domain.Manifest) []string {
	seen := make(map[string]bool)
	var frameworks []string

	add := func(fw string) {
		if !seen[fw] {
			seen[fw] = true
			frameworks = append(frameworks, fw)
		}
	}

	for _, section := range []string{"dependencies", "devDependencies"} {
		for dep := range manifestSection(manifest, section) {
			if fw, ok := frameworkDeps[dep]; ok {
				add(fw)
			}
		}
	}

	for file, fw := range frameworkFiles {
		if seen[fw] {
			continue // 已经从依赖里发现了，省一次探测
		}
		if c.pathExists(ctx, owner, name, file) {
			add(fw)
		}
	}

	sort.Strings(frameworks) // 两路来源都是 map 遍历，排序保证 payload 稳定
	return frameworks
}

// manifestSection 防御性地取出 manifest 的一个子 map
// 外部文档结构不可信，类型不对直接当空
func manifestSection(manifest domain.Manifest, key string) map[string]interface{} {
	if manifest == nil {
		return nil
	}
	section, ok := manifest[key].(map[string]interface{})
	if !ok {
		return nil
	}
	return section
}

func hasLintDevDependency(manifest domain.Manifest) bool {
	devDeps := manifestSection(manifest, "devDependencies")
	_, hasESLint := devDeps["eslint"]
	_, hasPrettier := devDeps["prettier"]
	return hasESLint || hasPrettier
}

// doWithRetry 先试一次；只有泛化的上游错误才走退避重试，
// NOT_FOUND / 配额耗尽这类终态错误直接返回
func (c *Collector) doWithRetry(ctx context.Context, call func() error) error {
	err := call()
	if err == nil {
		return nil
	}
	if appErr := common.AsAppError(err); appErr != nil && appErr.Code != common.ErrCodeUpstream {
		return err
	}
	return common.Do(ctx, call,
		common.WithMaxRetries(2),
		common.WithInitialDelay(500*time.Millisecond),
	)
}

// mapAPIError 把 GitHub 响应映射到错误分类：
// 404 -> NOT_FOUND，403 -> 上游配额耗尽 (带剩余配额，取不到就按 0)，
// 其余非 2xx -> 泛化的上游错误 (带状态码)
func (c *Collector) mapAPIError(resp *github.Response, err error, what string) error {
	if err == nil {
		return nil
	}

	if resp != nil {
		switch resp.StatusCode {
		case 404:
			return common.WrapError(common.ErrCodeNotFound, what+": 目标不存在", err)
		case 403:
			remaining := 0
			if resp.Rate.Remaining > 0 {
				remaining = resp.Rate.Remaining
			}
			return common.NewUpstreamRateLimited(
				fmt.Sprintf("%s: GitHub 配额耗尽 (剩余 %d)", what, remaining),
				remaining,
			)
		default:
			return common.WrapError(common.ErrCodeUpstream,
				fmt.Sprintf("%s: 上游返回状态码 %d", what, resp.StatusCode), err)
		}
	}

	return common.WrapError(common.ErrCodeUpstream, what+": GitHub API 调用失败", err)
}

func splitFullName(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("请使用 owner/name 形式: %q", fullName)
	}
	return parts[0], parts[1], nil
}

func convertRepo(item *github.Repository) *domain.Repository {
	license := ""
	if item.GetLicense() != nil {
		license = item.GetLicense().GetSPDXID()
	}

	return &domain.Repository{
		Name:          item.GetName(),
		FullName:      item.GetFullName(),
		Description:   item.GetDescription(),
		Topics:        item.Topics,
		Language:      item.GetLanguage(),
		Languages:     map[string]int{},
		Stars:         item.GetStargazersCount(),
		Forks:         item.GetForksCount(),
		Watchers:      item.GetWatchersCount(),
		OpenIssues:    item.GetOpenIssuesCount(),
		DefaultBranch: item.GetDefaultBranch(),
		License:       license,
		CreatedAt:     item.GetCreatedAt().Time,
		UpdatedAt:     item.GetUpdatedAt().Time,
		PushedAt:      item.GetPushedAt().Time,
		Size:          item.GetSize(),
		Archived:      item.GetArchived(),
		Disabled:      item.GetDisabled(),
		Fork:          item.GetFork(),
		Template:      item.GetIsTemplate(),
		HasIssues:     item.GetHasIssues(),
		HasProjects:   item.GetHasProjects(),
		HasWiki:       item.GetHasWiki(),
		HasPages:      item.GetHasPages(),
		Visibility:    item.GetVisibility(),
	}
}
