package domain

import "time"

// Profile 代表一次分析中抓取的 GitHub 用户快照 (抓取后不再修改)
type Profile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"publicRepos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository 代表候选人的一个仓库 (来自 GitHub API，抓取后只读)
type Repository struct {
	Name          string         `json:"name"`
	FullName      string         `json:"fullName"` // 例如 "vitalik/solidity-playground"
	Description   string         `json:"description"`
	Topics        []string       `json:"topics"`
	Language      string         `json:"language"`
	Languages     map[string]int `json:"languages"` // 语言 -> 字节数
	Stars         int            `json:"stars"`
	Forks         int            `json:"forks"`
	Watchers      int            `json:"watchers"`
	OpenIssues    int            `json:"openIssues"`
	DefaultBranch string         `json:"defaultBranch"`
	License       string         `json:"license"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	PushedAt      time.Time      `json:"pushedAt"`
	Size          int            `json:"size"`
	Archived      bool           `json:"archived"`
	Disabled      bool           `json:"disabled"`
	Fork          bool           `json:"fork"`
	Template      bool           `json:"isTemplate"`
	HasIssues     bool           `json:"hasIssues"`
	HasProjects   bool           `json:"hasProjects"`
	HasWiki       bool           `json:"hasWiki"`
	HasPages      bool           `json:"hasPages"`
	Visibility    string         `json:"visibility"`
}

// Manifest 是 package.json 这类结构未知的外部文档
// 只能做存在性检查，不允许假定字段一定存在
type Manifest = map[string]interface{}

// RepoContent 是对部分仓库 (数量有上限) 做的内容探测结果
// 每次分析计算一次，payload 构建完即丢弃，不单独落库
type RepoContent struct {
	Readme             string   `json:"readme,omitempty"`
	Manifest           Manifest `json:"manifest,omitempty"`
	HasTests           bool     `json:"hasTests"`
	HasCI              bool     `json:"hasCi"`
	HasLintConfig      bool     `json:"hasLintConfig"`
	HasContractsDir    bool     `json:"hasContractsDir"`
	DetectedFrameworks []string `json:"detectedFrameworks"`
}

// Web3Detection 是纯启发式推导的结果，不依赖外部状态
type Web3Detection struct {
	IsWeb3         bool     `json:"isWeb3"`
	DetectedStacks []string `json:"detectedStacks"` // 去重后的技术栈名
	Confidence     string   `json:"confidence"`     // high / medium / low
	Evidence       []string `json:"evidence"`       // 人类可读的证据，引用具体信号
}

// 置信度分层：证据条数 >=3 高，==2 中，其余低
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// RepoEntry 把一个仓库和它的内容探测、Web3 判定捆在一起
type RepoEntry struct {
	Repo      Repository     `json:"repo"`
	Content   *RepoContent   `json:"content"`
	Detection *Web3Detection `json:"detection"`
}

// AggregateStats 是对整个仓库列表的汇总统计
type AggregateStats struct {
	TotalRepos         int            `json:"totalRepos"`
	TotalStars         int            `json:"totalStars"`
	TotalForks         int            `json:"totalForks"`
	LanguagesBreakdown map[string]int `json:"languagesBreakdown"` // 语言 -> 字节数
	TopicsBreakdown    map[string]int `json:"topicsBreakdown"`    // topic -> 出现仓库数
	Web3RepoCount      int            `json:"web3RepoCount"`
	Web3Ratio          float64        `json:"web3Ratio"` // totalRepos 为 0 时必须是 0
	RecencyScore       int            `json:"recencyScore"`
	ConsistencyScore   int            `json:"consistencyScore"`
	AvgRepoAgeDays     float64        `json:"avgRepoAgeDays"`
}

// AnalysisPayload 是喂给 LLM 的完整输入，每次请求重新构建，不单独缓存
type AnalysisPayload struct {
	Profile Profile        `json:"profile"`
	Repos   []RepoEntry    `json:"repos"`
	Stats   AggregateStats `json:"stats"`
}

// --- 核心产出：结构化招聘报告 ---

// ReportScores 七个维度的 0-100 评分
type ReportScores struct {
	Overall       int `json:"overall"`
	Web3Expertise int `json:"web3Expertise"`
	CodeQuality   int `json:"codeQuality"`
	Activity      int `json:"activity"`
	Consistency   int `json:"consistency"`
	Collaboration int `json:"collaboration"`
	Documentation int `json:"documentation"`
}

// Web3Assessment Web3 能力评估
type Web3Assessment struct {
	IsWeb3Developer bool     `json:"isWeb3Developer"`
	Stacks          []string `json:"stacks"`
	Depth           string   `json:"depth"` // 证据不足时必须写 "unknown"
	Evidence        []string `json:"evidence"`
}

// 测试/CI 水平枚举
const (
	TestingLevelNone    = "none"
	TestingLevelBasic   = "basic"
	TestingLevelSolid   = "solid"
	TestingLevelUnknown = "unknown"
)

// EngineeringAssessment 工程素养评估
type EngineeringAssessment struct {
	TestingCILevel string   `json:"testingCiLevel"` // none / basic / solid / unknown
	Strengths      []string `json:"strengths"`
	Concerns       []string `json:"concerns"`
}

// RepoInsight 单仓库洞察
type RepoInsight struct {
	Name       string   `json:"name"`
	Importance string   `json:"importance"` // high / medium / low
	Insight    string   `json:"insight"`
	Evidence   []string `json:"evidence"`
}

// 录用结论枚举
const (
	VerdictStrongHire = "strong_hire"
	VerdictHire       = "hire"
	VerdictMaybe      = "maybe"
	VerdictNoHire     = "no_hire"
)

// 岗位匹配的封闭集合，报告里只允许出现这些岗位名
var RoleNames = []string{
	"solidity-engineer",
	"smart-contract-auditor",
	"frontend-web3-engineer",
	"fullstack-web3-engineer",
	"backend-engineer",
	"devrel-engineer",
}

// RoleFit 针对固定岗位集合的匹配度
// 没有直接技能证据时分数必须是 0，不允许 "给点辛苦分"
type RoleFit struct {
	Role          string `json:"role"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// Recommendation 录用建议
type Recommendation struct {
	Verdict   string    `json:"verdict"`
	Reasoning string    `json:"reasoning"`
	RoleFit   []RoleFit `json:"roleFit"`
}

// InterviewQuestion 定制面试题
type InterviewQuestion struct {
	Category          string   `json:"category"`
	Question          string   `json:"question"`
	Rationale         string   `json:"rationale"`
	GoodAnswerSignals []string `json:"goodAnswerSignals"`
}

// TakeHomeTask 上机作业题
type TakeHomeTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SkillLevel  string `json:"skillLevel"`
}

// InterviewPlan 面试方案：6-10 道题 + 2-4 个作业
type InterviewPlan struct {
	Questions     []InterviewQuestion `json:"questions"`
	TakeHomeTasks []TakeHomeTask      `json:"takeHomeTasks"`
}

// HiringReport 是经过 Schema 校验的 LLM 输出，也是缓存和落库的单位
type HiringReport struct {
	ProfileSummary        string                `json:"profileSummary"`
	Scores                ReportScores          `json:"scores"`
	Web3Assessment        Web3Assessment        `json:"web3Assessment"`
	EngineeringAssessment EngineeringAssessment `json:"engineeringAssessment"`
	RepoInsights          []RepoInsight         `json:"repoInsights"`
	Recommendation        Recommendation        `json:"recommendation"`
	InterviewPlan         InterviewPlan         `json:"interviewPlan"`
	DueDiligenceNotes     []string              `json:"dueDiligenceNotes"`
}

// IsStrongCandidate 判断是否值得优先推进流程 (阈值可按团队口味调整)
func (r *HiringReport) IsStrongCandidate() bool {
	return r.Recommendation.Verdict == VerdictStrongHire || r.Scores.Overall >= 80
}

// ClampScores 把所有数值评分钳制到 [0,100]，LLM 偶尔会越界
func (r *HiringReport) ClampScores() {
	r.Scores.Overall = ClampScore(r.Scores.Overall)
	r.Scores.Web3Expertise = ClampScore(r.Scores.Web3Expertise)
	r.Scores.CodeQuality = ClampScore(r.Scores.CodeQuality)
	r.Scores.Activity = ClampScore(r.Scores.Activity)
	r.Scores.Consistency = ClampScore(r.Scores.Consistency)
	r.Scores.Collaboration = ClampScore(r.Scores.Collaboration)
	r.Scores.Documentation = ClampScore(r.Scores.Documentation)
	for i := range r.Recommendation.RoleFit {
		r.Recommendation.RoleFit[i].Score = ClampScore(r.Recommendation.RoleFit[i].Score)
	}
}

// ClampScore 钳制单个评分到 [0,100]
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// AnalysisRecord 是落库的分析记录，一次分析一条
type AnalysisRecord struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"index"` // 归一化 (小写) 后的登录名
	ProfileURL string    `json:"profileUrl"`
	Report     string    `json:"report" gorm:"type:text"`     // HiringReport 的 JSON
	RawPayload string    `json:"rawPayload" gorm:"type:text"` // 支撑数据快照的 JSON
	CreatedAt  time.Time `json:"createdAt"`
}
