package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"

	"github.com/google/generative-ai-go/genai"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/option"
)

// DefaultModel 默认模型
const DefaultModel = "gemini-2.5-flash-lite"

// 面试题的固定类别集合
var questionCategories = []string{
	"web3-depth",
	"engineering-practices",
	"architecture",
	"debugging",
	"collaboration",
	"product-sense",
}

// Reporter 实现了 port.Reporter 接口：调 Gemini 产出结构化招聘报告
type Reporter struct {
	client *genai.Client
	model  *genai.GenerativeModel
	schema *gojsonschema.Schema
}

// NewReporter 初始化 Gemini 客户端
// 强制 JSON 输出 + ResponseSchema 钉死报告结构，温度压低保证确定性
func NewReporter(ctx context.Context, apiKey, modelName string) (*Reporter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = DefaultModel
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = reportResponseSchema()
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(8192)

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(reportSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("报告 schema 编译失败: %w", err)
	}

	return &Reporter{
		client: client,
		model:  model,
		schema: schema,
	}, nil
}

// Close 释放底层客户端连接
func (r *Reporter) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// GenerateReport 生成招聘报告
// 模型调用失败 / 返回为空 / 解析失败都是 GENERATION_ERROR，这里不重试
func (r *Reporter) GenerateReport(ctx context.Context, payload *domain.AnalysisPayload) (*domain.HiringReport, error) {
	prompt, err := BuildPrompt(payload)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGeneration, "payload 序列化失败", err)
	}

	resp, err := r.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGeneration, "AI 调用失败", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, common.NewError(common.ErrCodeGeneration, "AI 返回内容为空")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, common.NewError(common.ErrCodeGeneration, "AI 返回格式错误")
	}

	report, err := r.parseReport(string(text))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeGeneration, "AI 返回的报告不合法", err)
	}

	return report, nil
}

// parseReport 清洗 + 校验 + 反序列化
// 即使开了 ResponseSchema，也按老经验先抠出 { ... } 再解析，防止模型夹带 Markdown 标记
func (r *Reporter) parseReport(rawContent string) (*domain.HiringReport, error) {
	start := strings.Index(rawContent, "{")
	end := strings.LastIndex(rawContent, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("无法提取 JSON, AI 原文: %s", truncate(rawContent, 200))
	}
	cleanJSON := rawContent[start : end+1]

	// 二道防线：gojsonschema 校验字段齐全且没有多余字段
	result, err := r.schema.Validate(gojsonschema.NewStringLoader(cleanJSON))
	if err != nil {
		return nil, fmt.Errorf("JSON 解析失败: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("报告不符合 schema: %s", strings.Join(problems, "; "))
	}

	var report domain.HiringReport
	if err := json.Unmarshal([]byte(cleanJSON), &report); err != nil {
		return nil, fmt.Errorf("JSON 解析失败: %w", err)
	}

	// 数值评分钳到 [0,100]
	report.ClampScores()
	return &report, nil
}

// BuildPrompt 把 payload 原样嵌进指令块
// 六条红线：不许编造、证据不足写 unknown、所有断言引用具体证据、
// 没有直接技能证据的岗位匹配必须打 0、6-10 道分类面试题、2-4 个匹配水平的作业
func BuildPrompt(payload *domain.AnalysisPayload) (string, error) {
	payloadJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`你是一位资深的 Web3 技术招聘专家。下面是一位候选人 GitHub 数据的完整快照，请基于它产出一份结构化的招聘评估报告。

候选人数据 (唯一的事实来源):
%s

硬性规则，违反任何一条报告都作废：
1. 只允许使用上面数据里出现的事实，严禁编造数据里不存在的经历、项目或技能。
2. 证据不足以支撑判断时，对应字段写 "unknown" 并相应调低置信度和评分，不要硬猜。
3. 每一条断言都必须引用具体证据：topic 名、文件名、依赖名、仓库名，写进对应的 evidence 字段。
4. 评分标准从严：roleFit 里任何岗位，只要数据里没有该技能的直接证据，score 必须是 0 分，不允许给 "辛苦分" 或 "潜力分"。
5. interviewPlan.questions 必须是 6 到 10 道针对这位候选人定制的面试题，覆盖多个类别 (%s)，每道题写清出题理由 (rationale) 和好答案的信号 (goodAnswerSignals)。
6. interviewPlan.takeHomeTasks 必须是 2 到 4 个上机作业题，难度要匹配候选人已展示出来的水平。

直接返回符合约定结构的 JSON，不要包含 Markdown 格式标记。`,
		string(payloadJSON),
		strings.Join(questionCategories, " / "),
	), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
