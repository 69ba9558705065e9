package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"web3-talent-scout/internal/common"
	"web3-talent-scout/internal/domain"

	"go.uber.org/zap"
)

// Notifier 分析完成后往飞书群里推一张候选人摘要卡片
// webhook 为空即关闭推送；推送失败由调用方按 best-effort 处理
type Notifier struct {
	webhookURL string
	logger     *zap.Logger
}

func NewNotifier(webhook string, logger *zap.Logger) *Notifier {
	if webhook == "" {
		logger.Warn("⚠️ 飞书 Webhook 为空，分析完成后不会推送")
	}
	return &Notifier{webhookURL: webhook, logger: logger}
}

// Notify 发送飞书卡片消息 (Schema 2.0)
func (n *Notifier) Notify(ctx context.Context, username string, report *domain.HiringReport) error {
	if n.webhookURL == "" {
		return fmt.Errorf("Webhook URL 为空")
	}

	title := fmt.Sprintf("📋 候选人分析完成: %s", username)
	template := "blue"
	if report.IsStrongCandidate() {
		title = fmt.Sprintf("🌟 发现高分候选人: %s", username)
		template = "green"
	}

	mdContent := fmt.Sprintf(`**🏆 综合评分:** %d/100  |  **结论:** %s
**🔗 Web3 开发者:** %v  |  **技术栈:** %s

**📝 摘要:**
%s

**🧭 理由:**
%s
`,
		report.Scores.Overall, report.Recommendation.Verdict,
		report.Web3Assessment.IsWeb3Developer, stacksOrDash(report.Web3Assessment.Stacks),
		report.ProfileSummary,
		report.Recommendation.Reasoning)

	payload := map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": template,
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "🔗 查看主页",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": "https://github.com/" + username,
							},
						},
					},
				},
			},
		},
	}

	body, _ := json.Marshal(payload)
	err := common.Do(ctx, func() error {
		resp, postErr := http.Post(n.webhookURL, "application/json", bytes.NewBuffer(body))
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}

	return nil
}

func stacksOrDash(stacks []string) string {
	if len(stacks) == 0 {
		return "-"
	}
	return strings.Join(stacks, ", ")
}
