// Package aggregate 把已抓取的数据归并成 LLM 的输入 payload。
// 整个包是纯函数，不做任何 I/O。
package aggregate

import (
	"math"
	"sort"
	"time"

	"web3-talent-scout/internal/domain"
)

// Builder 实现 payload 构建
type Builder struct {
	nowFunc func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{
		nowFunc: time.Now, // 便于测试注入当前时间
	}
}

// Build 对完整的仓库条目列表做汇总，产出 AnalysisPayload
func (b *Builder) Build(profile *domain.Profile, entries []domain.RepoEntry) *domain.AnalysisPayload {
	now := b.nowFunc()

	stats := domain.AggregateStats{
		TotalRepos:         len(entries),
		LanguagesBreakdown: map[string]int{},
		TopicsBreakdown:    map[string]int{},
	}

	var pushTimes []time.Time
	var updateTimes []time.Time
	var totalAgeDays float64

	for _, entry := range entries {
		repo := entry.Repo
		stats.TotalStars += repo.Stars
		stats.TotalForks += repo.Forks

		for lang, bytes := range repo.Languages {
			stats.LanguagesBreakdown[lang] += bytes
		}

		// topic 每个仓库只计一次，重复出现不叠加
		seen := make(map[string]bool)
		for _, topic := range repo.Topics {
			if !seen[topic] {
				seen[topic] = true
				stats.TopicsBreakdown[topic]++
			}
		}

		if entry.Detection != nil && entry.Detection.IsWeb3 {
			stats.Web3RepoCount++
		}

		if !repo.PushedAt.IsZero() {
			pushTimes = append(pushTimes, repo.PushedAt)
		}
		if !repo.UpdatedAt.IsZero() {
			updateTimes = append(updateTimes, repo.UpdatedAt)
		}
		totalAgeDays += now.Sub(repo.CreatedAt).Hours() / 24
	}

	// 除零保护：没有仓库时 ratio 必须是 0
	if stats.TotalRepos > 0 {
		stats.Web3Ratio = float64(stats.Web3RepoCount) / float64(stats.TotalRepos)
		stats.AvgRepoAgeDays = totalAgeDays / float64(stats.TotalRepos)
	}

	stats.RecencyScore = recencyScore(now, pushTimes)
	stats.ConsistencyScore = consistencyScore(updateTimes)

	return &domain.AnalysisPayload{
		Profile: *profile,
		Repos:   entries,
		Stats:   stats,
	}
}

// recencyScore 把 "平均距上次 push 的天数" 分桶打分
// 分桶边界是权威口径，别处不允许再抄一份
func recencyScore(now time.Time, pushTimes []time.Time) int {
	if len(pushTimes) == 0 {
		return 20
	}

	var totalDays float64
	for _, ts := range pushTimes {
		totalDays += now.Sub(ts).Hours() / 24
	}
	avgDays := totalDays / float64(len(pushTimes))

	switch {
	case avgDays < 30:
		return 100
	case avgDays < 90:
		return 80
	case avgDays < 180:
		return 60
	case avgDays < 365:
		return 40
	default:
		return 20
	}
}

// consistencyScore 用更新时间间隔的变异系数打分：
// 间隔越均匀分越高。少于 2 个时间点无法评估波动，定义为 50。
func consistencyScore(updateTimes []time.Time) int {
	if len(updateTimes) < 2 {
		return 50
	}

	sorted := make([]time.Time, len(updateTimes))
	copy(sorted, updateTimes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours())
	}

	var sum float64
	for _, g := range gaps {
		sum += g
	}
	mean := sum / float64(len(gaps))
	if mean == 0 {
		// 所有更新挤在同一时刻，波动为零
		return 100
	}

	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))

	cv := math.Sqrt(variance) / mean
	score := int(math.Round(100 - cv*50))
	if score < 0 {
		return 0
	}
	return score
}
