// Package web3 是纯启发式的 Web3 技术栈判定，不做任何 I/O。
// 四路证据互相独立，isWeb3 当且仅当证据列表非空。
package web3

import (
	"fmt"
	"sort"
	"strings"

	"web3-talent-scout/internal/domain"
)

// topic 词表，和仓库 topic 做大小写不敏感的交集
var topicVocabulary = []string{
	"web3",
	"blockchain",
	"ethereum",
	"solidity",
	"smart-contracts",
	"smart-contract",
	"defi",
	"nft",
	"dapp",
	"cryptocurrency",
	"crypto",
	"evm",
	"erc20",
	"erc721",
	"layer2",
	"zero-knowledge",
	"zk-snarks",
	"rollup",
	"polygon",
	"arbitrum",
	"optimism",
	"solana",
	"hardhat",
	"truffle",
	"foundry",
}

// 框架类 topic 顺带贡献技术栈名
var topicStacks = map[string]string{
	"solidity": "Solidity",
	"hardhat":  "Hardhat",
	"truffle":  "Truffle",
	"foundry":  "Foundry",
	"solana":   "Solana",
	"ethereum": "Ethereum",
	"evm":      "EVM",
}

// README 关键词表。单独一两处顺带提到不算证据，
// 必须超过 2 个不同关键词命中才记录
var readmeKeywords = []string{
	"solidity",
	"ethereum",
	"smart contract",
	"blockchain",
	"web3",
	"defi",
	"nft",
	"dapp",
	"on-chain",
	"erc-20",
	"erc-721",
	"metamask",
	"wallet",
	"consensus",
}

const solidityLanguage = "Solidity"

// Detector 实现了 port.Detector 接口
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect 对单个仓库做 Web3 判定。content 可以是 nil (内容探测没做或失败了)。
func (d *Detector) Detect(repo *domain.Repository, content *domain.RepoContent) *domain.Web3Detection {
	var evidence []string
	stacks := make(map[string]bool)

	addStack := func(s string) {
		if s != "" {
			stacks[s] = true
		}
	}

	// 1. topic 词表交集
	for _, topic := range repo.Topics {
		lower := strings.ToLower(topic)
		for _, term := range topicVocabulary {
			if lower == term {
				evidence = append(evidence, fmt.Sprintf("topic %q 命中 Web3 词表", topic))
				addStack(topicStacks[term])
				break
			}
		}
	}

	// 2. 内容信号：框架 + 合约目录
	if content != nil {
		for _, fw := range content.DetectedFrameworks {
			evidence = append(evidence, fmt.Sprintf("检测到框架 %s (manifest 依赖或配置文件)", fw))
			addStack(fw)
		}
		if content.HasContractsDir && repo.Language == solidityLanguage {
			evidence = append(evidence, "存在 contracts 目录且主语言是 Solidity")
			addStack(solidityLanguage)
		}

		// 3. README 关键词密度
		if content.Readme != "" {
			matched := matchReadmeKeywords(content.Readme)
			if len(matched) > 2 {
				cited := matched
				if len(cited) > 3 {
					cited = cited[:3]
				}
				evidence = append(evidence, fmt.Sprintf("README 命中 %d 个 Web3 关键词: %s",
					len(matched), strings.Join(cited, ", ")))
			}
		}
	}

	// 4. 主语言本身就是独立证据
	if repo.Language == solidityLanguage {
		evidence = append(evidence, "主语言是 Solidity")
		addStack(solidityLanguage)
	}

	detection := &domain.Web3Detection{
		IsWeb3:         len(evidence) > 0,
		DetectedStacks: make([]string, 0, len(stacks)),
		Confidence:     confidenceFor(len(evidence)),
		Evidence:       evidence,
	}
	for s := range stacks {
		detection.DetectedStacks = append(detection.DetectedStacks, s)
	}
	sort.Strings(detection.DetectedStacks) // map 遍历无序，payload 要稳定

	return detection
}

func matchReadmeKeywords(readme string) []string {
	lower := strings.ToLower(readme)
	var matched []string
	for _, kw := range readmeKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// 证据条数的阶梯函数：>=3 高，==2 中，其余低
func confidenceFor(evidenceCount int) string {
	switch {
	case evidenceCount >= 3:
		return domain.ConfidenceHigh
	case evidenceCount == 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
