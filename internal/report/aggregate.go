package report

import (
	"sort"

	"github.com/ninja0404/wash-signal/internal/model"
)

// 风险评分权重与分级阈值
const (
	highPatternWeight   = 3
	mediumPatternWeight = 1
	highLevelScore      = 6
	mediumLevelScore    = 3
)

// BuildReport 将所有检测结果汇总为一份报告。
// 可疑集合取各模式的并集并去重排序，展示列表做截断，
// 完整集合保留在内存字段中。同一快照两次汇总字节一致。
func BuildReport(totalTrades int, findings map[string]*model.Finding) *model.AggregateReport {
	report := &model.AggregateReport{
		TotalTradesAnalyzed:    totalTrades,
		HighSeverityPatterns:   []string{},
		MediumSeverityPatterns: []string{},
		DetailedPatterns:       findings,
		RiskLevel:              model.SeverityLow,
	}
	if report.DetailedPatterns == nil {
		report.DetailedPatterns = make(map[string]*model.Finding)
	}

	txSet := make(map[string]struct{})
	walletSet := make(map[string]struct{})
	tokenSet := make(map[string]struct{})

	names := make([]string, 0, len(findings))
	for name := range findings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := findings[name]
		if f == nil || f.Count == 0 {
			continue
		}
		for _, tx := range f.Transactions {
			txSet[tx] = struct{}{}
		}
		for _, w := range f.Wallets {
			walletSet[w] = struct{}{}
		}
		for _, tok := range f.Tokens {
			tokenSet[tok] = struct{}{}
		}
		switch f.Severity {
		case model.SeverityHigh:
			report.HighSeverityPatterns = append(report.HighSeverityPatterns, name)
		case model.SeverityMedium:
			report.MediumSeverityPatterns = append(report.MediumSeverityPatterns, name)
		}
	}

	report.AllSuspiciousTxs = setToSorted(txSet)
	report.AllSuspiciousWallets = setToSorted(walletSet)
	report.AllSuspiciousTokens = setToSorted(tokenSet)

	report.SuspiciousTransactions = len(report.AllSuspiciousTxs)
	report.SuspiciousWallets = len(report.AllSuspiciousWallets)
	report.SuspiciousTokens = len(report.AllSuspiciousTokens)

	report.RiskScore = highPatternWeight*len(report.HighSeverityPatterns) +
		mediumPatternWeight*len(report.MediumSeverityPatterns)
	switch {
	case report.RiskScore >= highLevelScore:
		report.RiskLevel = model.SeverityHigh
	case report.RiskScore >= mediumLevelScore:
		report.RiskLevel = model.SeverityMedium
	}

	report.SuspiciousTxList = truncate(report.AllSuspiciousTxs, model.DisplayTxLimit)
	report.SuspiciousWalletList = truncate(report.AllSuspiciousWallets, model.DisplayWalletLimit)
	report.SuspiciousTokenList = truncate(report.AllSuspiciousTokens, model.DisplayTokenLimit)

	return report
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// truncate 返回前limit个元素的拷贝，截断不影响完整集合
func truncate(items []string, limit int) []string {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}
