package publisher

import (
	"fmt"
	"strings"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/notifier"
	"github.com/ninja0404/wash-signal/pkg/utils"
)

// FeishuPublisher 飞书发布器
type FeishuPublisher struct {
	webhookURL string
}

// NewFeishuPublisher 创建飞书发布器
func NewFeishuPublisher(webhookURL string) *FeishuPublisher {
	return &FeishuPublisher{
		webhookURL: webhookURL,
	}
}

func (p *FeishuPublisher) GetType() string {
	return "feishu"
}

func (p *FeishuPublisher) Publish(report *model.AggregateReport) error {
	message := p.formatReportMessage(report)
	return notifier.SendToLark(message, p.webhookURL)
}

func (p *FeishuPublisher) Close() error {
	return nil
}

// getRiskLevelEmoji 获取风险等级对应的emoji
func (p *FeishuPublisher) getRiskLevelEmoji(level model.Severity) string {
	switch level {
	case model.SeverityHigh:
		return "🚨"
	case model.SeverityMedium:
		return "⚠️"
	default:
		return "✅"
	}
}

// getPatternName 获取模式的中文名称
func (p *FeishuPublisher) getPatternName(pattern string) string {
	switch pattern {
	case model.PatternSelfTrades:
		return "自成交"
	case model.PatternRepeatedPairs:
		return "高频买卖对"
	case model.PatternCircularTrading:
		return "环形对倒"
	case model.PatternTimingPatterns:
		return "规律时间间隔"
	case model.PatternVolumeConcentration:
		return "交易量集中"
	case model.PatternPriceManipulation:
		return "价格操纵"
	case model.PatternNewWalletPatterns:
		return "新钱包集群"
	default:
		return pattern
	}
}

// formatReportMessage 格式化飞书消息
func (p *FeishuPublisher) formatReportMessage(report *model.AggregateReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s 洗盘交易分析报告 [%s]\n", p.getRiskLevelEmoji(report.RiskLevel), report.RiskLevel))
	b.WriteString(fmt.Sprintf("风险评分: %d\n", report.RiskScore))
	b.WriteString(fmt.Sprintf("分析交易数: %d\n", report.TotalTradesAnalyzed))
	b.WriteString(fmt.Sprintf("可疑交易: %d | 可疑钱包: %d | 可疑代币: %d\n",
		report.SuspiciousTransactions, report.SuspiciousWallets, report.SuspiciousTokens))

	if len(report.HighSeverityPatterns) > 0 {
		b.WriteString("\n🔴 高风险模式:\n")
		for _, pattern := range report.HighSeverityPatterns {
			f := report.DetailedPatterns[pattern]
			count := 0
			if f != nil {
				count = f.Count
			}
			b.WriteString(fmt.Sprintf("  • %s (%d)\n", p.getPatternName(pattern), count))
		}
	}
	if len(report.MediumSeverityPatterns) > 0 {
		b.WriteString("\n🟡 中风险模式:\n")
		for _, pattern := range report.MediumSeverityPatterns {
			f := report.DetailedPatterns[pattern]
			count := 0
			if f != nil {
				count = f.Count
			}
			b.WriteString(fmt.Sprintf("  • %s (%d)\n", p.getPatternName(pattern), count))
		}
	}

	if len(report.SuspiciousWalletList) > 0 {
		b.WriteString("\n👛 可疑钱包(截断):\n")
		for _, wallet := range report.SuspiciousWalletList {
			b.WriteString(fmt.Sprintf("  • %s\n", utils.GetDisplayWalletAddress(wallet)))
		}
	}

	return b.String()
}
