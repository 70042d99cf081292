package detector

import (
	"github.com/ninja0404/wash-signal/internal/model"
)

// SelfTradeDetector 检测买方和卖方为同一钱包的交易。
// 自成交没有合法场景，命中即为高风险。
type SelfTradeDetector struct{}

func NewSelfTradeDetector() *SelfTradeDetector {
	return &SelfTradeDetector{}
}

func (d *SelfTradeDetector) Name() string {
	return model.PatternSelfTrades
}

func (d *SelfTradeDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternSelfTrades,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	var txs []string
	var wallets []string
	var tokens []string

	for _, t := range trades {
		if !t.IsSelfTrade() {
			continue
		}
		finding.Count++
		txs = append(txs, t.TxID)
		wallets = append(wallets, t.Buyer)
		tokens = append(tokens, t.TokenMint)
	}

	if finding.Count > 0 {
		finding.Severity = model.SeverityHigh
		finding.Transactions = uniqueSorted(txs)
		finding.Wallets = uniqueSorted(wallets)
		finding.Tokens = uniqueSorted(tokens)
	}

	return finding
}
