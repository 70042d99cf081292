package detector

import (
	"sort"
	"time"

	"github.com/ninja0404/wash-signal/internal/model"
)

// NewWalletDetector 检测疑似一次性的新钱包。
// 链上数据里没有钱包创建时间，用买方交易数少且只碰少数
// 代币来近似：交易数和代币数都不超过上限的买方被标记。
// 被标记钱包超过5个升级为MEDIUM。
type NewWalletDetector struct {
	maxTrades int
	maxTokens int
}

func NewNewWalletDetector(cfg Config) *NewWalletDetector {
	return &NewWalletDetector{
		maxTrades: cfg.NewWalletMaxTrades,
		maxTokens: cfg.NewWalletMaxTokens,
	}
}

func (d *NewWalletDetector) Name() string {
	return model.PatternNewWalletPatterns
}

type walletStats struct {
	count  int
	tokens map[string]struct{}
	first  *time.Time
	last   *time.Time
	txs    []string
}

func (d *NewWalletDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternNewWalletPatterns,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	stats := make(map[string]*walletStats)
	for _, t := range trades {
		st, ok := stats[t.Buyer]
		if !ok {
			st = &walletStats{tokens: make(map[string]struct{})}
			stats[t.Buyer] = st
		}
		st.count++
		st.tokens[t.TokenMint] = struct{}{}
		st.txs = append(st.txs, t.TxID)
		if t.HasBlockTime() {
			if st.first == nil || t.BlockTime.Before(*st.first) {
				st.first = t.BlockTime
			}
			if st.last == nil || t.BlockTime.After(*st.last) {
				st.last = t.BlockTime
			}
		}
	}

	flagged := make([]string, 0)
	for wallet, st := range stats {
		if st.count <= d.maxTrades && len(st.tokens) <= d.maxTokens {
			flagged = append(flagged, wallet)
		}
	}
	sort.Strings(flagged)

	var txs []string
	for _, wallet := range flagged {
		st := stats[wallet]
		finding.WalletActivity = append(finding.WalletActivity, model.WalletActivity{
			Wallet:     wallet,
			TradeCount: st.count,
			TokenCount: len(st.tokens),
			FirstTrade: st.first,
			LastTrade:  st.last,
		})
		txs = append(txs, st.txs...)
	}

	finding.Count = len(flagged)
	if finding.Count > 0 {
		finding.Wallets = flagged
		finding.Transactions = uniqueSorted(txs)
		if finding.Count > 5 {
			finding.Severity = model.SeverityMedium
		}
	}

	return finding
}
