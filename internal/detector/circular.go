package detector

import (
	"sort"

	"github.com/ninja0404/wash-signal/internal/model"
)

// CircularDetector 检测两个钱包之间的往返对倒。
// 实现为无序钱包对的出现次数统计：每笔交易给(买方,卖方)的
// 无序对计数加一，达到阈值即判定为往返。round_trips取计数的
// 一半，是启发式近似，不搜索3个以上钱包的真实环路。
type CircularDetector struct {
	minOccurrences int
}

func NewCircularDetector(cfg Config) *CircularDetector {
	return &CircularDetector{minOccurrences: cfg.CircularMinOccurrences}
}

func (d *CircularDetector) Name() string {
	return model.PatternCircularTrading
}

func (d *CircularDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternCircularTrading,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	type pairAgg struct {
		count int
		txs   []string
	}
	pairs := make(map[pairKey]*pairAgg)

	for _, t := range trades {
		a, b := t.Buyer, t.Seller
		if a > b {
			a, b = b, a
		}
		key := pairKey{buyer: a, seller: b}
		agg, ok := pairs[key]
		if !ok {
			agg = &pairAgg{}
			pairs[key] = agg
		}
		agg.count++
		agg.txs = append(agg.txs, t.TxID)
	}

	flagged := make([]pairKey, 0)
	for key, agg := range pairs {
		if agg.count >= d.minOccurrences {
			flagged = append(flagged, key)
		}
	}
	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].buyer != flagged[j].buyer {
			return flagged[i].buyer < flagged[j].buyer
		}
		return flagged[i].seller < flagged[j].seller
	})

	var txs []string
	for _, key := range flagged {
		agg := pairs[key]
		finding.Circles = append(finding.Circles, model.CircularTrade{
			WalletA:      key.buyer,
			WalletB:      key.seller,
			RoundTrips:   agg.count / 2,
			Transactions: uniqueSorted(agg.txs),
		})
		txs = append(txs, agg.txs...)
	}

	finding.Count = len(flagged)
	if finding.Count > 0 {
		finding.Severity = model.SeverityHigh
		finding.Transactions = uniqueSorted(txs)
	}

	return finding
}
