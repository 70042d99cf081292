package detector

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/wash-signal/internal/model"
)

// RepeatedPairDetector 检测同一有序买卖对的高频交易。
// (A买,B卖)和(B买,A卖)视为不同交易对，互刷由环形检测器覆盖。
type RepeatedPairDetector struct {
	threshold int
}

func NewRepeatedPairDetector(cfg Config) *RepeatedPairDetector {
	return &RepeatedPairDetector{threshold: cfg.RepeatedPairThreshold}
}

func (d *RepeatedPairDetector) Name() string {
	return model.PatternRepeatedPairs
}

type pairKey struct {
	buyer  string
	seller string
}

type pairStats struct {
	count  int
	tokens map[string]struct{}
	volume decimal.Decimal
	txs    []string
}

func (d *RepeatedPairDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternRepeatedPairs,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	pairs := make(map[pairKey]*pairStats)
	for _, t := range trades {
		key := pairKey{buyer: t.Buyer, seller: t.Seller}
		st, ok := pairs[key]
		if !ok {
			st = &pairStats{tokens: make(map[string]struct{})}
			pairs[key] = st
		}
		st.count++
		st.tokens[t.TokenMint] = struct{}{}
		if t.BuyAmount.Valid {
			st.volume = st.volume.Add(t.BuyAmount.Decimal)
		}
		st.txs = append(st.txs, t.TxID)
	}

	flagged := make([]pairKey, 0)
	for key, st := range pairs {
		// 严格大于阈值，恰好等于不算
		if st.count > d.threshold {
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
		st := pairs[key]
		finding.Pairs = append(finding.Pairs, model.RepeatedPair{
			Buyer:       key.buyer,
			Seller:      key.seller,
			TradeCount:  st.count,
			TokenCount:  len(st.tokens),
			TotalVolume: st.volume,
		})
		txs = append(txs, st.txs...)
	}

	finding.Count = len(flagged)
	if finding.Count > 0 {
		finding.Severity = model.SeverityHigh
		finding.Transactions = uniqueSorted(txs)
	}

	return finding
}
