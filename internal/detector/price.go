package detector

import (
	"math"

	"github.com/ninja0404/wash-signal/internal/model"
)

// PriceDetector 检测某代币连续成交价的剧烈波动。
// 只看买入单价为正的行，按链上时间排序后计算相邻变化率，
// 剧烈波动占比超过阈值即判定为价格操纵。
type PriceDetector struct {
	deviation    float64
	extremeRatio float64
	minTrades    int
}

func NewPriceDetector(cfg Config) *PriceDetector {
	return &PriceDetector{
		deviation:    cfg.PriceDeviationThreshold,
		extremeRatio: cfg.PriceExtremeRatio,
		minTrades:    cfg.PriceMinTrades,
	}
}

func (d *PriceDetector) Name() string {
	return model.PatternPriceManipulation
}

func (d *PriceDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternPriceManipulation,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	groups := groupByToken(trades)
	var txs []string

	for _, token := range tokenOrder(trades) {
		priced := make([]*model.Trade, 0, len(groups[token]))
		for _, t := range groups[token] {
			if t.BuyPriceUSD.Valid && t.BuyPriceUSD.Decimal.IsPositive() {
				priced = append(priced, t)
			}
		}
		if len(priced) < d.minTrades {
			continue
		}
		stableSortByTime(priced)

		extreme := 0
		var sumChange, maxChange float64
		for i := 1; i < len(priced); i++ {
			prev := priced[i-1].BuyPriceUSD.Decimal
			cur := priced[i].BuyPriceUSD.Decimal
			change := math.Abs(cur.Sub(prev).Div(prev).InexactFloat64())
			if change <= d.deviation {
				continue
			}
			extreme++
			sumChange += change
			if change > maxChange {
				maxChange = change
			}
		}

		if float64(extreme) <= d.extremeRatio*float64(len(priced)) {
			continue
		}

		anomaly := model.PriceAnomaly{
			Token:          token,
			ExtremeChanges: extreme,
			MaxChange:      maxChange,
		}
		if extreme > 0 {
			anomaly.AvgChange = sumChange / float64(extreme)
		}
		for _, t := range priced {
			anomaly.Transactions = append(anomaly.Transactions, t.TxID)
			txs = append(txs, t.TxID)
		}
		anomaly.Transactions = uniqueSorted(anomaly.Transactions)
		finding.PriceAnomalies = append(finding.PriceAnomalies, anomaly)
	}

	finding.Count = len(finding.PriceAnomalies)
	if finding.Count > 0 {
		finding.Severity = model.SeverityHigh
		finding.Transactions = uniqueSorted(txs)
	}

	return finding
}
