package detector

import (
	"github.com/ninja0404/wash-signal/internal/model"
)

// TimingDetector 检测某代币交易间隔过于规律。
// 按链上时间排序后计算相邻间隔，0到窗口上限之间的间隔视为
// 规律交易，规律占比超过阈值即判定异常。没有任何时间戳的
// 数据集直接返回零结果，不报错。
type TimingDetector struct {
	windowMinutes float64
	regularRatio  float64
	minTrades     int
}

func NewTimingDetector(cfg Config) *TimingDetector {
	return &TimingDetector{
		windowMinutes: cfg.TimingWindowMinutes,
		regularRatio:  cfg.TimingRegularRatio,
		minTrades:     cfg.TimingMinTrades,
	}
}

func (d *TimingDetector) Name() string {
	return model.PatternTimingPatterns
}

func (d *TimingDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternTimingPatterns,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	hasTime := false
	for _, t := range trades {
		if t.HasBlockTime() {
			hasTime = true
			break
		}
	}
	if !hasTime {
		return finding
	}

	groups := groupByToken(trades)
	var txs []string

	for _, token := range tokenOrder(trades) {
		tokenTrades := groups[token]
		if len(tokenTrades) < d.minTrades {
			continue
		}

		timed := sortByBlockTime(tokenTrades)
		regular := 0
		var sumMinutes float64
		for i := 1; i < len(timed); i++ {
			delta := timed[i].BlockTime.Sub(*timed[i-1].BlockTime).Minutes()
			// 间隔为0说明同块成交，不算规律节奏
			if delta > 0 && delta < d.windowMinutes {
				regular++
				sumMinutes += delta
			}
		}

		// 占比按代币的全部交易数计算，含无时间戳的行
		if float64(regular) <= d.regularRatio*float64(len(tokenTrades)) {
			continue
		}

		anomaly := model.TimingAnomaly{
			Token:         token,
			RegularTrades: regular,
			TotalTrades:   len(tokenTrades),
		}
		if regular > 0 {
			anomaly.AvgIntervalMinutes = sumMinutes / float64(regular)
		}
		for _, t := range tokenTrades {
			anomaly.Transactions = append(anomaly.Transactions, t.TxID)
			txs = append(txs, t.TxID)
		}
		anomaly.Transactions = uniqueSorted(anomaly.Transactions)
		finding.TimingAnomalies = append(finding.TimingAnomalies, anomaly)
	}

	finding.Count = len(finding.TimingAnomalies)
	if finding.Count > 0 {
		finding.Severity = model.SeverityMedium
		finding.Transactions = uniqueSorted(txs)
	}

	return finding
}

// sortByBlockTime 过滤出带时间戳的行并按时间稳定排序
func sortByBlockTime(trades []*model.Trade) []*model.Trade {
	timed := make([]*model.Trade, 0, len(trades))
	for _, t := range trades {
		if t.HasBlockTime() {
			timed = append(timed, t)
		}
	}
	stableSortByTime(timed)
	return timed
}
