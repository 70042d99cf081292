package detector

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/wash-signal/internal/model"
)

// VolumeDetector 检测某代币交易量被少数买方钱包垄断。
// 数值缺失的行不计入钱包交易量，总量为0的代币直接跳过，
// 避免除零。
type VolumeDetector struct {
	threshold float64
	minTrades int
}

// 参与集中度计算的头部钱包数
const topWalletCount = 3

func NewVolumeDetector(cfg Config) *VolumeDetector {
	return &VolumeDetector{
		threshold: cfg.VolumeConcentrationThreshold,
		minTrades: cfg.VolumeMinTrades,
	}
}

func (d *VolumeDetector) Name() string {
	return model.PatternVolumeConcentration
}

func (d *VolumeDetector) Detect(trades []*model.Trade) *model.Finding {
	finding := &model.Finding{
		Pattern:      model.PatternVolumeConcentration,
		Severity:     model.SeverityLow,
		Transactions: []string{},
	}

	groups := groupByToken(trades)
	var txs []string

	for _, token := range tokenOrder(trades) {
		tokenTrades := groups[token]
		if len(tokenTrades) < d.minTrades {
			continue
		}

		volumes := make(map[string]decimal.Decimal)
		for _, t := range tokenTrades {
			if !t.BuyAmount.Valid {
				continue
			}
			volumes[t.Buyer] = volumes[t.Buyer].Add(t.BuyAmount.Decimal)
		}

		total := decimal.Zero
		wallets := make([]string, 0, len(volumes))
		for wallet, v := range volumes {
			total = total.Add(v)
			wallets = append(wallets, wallet)
		}
		if !total.IsPositive() {
			continue
		}

		sort.Slice(wallets, func(i, j int) bool {
			cmp := volumes[wallets[i]].Cmp(volumes[wallets[j]])
			if cmp != 0 {
				return cmp > 0
			}
			return wallets[i] < wallets[j]
		})
		if len(wallets) > topWalletCount {
			wallets = wallets[:topWalletCount]
		}

		topVolume := decimal.Zero
		for _, wallet := range wallets {
			topVolume = topVolume.Add(volumes[wallet])
		}
		ratio := topVolume.Div(total).InexactFloat64()
		if ratio <= d.threshold {
			continue
		}

		conc := model.VolumeConcentration{
			Token:              token,
			ConcentrationRatio: ratio,
			TopWallets:         wallets,
			TotalVolume:        total,
		}
		for _, t := range tokenTrades {
			conc.Transactions = append(conc.Transactions, t.TxID)
			txs = append(txs, t.TxID)
		}
		conc.Transactions = uniqueSorted(conc.Transactions)
		finding.Concentrations = append(finding.Concentrations, conc)
	}

	finding.Count = len(finding.Concentrations)
	if finding.Count > 0 {
		finding.Severity = model.SeverityMedium
		finding.Transactions = uniqueSorted(txs)
	}

	return finding
}
