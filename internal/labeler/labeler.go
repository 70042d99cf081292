package labeler

import (
	"sort"

	"dario.cat/mergo"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Config 标注规则的阈值
type Config struct {
	// RepeatedPairThreshold 同一买卖对的交易数阈值(严格大于)
	RepeatedPairThreshold int `json:"repeated_pair_threshold" yaml:"repeated_pair_threshold"`
	// SpoofingPriceGapUSD 买卖单价差的绝对值阈值(USD)
	SpoofingPriceGapUSD float64 `json:"spoofing_price_gap_usd" yaml:"spoofing_price_gap_usd"`
}

func DefaultConfig() Config {
	return Config{
		RepeatedPairThreshold: 5,
		SpoofingPriceGapUSD:   2.0,
	}
}

func (c *Config) ApplyDefaults() error {
	def := DefaultConfig()
	return mergo.Merge(c, def)
}

// Labeler 用4条简化规则给交易打二值训练标签。
// 规则比检测引擎粗，只产出涉案钱包的并集，凡买方或卖方
// 落在并集内的交易都标为洗盘。
type Labeler struct {
	cfg Config
}

func NewLabeler(cfg Config) (*Labeler, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return &Labeler{cfg: cfg}, nil
}

// Label 标注整张交易表，返回与输入同序的标注行
func (l *Labeler) Label(trades []*model.Trade) []*model.LabeledTrade {
	suspicious := l.suspiciousWallets(trades)

	labeled := make([]*model.LabeledTrade, 0, len(trades))
	washCount := 0
	for _, t := range trades {
		_, buyerHit := suspicious[t.Buyer]
		_, sellerHit := suspicious[t.Seller]
		isWash := buyerHit || sellerHit
		if isWash {
			washCount++
		}
		labeled = append(labeled, &model.LabeledTrade{Trade: t, IsWashTrade: isWash})
	}

	logger.Info("🏷️ 交易标注完成",
		logger.Int("total", len(trades)),
		logger.Int("wash", washCount),
		logger.Int("suspicious_wallets", len(suspicious)))
	return labeled
}

// SuspiciousWallets 返回4条规则命中的钱包并集(已排序)
func (l *Labeler) SuspiciousWallets(trades []*model.Trade) []string {
	set := l.suspiciousWallets(trades)
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (l *Labeler) suspiciousWallets(trades []*model.Trade) map[string]struct{} {
	suspicious := make(map[string]struct{})

	// 规则1: 自成交
	for _, t := range trades {
		if t.IsSelfTrade() {
			suspicious[t.Buyer] = struct{}{}
		}
	}

	// 规则2: 高频买卖对(有序，严格大于阈值)
	pairCounts := make(map[[2]string]int)
	for _, t := range trades {
		pairCounts[[2]string{t.Buyer, t.Seller}]++
	}
	for pair, count := range pairCounts {
		if count > l.cfg.RepeatedPairThreshold {
			suspicious[pair[0]] = struct{}{}
			suspicious[pair[1]] = struct{}{}
		}
	}

	// 规则3: 互刷回环，正反方向的有序对都出现过
	for pair := range pairCounts {
		if pair[0] == pair[1] {
			continue
		}
		if _, ok := pairCounts[[2]string{pair[1], pair[0]}]; ok {
			suspicious[pair[0]] = struct{}{}
			suspicious[pair[1]] = struct{}{}
		}
	}

	// 规则4: 买卖单价差异常(spoofing)，任一单价缺失则跳过
	gap := decimal.NewFromFloat(l.cfg.SpoofingPriceGapUSD)
	for _, t := range trades {
		if !t.BuyPriceUSD.Valid || !t.SellPriceUSD.Valid {
			continue
		}
		diff := t.BuyPriceUSD.Decimal.Sub(t.SellPriceUSD.Decimal).Abs()
		if diff.GreaterThan(gap) {
			suspicious[t.Buyer] = struct{}{}
			suspicious[t.Seller] = struct{}{}
		}
	}

	return suspicious
}
