package detector

import (
	"sort"

	"dario.cat/mergo"

	"github.com/ninja0404/wash-signal/internal/model"
)

// Detector 洗盘模式检测器接口。
// 每个检测器都是交易表到Finding的纯函数，不读写共享状态，
// 因此可以任意顺序或并行执行。
type Detector interface {
	// Name 模式名称
	Name() string

	// Detect 在不可变的交易表上检测模式
	Detect(trades []*model.Trade) *model.Finding
}

// Config 所有检测器的阈值配置
type Config struct {
	// RepeatedPairThreshold 同一买卖对被标记所需的最低交易数(严格大于)
	RepeatedPairThreshold int `json:"repeated_pair_threshold" yaml:"repeated_pair_threshold"`
	// CircularMinOccurrences 两个钱包互为对手方的最低出现次数
	CircularMinOccurrences int `json:"circular_min_occurrences" yaml:"circular_min_occurrences"`
	// TimingWindowMinutes 规律交易的时间间隔上限(分钟)
	TimingWindowMinutes float64 `json:"timing_window_minutes" yaml:"timing_window_minutes"`
	// TimingRegularRatio 规律交易占比阈值
	TimingRegularRatio float64 `json:"timing_regular_ratio" yaml:"timing_regular_ratio"`
	// TimingMinTrades 参与时间分析的代币最低交易数
	TimingMinTrades int `json:"timing_min_trades" yaml:"timing_min_trades"`
	// VolumeConcentrationThreshold 头部3个钱包的交易量占比阈值
	VolumeConcentrationThreshold float64 `json:"volume_concentration_threshold" yaml:"volume_concentration_threshold"`
	// VolumeMinTrades 参与集中度分析的代币最低交易数
	VolumeMinTrades int `json:"volume_min_trades" yaml:"volume_min_trades"`
	// PriceDeviationThreshold 相邻成交价的剧烈波动阈值(0.5即50%)
	PriceDeviationThreshold float64 `json:"price_deviation_threshold" yaml:"price_deviation_threshold"`
	// PriceExtremeRatio 剧烈波动占比阈值
	PriceExtremeRatio float64 `json:"price_extreme_ratio" yaml:"price_extreme_ratio"`
	// PriceMinTrades 参与价格分析的代币最低交易数
	PriceMinTrades int `json:"price_min_trades" yaml:"price_min_trades"`
	// NewWalletMaxTrades 低活跃钱包的交易数上限
	NewWalletMaxTrades int `json:"new_wallet_max_trades" yaml:"new_wallet_max_trades"`
	// NewWalletMaxTokens 低活跃钱包的代币数上限
	NewWalletMaxTokens int `json:"new_wallet_max_tokens" yaml:"new_wallet_max_tokens"`
}

// DefaultConfig 默认阈值
func DefaultConfig() Config {
	return Config{
		RepeatedPairThreshold:        5,
		CircularMinOccurrences:       4,
		TimingWindowMinutes:          5,
		TimingRegularRatio:           0.3,
		TimingMinTrades:              5,
		VolumeConcentrationThreshold: 0.8,
		VolumeMinTrades:              10,
		PriceDeviationThreshold:      0.5,
		PriceExtremeRatio:            0.2,
		PriceMinTrades:               5,
		NewWalletMaxTrades:           10,
		NewWalletMaxTokens:           2,
	}
}

// ApplyDefaults 用默认值补齐未配置的阈值
func (c *Config) ApplyDefaults() error {
	def := DefaultConfig()
	return mergo.Merge(c, def)
}

// uniqueSorted 去重并排序，保证多次分析输出字节一致
func uniqueSorted(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// tokenOrder 按首次出现顺序收集代币，保证逐代币分析的确定性
func tokenOrder(trades []*model.Trade) []string {
	seen := make(map[string]struct{})
	order := make([]string, 0)
	for _, t := range trades {
		if t.TokenMint == "" {
			continue
		}
		if _, ok := seen[t.TokenMint]; ok {
			continue
		}
		seen[t.TokenMint] = struct{}{}
		order = append(order, t.TokenMint)
	}
	return order
}

// stableSortByTime 按链上时间原地稳定排序，无时间戳的行排在最前
func stableSortByTime(trades []*model.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		ti, tj := trades[i].BlockTime, trades[j].BlockTime
		if ti == nil {
			return tj != nil
		}
		if tj == nil {
			return false
		}
		return ti.Before(*tj)
	})
}

// groupByToken 按代币分组，保持行的原始顺序
func groupByToken(trades []*model.Trade) map[string][]*model.Trade {
	groups := make(map[string][]*model.Trade)
	for _, t := range trades {
		if t.TokenMint == "" {
			continue
		}
		groups[t.TokenMint] = append(groups[t.TokenMint], t)
	}
	return groups
}
