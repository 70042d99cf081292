package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity 单个模式的风险等级
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// 模式名称
const (
	PatternSelfTrades          = "self_trades"
	PatternRepeatedPairs       = "repeated_pairs"
	PatternCircularTrading     = "circular_trading"
	PatternTimingPatterns      = "timing_patterns"
	PatternVolumeConcentration = "volume_concentration"
	PatternPriceManipulation   = "price_manipulation"
	PatternNewWalletPatterns   = "new_wallet_patterns"
)

// Finding 单个检测器一次分析的输出，生成后只读。
// 交易只按签名引用，保证Finding可独立序列化。
type Finding struct {
	Pattern      string   `json:"pattern"`
	Count        int      `json:"count"`
	Severity     Severity `json:"severity"`
	Transactions []string `json:"transactions"`
	Wallets      []string `json:"wallets,omitempty"`
	Tokens       []string `json:"tokens,omitempty"`

	// 模式特有明细，只有对应检测器会填充
	Pairs           []RepeatedPair        `json:"pairs,omitempty"`
	Circles         []CircularTrade       `json:"circles,omitempty"`
	TimingAnomalies []TimingAnomaly       `json:"timing_anomalies,omitempty"`
	Concentrations  []VolumeConcentration `json:"concentrations,omitempty"`
	PriceAnomalies  []PriceAnomaly        `json:"price_anomalies,omitempty"`
	WalletActivity  []WalletActivity      `json:"wallet_activity,omitempty"`
}

// RepeatedPair 高频对手方交易对
type RepeatedPair struct {
	Buyer       string          `json:"buyer"`
	Seller      string          `json:"seller"`
	TradeCount  int             `json:"trade_count"`
	TokenCount  int             `json:"token_count"`
	TotalVolume decimal.Decimal `json:"total_volume"`
}

// CircularTrade 两个钱包之间的往返交易。
// round_trips是对手方出现次数的一半(整除)，是启发式近似，
// 不做3个以上钱包的真实环路搜索。
type CircularTrade struct {
	WalletA      string   `json:"wallet_a"`
	WalletB      string   `json:"wallet_b"`
	RoundTrips   int      `json:"round_trips"`
	Transactions []string `json:"transactions"`
}

// TimingAnomaly 某代币交易间隔过于规律
type TimingAnomaly struct {
	Token              string   `json:"token"`
	RegularTrades      int      `json:"regular_trades"`
	TotalTrades        int      `json:"total_trades"`
	AvgIntervalMinutes float64  `json:"avg_interval_minutes"`
	Transactions       []string `json:"transactions"`
}

// VolumeConcentration 某代币交易量被头部钱包垄断
type VolumeConcentration struct {
	Token              string          `json:"token"`
	ConcentrationRatio float64         `json:"concentration_ratio"`
	TopWallets         []string        `json:"top_wallets"`
	TotalVolume        decimal.Decimal `json:"total_volume"`
	Transactions       []string        `json:"transactions"`
}

// PriceAnomaly 某代币连续成交价剧烈波动
type PriceAnomaly struct {
	Token          string   `json:"token"`
	ExtremeChanges int      `json:"extreme_changes"`
	AvgChange      float64  `json:"avg_change"`
	MaxChange      float64  `json:"max_change"`
	Transactions   []string `json:"transactions"`
}

// WalletActivity 低活跃度钱包的画像。没有真实的钱包创建时间，
// 只能用交易数和代币数近似"新钱包"。
type WalletActivity struct {
	Wallet     string     `json:"wallet"`
	TradeCount int        `json:"trade_count"`
	TokenCount int        `json:"token_count"`
	FirstTrade *time.Time `json:"first_trade,omitempty"`
	LastTrade  *time.Time `json:"last_trade,omitempty"`
}
