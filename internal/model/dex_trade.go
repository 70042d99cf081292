package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DexTrade 归一化交易的持久化行
type DexTrade struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:主键"`
	TxID      string `gorm:"column:tx_id;type:varchar(128);uniqueIndex:uk_tx_id;not null;default:'';comment:交易签名"`
	Buyer     string `gorm:"column:buyer;type:varchar(128);index:idx_buyer;not null;default:'';comment:买方钱包地址"`
	Seller    string `gorm:"column:seller;type:varchar(128);index:idx_seller;not null;default:'';comment:卖方钱包地址"`
	TokenMint string `gorm:"column:token_mint;type:varchar(128);index:idx_token_mint;not null;default:'';comment:代币mint地址"`

	BuyAmount    decimal.NullDecimal `gorm:"column:buy_amount;type:decimal(40,18);comment:买入数量"`
	SellAmount   decimal.NullDecimal `gorm:"column:sell_amount;type:decimal(40,18);comment:卖出数量"`
	BuyPriceUSD  decimal.NullDecimal `gorm:"column:buy_price_usd;type:decimal(32,18);comment:买入单价USD"`
	SellPriceUSD decimal.NullDecimal `gorm:"column:sell_price_usd;type:decimal(32,18);comment:卖出单价USD"`

	BlockTime *time.Time `gorm:"column:block_time;index:idx_block_time;comment:链上时间"`

	IsWashTrade *bool `gorm:"column:is_wash_trade;comment:训练标签，分析前为空"`

	CreatedAt *time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (*DexTrade) TableName() string {
	return "dex_trade"
}

// ToTrade 转换为检测引擎的输入行
func (d *DexTrade) ToTrade() *Trade {
	return &Trade{
		TxID:         d.TxID,
		Buyer:        d.Buyer,
		Seller:       d.Seller,
		TokenMint:    d.TokenMint,
		BuyAmount:    d.BuyAmount,
		SellAmount:   d.SellAmount,
		BuyPriceUSD:  d.BuyPriceUSD,
		SellPriceUSD: d.SellPriceUSD,
		BlockTime:    d.BlockTime,
	}
}

// FromTrade 由检测引擎的输入行构建持久化行
func FromTrade(t *Trade) *DexTrade {
	return &DexTrade{
		TxID:         t.TxID,
		Buyer:        t.Buyer,
		Seller:       t.Seller,
		TokenMint:    t.TokenMint,
		BuyAmount:    t.BuyAmount,
		SellAmount:   t.SellAmount,
		BuyPriceUSD:  t.BuyPriceUSD,
		SellPriceUSD: t.SellPriceUSD,
		BlockTime:    t.BlockTime,
	}
}

// WashReport 分析报告的持久化行，明细以JSON保存
type WashReport struct {
	ID                     uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:主键"`
	TotalTradesAnalyzed    int        `gorm:"column:total_trades_analyzed;not null;default:0;comment:分析交易总数"`
	SuspiciousTransactions int        `gorm:"column:suspicious_transactions;not null;default:0;comment:可疑交易数"`
	SuspiciousWallets      int        `gorm:"column:suspicious_wallets;not null;default:0;comment:可疑钱包数"`
	SuspiciousTokens       int        `gorm:"column:suspicious_tokens;not null;default:0;comment:可疑代币数"`
	RiskScore              int        `gorm:"column:risk_score;not null;default:0;comment:风险分"`
	RiskLevel              string     `gorm:"column:risk_level;type:varchar(16);not null;default:'LOW';comment:风险等级"`
	Detail                 string     `gorm:"column:detail;type:longtext;comment:完整报告JSON"`
	CreatedAt              *time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (*WashReport) TableName() string {
	return "wash_report"
}
