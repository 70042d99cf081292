package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade 归一化后的一笔DEX交易，是所有检测器的输入行。
// 归一化完成后不可变，检测器只读。
type Trade struct {
	TxID      string `json:"tx_id"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	TokenMint string `json:"token_mint"`

	// 数值字段从非结构化输入强转而来，转换失败时Valid=false(缺失)，
	// 不会被伪造成0参与聚合计算
	BuyAmount    decimal.NullDecimal `json:"buy_amount"`
	SellAmount   decimal.NullDecimal `json:"sell_amount"`
	BuyPriceUSD  decimal.NullDecimal `json:"buy_price_usd"`
	SellPriceUSD decimal.NullDecimal `json:"sell_price_usd"`

	// BlockTime 缺失时为nil，时间相关检测器自动降级
	BlockTime *time.Time `json:"block_time,omitempty"`
}

// HasBlockTime 是否带有链上时间
func (t *Trade) HasBlockTime() bool {
	return t.BlockTime != nil
}

// IsSelfTrade 买卖双方是否为同一非空钱包
func (t *Trade) IsSelfTrade() bool {
	return t.Buyer != "" && t.Buyer == t.Seller
}

// LabeledTrade 带训练标签的交易，供下游分类器使用
type LabeledTrade struct {
	Trade       *Trade `json:"trade"`
	IsWashTrade bool   `json:"is_wash_trade"`
}
