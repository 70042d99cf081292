package normalizer

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Normalize 将原始嵌套交易记录拍平为类型化的Trade表。
// 缺失字段按默认值策略补齐(地址/ID为空串，数值为缺失)，
// 买方/卖方/代币为空的行在数值强转之后才丢弃，
// 保证单个价格字段损坏不会让地址类检测器丢数据。
func Normalize(records []model.RawTradeRecord) []*model.Trade {
	trades := make([]*model.Trade, 0, len(records))
	dropped := 0

	for i := range records {
		r := &records[i]

		trade := &model.Trade{
			TxID:         r.Transaction.Signature,
			Buyer:        r.Trade.Buy.Account.Address,
			Seller:       r.Trade.Sell.Account.Address,
			TokenMint:    r.Trade.Buy.Currency.MintAddress,
			BuyAmount:    coerceDecimal(r.Trade.Buy.Amount),
			SellAmount:   coerceDecimal(r.Trade.Sell.Amount),
			BuyPriceUSD:  coerceDecimal(r.Trade.Buy.PriceInUSD),
			SellPriceUSD: coerceDecimal(r.Trade.Sell.PriceInUSD),
			BlockTime:    parseBlockTime(r.Block.Time),
		}

		// 关键标识缺失的行无法参与任何模式匹配
		if trade.Buyer == "" || trade.Seller == "" || trade.TokenMint == "" {
			dropped++
			continue
		}

		checkAddress(trade.Buyer, "buyer")
		checkAddress(trade.Seller, "seller")

		trades = append(trades, trade)
	}

	if dropped > 0 {
		logger.Debug("🧹 丢弃缺失关键字段的交易记录",
			logger.Int("dropped", dropped),
			logger.Int("kept", len(trades)))
	}

	return trades
}

// coerceDecimal 将非类型化数值强转为NullDecimal。
// 支持字符串、浮点、整数和json.Number，失败视为缺失而不是0。
func coerceDecimal(v interface{}) decimal.NullDecimal {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}
	case float64:
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(n), Valid: true}
	case int:
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(int64(n)), Valid: true}
	case int64:
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(n), Valid: true}
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}
	default:
		return decimal.NullDecimal{}
	}
}

// 链上时间的常见格式
var blockTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseBlockTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range blockTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// checkAddress base58校验只做告警，不改变行的去留
func checkAddress(addr string, role string) {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		logger.Debug("⚠️ 非法的Solana地址",
			logger.String("role", role),
			logger.FieldWallet(addr))
	}
}
