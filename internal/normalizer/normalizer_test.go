package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/ninja0404/wash-signal/internal/model"
)

func record(sig, buyer, seller, mint string) model.RawTradeRecord {
	r := model.RawTradeRecord{}
	r.Transaction.Signature = sig
	r.Trade.Buy.Account.Address = buyer
	r.Trade.Sell.Account.Address = seller
	r.Trade.Buy.Currency.MintAddress = mint
	return r
}

func TestNormalizeBasic(t *testing.T) {
	r := record("sig1", "buyerA", "sellerB", "mint1")
	r.Trade.Buy.Amount = "123.45"
	r.Trade.Buy.PriceInUSD = 0.5
	r.Block.Time = "2025-06-01T10:00:00Z"

	trades := Normalize([]model.RawTradeRecord{r})
	if len(trades) != 1 {
		t.Fatalf("len = %d, want 1", len(trades))
	}
	tr := trades[0]
	if tr.TxID != "sig1" || tr.Buyer != "buyerA" || tr.Seller != "sellerB" || tr.TokenMint != "mint1" {
		t.Errorf("标识字段错误: %+v", tr)
	}
	if !tr.BuyAmount.Valid || tr.BuyAmount.Decimal.String() != "123.45" {
		t.Errorf("buy_amount = %+v", tr.BuyAmount)
	}
	if !tr.BuyPriceUSD.Valid {
		t.Errorf("buy_price_usd 应有效")
	}
	if !tr.HasBlockTime() {
		t.Errorf("block_time 应被解析")
	}
}

func TestNormalizeDropsRowsMissingIdentity(t *testing.T) {
	records := []model.RawTradeRecord{
		record("sig1", "", "sellerB", "mint1"),
		record("sig2", "buyerA", "", "mint1"),
		record("sig3", "buyerA", "sellerB", ""),
		record("sig4", "buyerA", "sellerB", "mint1"),
	}
	trades := Normalize(records)
	if len(trades) != 1 || trades[0].TxID != "sig4" {
		t.Errorf("只应保留完整行: %d", len(trades))
	}
}

func TestNormalizeMalformedNumericIsMissing(t *testing.T) {
	r := record("sig1", "buyerA", "sellerB", "mint1")
	r.Trade.Buy.Amount = "not-a-number"
	r.Trade.Sell.Amount = nil
	r.Trade.Buy.PriceInUSD = json.Number("7.25")

	trades := Normalize([]model.RawTradeRecord{r})
	if len(trades) != 1 {
		t.Fatalf("损坏的数值不应导致整行丢弃")
	}
	tr := trades[0]
	if tr.BuyAmount.Valid {
		t.Errorf("损坏的数值应标记为缺失而不是0")
	}
	if tr.SellAmount.Valid {
		t.Errorf("null数值应为缺失")
	}
	if !tr.BuyPriceUSD.Valid || tr.BuyPriceUSD.Decimal.String() != "7.25" {
		t.Errorf("json.Number应被强转: %+v", tr.BuyPriceUSD)
	}
}

func TestNormalizeBlockTimeFormats(t *testing.T) {
	cases := []struct {
		raw    string
		parsed bool
	}{
		{"2025-06-01T10:00:00Z", true},
		{"2025-06-01 10:00:00", true},
		{"2025-06-01T10:00:00", true},
		{"garbage", false},
		{"", false},
	}
	for _, tc := range cases {
		r := record("sig", "buyerA", "sellerB", "mint1")
		r.Block.Time = tc.raw
		trades := Normalize([]model.RawTradeRecord{r})
		if len(trades) != 1 {
			t.Fatalf("时间解析失败不应丢行: %q", tc.raw)
		}
		if trades[0].HasBlockTime() != tc.parsed {
			t.Errorf("block_time %q: parsed = %v, want %v", tc.raw, trades[0].HasBlockTime(), tc.parsed)
		}
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize(nil); len(got) != 0 {
		t.Errorf("空输入应返回空表")
	}
}
