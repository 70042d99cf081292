package labeler

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/wash-signal/internal/model"
)

func d(v string) decimal.NullDecimal {
	dec, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: dec, Valid: true}
}

func mkTrade(tx, buyer, seller string) *model.Trade {
	return &model.Trade{TxID: tx, Buyer: buyer, Seller: seller, TokenMint: "mint1"}
}

func newLabeler(t *testing.T) *Labeler {
	t.Helper()
	l, err := NewLabeler(Config{})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLabelSelfTrade(t *testing.T) {
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletA"),
		mkTrade("tx2", "walletB", "walletC"),
	}
	labeled := newLabeler(t).Label(trades)
	if !labeled[0].IsWashTrade {
		t.Error("自成交应被标注")
	}
	if labeled[1].IsWashTrade {
		t.Error("无关交易不应被标注")
	}
}

func TestLabelRepeatedPairStrict(t *testing.T) {
	l := newLabeler(t)

	var trades []*model.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), "walletA", "walletB"))
	}
	if got := l.SuspiciousWallets(trades); len(got) != 0 {
		t.Errorf("恰好5笔不应命中: %v", got)
	}

	trades = append(trades, mkTrade("tx5", "walletA", "walletB"))
	got := l.SuspiciousWallets(trades)
	if len(got) != 2 || got[0] != "walletA" || got[1] != "walletB" {
		t.Errorf("6笔应命中双方: %v", got)
	}
}

func TestLabelReciprocalLoop(t *testing.T) {
	// 一来一回各1笔即构成回环，不看次数
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletB"),
		mkTrade("tx2", "walletB", "walletA"),
		mkTrade("tx3", "walletC", "walletD"),
	}
	got := newLabeler(t).SuspiciousWallets(trades)
	if len(got) != 2 || got[0] != "walletA" || got[1] != "walletB" {
		t.Errorf("回环应只命中A和B: %v", got)
	}
}

func TestLabelSpoofingGap(t *testing.T) {
	l := newLabeler(t)

	wide := mkTrade("tx1", "walletA", "walletB")
	wide.BuyPriceUSD = d("5")
	wide.SellPriceUSD = d("1")

	narrow := mkTrade("tx2", "walletC", "walletD")
	narrow.BuyPriceUSD = d("3")
	narrow.SellPriceUSD = d("2")

	// 单价缺失的行跳过规则
	missing := mkTrade("tx3", "walletE", "walletF")
	missing.BuyPriceUSD = d("100")

	got := l.SuspiciousWallets([]*model.Trade{wide, narrow, missing})
	if len(got) != 2 || got[0] != "walletA" || got[1] != "walletB" {
		t.Errorf("只有价差超过2USD的交易命中: %v", got)
	}
}

func TestLabelPreservesOrderAndLength(t *testing.T) {
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletB"),
		mkTrade("tx2", "walletC", "walletC"),
		mkTrade("tx3", "walletD", "walletE"),
	}
	labeled := newLabeler(t).Label(trades)
	if len(labeled) != len(trades) {
		t.Fatalf("标注行数 = %d, want %d", len(labeled), len(trades))
	}
	for i := range trades {
		if labeled[i].Trade.TxID != trades[i].TxID {
			t.Errorf("标注行顺序与输入不一致")
		}
	}
}

func TestLabelEmptyTable(t *testing.T) {
	labeled := newLabeler(t).Label(nil)
	if len(labeled) != 0 {
		t.Errorf("空表应返回空结果")
	}
}
