package detector

import (
	"fmt"
	"testing"
	"time"

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

func ts(minute int) *time.Time {
	t := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(minute) * time.Minute)
	return &t
}

func mkTrade(tx, buyer, seller, token string) *model.Trade {
	return &model.Trade{
		TxID:      tx,
		Buyer:     buyer,
		Seller:    seller,
		TokenMint: token,
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{RepeatedPairThreshold: 9}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.RepeatedPairThreshold != 9 {
		t.Errorf("用户配置被默认值覆盖: %d", cfg.RepeatedPairThreshold)
	}
	if cfg.VolumeMinTrades != 10 || cfg.TimingWindowMinutes != 5 {
		t.Errorf("默认值未补齐: %+v", cfg)
	}
}

func TestSelfTradeDetector(t *testing.T) {
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletA", "mint1"),
		mkTrade("tx2", "walletA", "walletB", "mint1"),
		mkTrade("tx3", "walletC", "walletC", "mint2"),
	}

	f := NewSelfTradeDetector().Detect(trades)
	if f.Count != 2 {
		t.Fatalf("自成交数 = %d, want 2", f.Count)
	}
	if f.Severity != model.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", f.Severity)
	}
	if len(f.Wallets) != 2 || f.Wallets[0] != "walletA" || f.Wallets[1] != "walletC" {
		t.Errorf("wallets = %v", f.Wallets)
	}
	if len(f.Tokens) != 2 {
		t.Errorf("tokens = %v", f.Tokens)
	}
}

func TestSelfTradeDetectorEmpty(t *testing.T) {
	f := NewSelfTradeDetector().Detect(nil)
	if f.Count != 0 || f.Severity != model.SeverityLow {
		t.Errorf("空输入应为零结果LOW: %+v", f)
	}
	if f.Transactions == nil || len(f.Transactions) != 0 {
		t.Errorf("transactions应为空数组而非nil")
	}
}

func TestRepeatedPairThresholdIsStrict(t *testing.T) {
	det := NewRepeatedPairDetector(DefaultConfig())

	// 恰好等于阈值5笔，不触发
	var trades []*model.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), "walletA", "walletB", "mint1"))
	}
	f := det.Detect(trades)
	if f.Count != 0 {
		t.Fatalf("恰好5笔不应触发, count = %d", f.Count)
	}

	// 第6笔触发
	trades = append(trades, mkTrade("tx5", "walletA", "walletB", "mint2"))
	f = det.Detect(trades)
	if f.Count != 1 || f.Severity != model.SeverityHigh {
		t.Fatalf("6笔应触发HIGH: %+v", f)
	}
	if f.Pairs[0].TradeCount != 6 || f.Pairs[0].TokenCount != 2 {
		t.Errorf("pair明细错误: %+v", f.Pairs[0])
	}
}

func TestRepeatedPairIsOrdered(t *testing.T) {
	// 3笔(A买,B卖)加3笔(B买,A卖)，有序对各3笔，都不过阈值
	var trades []*model.Trade
	for i := 0; i < 3; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("ab%d", i), "walletA", "walletB", "mint1"))
		trades = append(trades, mkTrade(fmt.Sprintf("ba%d", i), "walletB", "walletA", "mint1"))
	}
	f := NewRepeatedPairDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("方向不同的交易对不应合并计数, count = %d", f.Count)
	}
}

func TestCircularDetectorRoundTrips(t *testing.T) {
	// A和B互为对手方4次，无序对计数4，round_trips = 2
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletB", "mint1"),
		mkTrade("tx2", "walletB", "walletA", "mint1"),
		mkTrade("tx3", "walletA", "walletB", "mint1"),
		mkTrade("tx4", "walletB", "walletA", "mint1"),
	}
	f := NewCircularDetector(DefaultConfig()).Detect(trades)
	if f.Count != 1 || f.Severity != model.SeverityHigh {
		t.Fatalf("4次往返应触发: %+v", f)
	}
	c := f.Circles[0]
	if c.RoundTrips != 2 {
		t.Errorf("round_trips = %d, want 2", c.RoundTrips)
	}
	if c.WalletA != "walletA" || c.WalletB != "walletB" {
		t.Errorf("无序对未规范化: %+v", c)
	}
}

func TestCircularDetectorBelowThreshold(t *testing.T) {
	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletB", "mint1"),
		mkTrade("tx2", "walletB", "walletA", "mint1"),
		mkTrade("tx3", "walletA", "walletB", "mint1"),
	}
	f := NewCircularDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("3次不应触发, count = %d", f.Count)
	}
}

func TestTimingDetectorRegularIntervals(t *testing.T) {
	// 6笔间隔2分钟的交易，5个规律间隔 > 0.3*6
	var trades []*model.Trade
	for i := 0; i < 6; i++ {
		tr := mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("w%d", i), "seller", "mint1")
		tr.BlockTime = ts(i * 2)
		trades = append(trades, tr)
	}
	f := NewTimingDetector(DefaultConfig()).Detect(trades)
	if f.Count != 1 || f.Severity != model.SeverityMedium {
		t.Fatalf("规律间隔应触发MEDIUM: %+v", f)
	}
	a := f.TimingAnomalies[0]
	if a.RegularTrades != 5 || a.TotalTrades != 6 {
		t.Errorf("anomaly = %+v", a)
	}
	if a.AvgIntervalMinutes < 1.99 || a.AvgIntervalMinutes > 2.01 {
		t.Errorf("avg interval = %f, want 2", a.AvgIntervalMinutes)
	}
}

func TestTimingDetectorZeroDeltaExcluded(t *testing.T) {
	// 同一时刻的交易间隔为0，不算规律
	var trades []*model.Trade
	for i := 0; i < 6; i++ {
		tr := mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("w%d", i), "seller", "mint1")
		tr.BlockTime = ts(0)
		trades = append(trades, tr)
	}
	f := NewTimingDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("0间隔不应触发, count = %d", f.Count)
	}
}

func TestTimingDetectorNoTimestamps(t *testing.T) {
	var trades []*model.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), "walletA", "walletB", "mint1"))
	}
	f := NewTimingDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 || f.Severity != model.SeverityLow {
		t.Errorf("全表无时间戳应为零结果LOW: %+v", f)
	}
}

func TestVolumeDetectorConcentration(t *testing.T) {
	// 10笔交易，头部买方占90%
	var trades []*model.Trade
	for i := 0; i < 9; i++ {
		tr := mkTrade(fmt.Sprintf("big%d", i), "whale", "seller", "mint1")
		tr.BuyAmount = d("100")
		trades = append(trades, tr)
	}
	small := mkTrade("small", "shrimp", "seller", "mint1")
	small.BuyAmount = d("100")
	trades = append(trades, small)

	f := NewVolumeDetector(DefaultConfig()).Detect(trades)
	if f.Count != 1 || f.Severity != model.SeverityMedium {
		t.Fatalf("90%%集中度应触发MEDIUM: %+v", f)
	}
	c := f.Concentrations[0]
	if c.ConcentrationRatio != 1.0 {
		t.Errorf("ratio = %f, want 1.0 (头部3个钱包覆盖全部)", c.ConcentrationRatio)
	}
	if c.TopWallets[0] != "whale" {
		t.Errorf("top wallets = %v", c.TopWallets)
	}
}

func TestVolumeDetectorMissingAmounts(t *testing.T) {
	// 全部数量缺失时总量为0，直接跳过不除零
	var trades []*model.Trade
	for i := 0; i < 12; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("w%d", i), "seller", "mint1"))
	}
	f := NewVolumeDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("零总量应跳过, count = %d", f.Count)
	}
}

func TestVolumeDetectorBelowMinTrades(t *testing.T) {
	var trades []*model.Trade
	for i := 0; i < 9; i++ {
		tr := mkTrade(fmt.Sprintf("tx%d", i), "whale", "seller", "mint1")
		tr.BuyAmount = d("100")
		trades = append(trades, tr)
	}
	f := NewVolumeDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("不足10笔应跳过, count = %d", f.Count)
	}
}

func TestPriceDetectorExtremeSwings(t *testing.T) {
	// 价格1 → 3 → 1 → 3 → 1，4个变化率(2.0和0.67)全部超过50%
	prices := []string{"1", "3", "1", "3", "1"}
	var trades []*model.Trade
	for i, p := range prices {
		tr := mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("w%d", i), "seller", "mint1")
		tr.BuyPriceUSD = d(p)
		tr.BlockTime = ts(i)
		trades = append(trades, tr)
	}
	f := NewPriceDetector(DefaultConfig()).Detect(trades)
	if f.Count != 1 || f.Severity != model.SeverityHigh {
		t.Fatalf("剧烈波动应触发HIGH: %+v", f)
	}
	a := f.PriceAnomalies[0]
	if a.ExtremeChanges != 4 {
		t.Errorf("extreme = %d, want 4", a.ExtremeChanges)
	}
	if a.MaxChange != 2.0 {
		t.Errorf("max change = %f, want 2.0", a.MaxChange)
	}
}

func TestPriceDetectorThresholdIsStrict(t *testing.T) {
	// 1→2的涨幅1.0超过阈值，2→1的跌幅恰好0.5不算剧烈
	prices := []string{"1", "2", "1", "2", "1"}
	var trades []*model.Trade
	for i, p := range prices {
		tr := mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("w%d", i), "seller", "mint1")
		tr.BuyPriceUSD = d(p)
		tr.BlockTime = ts(i)
		trades = append(trades, tr)
	}
	f := NewPriceDetector(DefaultConfig()).Detect(trades)
	if f.Count != 1 {
		t.Fatalf("2个剧烈变化仍超过20%%占比，应触发: %+v", f)
	}
	if got := f.PriceAnomalies[0].ExtremeChanges; got != 2 {
		t.Errorf("extreme = %d, want 2 (恰好等于阈值的变化不计)", got)
	}
}

func TestPriceDetectorIgnoresNonPositive(t *testing.T) {
	// 0价和缺失价的行不参与，有效行不足5笔直接跳过
	var trades []*model.Trade
	for i := 0; i < 4; i++ {
		tr := mkTrade(fmt.Sprintf("tx%d", i), "walletA", "seller", "mint1")
		tr.BuyPriceUSD = d("1")
		trades = append(trades, tr)
	}
	zero := mkTrade("zero", "walletA", "seller", "mint1")
	zero.BuyPriceUSD = d("0")
	trades = append(trades, zero)
	trades = append(trades, mkTrade("missing", "walletA", "seller", "mint1"))

	f := NewPriceDetector(DefaultConfig()).Detect(trades)
	if f.Count != 0 {
		t.Errorf("有效价不足5笔应跳过, count = %d", f.Count)
	}
}

func TestNewWalletDetector(t *testing.T) {
	// 6个买方各1笔交易1个代币 → 6个低活跃钱包 → MEDIUM
	var trades []*model.Trade
	for i := 0; i < 6; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), fmt.Sprintf("fresh%d", i), "seller", "mint1"))
	}
	f := NewNewWalletDetector(DefaultConfig()).Detect(trades)
	if f.Count != 6 || f.Severity != model.SeverityMedium {
		t.Fatalf("6个低活跃钱包应为MEDIUM: %+v", f)
	}

	// 5个及以下保持LOW
	f = NewNewWalletDetector(DefaultConfig()).Detect(trades[:5])
	if f.Count != 5 || f.Severity != model.SeverityLow {
		t.Errorf("5个低活跃钱包应为LOW: %+v", f)
	}
}

func TestNewWalletDetectorActiveWalletExcluded(t *testing.T) {
	// 11笔交易的买方超过上限，不标记
	var trades []*model.Trade
	for i := 0; i < 11; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tx%d", i), "active", "seller", "mint1"))
	}
	// 碰了3个代币的买方也不标记
	for i := 0; i < 3; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("tok%d", i), "diverse", "seller", fmt.Sprintf("mint%d", i)))
	}
	f := NewNewWalletDetector(DefaultConfig()).Detect(trades)
	for _, w := range f.Wallets {
		if w == "active" || w == "diverse" {
			t.Errorf("高活跃钱包被误标记: %s", w)
		}
	}
}

func TestEngineRunsAllDetectors(t *testing.T) {
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatal(err)
	}

	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletA", "mint1"),
	}
	findings, err := engine.Run(trades)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 7 {
		t.Fatalf("findings数 = %d, want 7", len(findings))
	}
	for _, name := range []string{
		model.PatternSelfTrades,
		model.PatternRepeatedPairs,
		model.PatternCircularTrading,
		model.PatternTimingPatterns,
		model.PatternVolumeConcentration,
		model.PatternPriceManipulation,
		model.PatternNewWalletPatterns,
	} {
		f, ok := findings[name]
		if !ok {
			t.Fatalf("缺少模式 %s", name)
		}
		if f.Pattern != name {
			t.Errorf("pattern字段不一致: %s vs %s", f.Pattern, name)
		}
	}
	if findings[model.PatternSelfTrades].Severity != model.SeverityHigh {
		t.Errorf("自成交应为HIGH")
	}
}

type panicDetector struct{}

func (panicDetector) Name() string { return "panic_pattern" }

func (panicDetector) Detect([]*model.Trade) *model.Finding {
	panic("boom")
}

func TestEnginePanicIsolated(t *testing.T) {
	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatal(err)
	}
	engine.detectors = append(engine.detectors, panicDetector{})

	trades := []*model.Trade{
		mkTrade("tx1", "walletA", "walletA", "mint1"),
	}
	findings, err := engine.Run(trades)
	if err == nil {
		t.Fatal("panic检测器应返回聚合错误")
	}
	if len(findings) != 8 {
		t.Fatalf("findings数 = %d, want 8", len(findings))
	}
	broken := findings["panic_pattern"]
	if broken == nil || broken.Count != 0 || broken.Severity != model.SeverityLow {
		t.Errorf("崩溃检测器应降级为零结果: %+v", broken)
	}
	if findings[model.PatternSelfTrades].Count != 1 {
		t.Errorf("其他检测器不应受影响")
	}
}

func TestDetectorsAreDeterministic(t *testing.T) {
	var trades []*model.Trade
	for i := 0; i < 8; i++ {
		tr := mkTrade(fmt.Sprintf("tx%d", i), "walletA", "walletB", "mint1")
		tr.BuyAmount = d("10")
		tr.BuyPriceUSD = d(fmt.Sprintf("%d", i+1))
		tr.BlockTime = ts(i)
		trades = append(trades, tr)
	}

	engine, err := NewEngine(Config{})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := engine.Run(trades)
	second, _ := engine.Run(trades)

	for name, f1 := range first {
		f2 := second[name]
		if f1.Count != f2.Count || f1.Severity != f2.Severity {
			t.Errorf("%s 两次结果不一致", name)
		}
		if len(f1.Transactions) != len(f2.Transactions) {
			t.Errorf("%s tx列表长度不一致", name)
			continue
		}
		for i := range f1.Transactions {
			if f1.Transactions[i] != f2.Transactions[i] {
				t.Errorf("%s tx列表顺序不一致", name)
				break
			}
		}
	}
}
