package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ninja0404/wash-signal/internal/detector"
	"github.com/ninja0404/wash-signal/internal/labeler"
	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/report"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	engine, err := detector.NewEngine(detector.Config{})
	if err != nil {
		t.Fatal(err)
	}
	tradeLabeler, err := labeler.NewLabeler(labeler.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return NewPipeline(Config{}, engine, tradeLabeler)
}

func TestAppendTradeDedupe(t *testing.T) {
	p := newTestPipeline(t)

	p.appendTrade(&model.Trade{TxID: "tx1", Buyer: "a", Seller: "b", TokenMint: "m"})
	p.appendTrade(&model.Trade{TxID: "tx1", Buyer: "a", Seller: "b", TokenMint: "m"})
	p.appendTrade(&model.Trade{TxID: "tx2", Buyer: "a", Seller: "b", TokenMint: "m"})

	if got := len(p.snapshot()); got != 2 {
		t.Errorf("快照行数 = %d, want 2 (重复签名去重)", got)
	}
}

func TestRunAnalysisExportsReport(t *testing.T) {
	p := newTestPipeline(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	p.SetExporter(report.NewExporter(path))

	// 自成交触发HIGH模式
	p.appendTrade(&model.Trade{TxID: "tx1", Buyer: "walletA", Seller: "walletA", TokenMint: "mint1"})
	p.runAnalysis()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result model.AggregateReport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.TotalTradesAnalyzed != 1 {
		t.Errorf("total_trades_analyzed = %d", result.TotalTradesAnalyzed)
	}
	if result.RiskScore != 3 || result.RiskLevel != model.SeverityMedium {
		t.Errorf("1个HIGH模式应得3分MEDIUM: score=%d level=%s", result.RiskScore, result.RiskLevel)
	}
	if len(result.DetailedPatterns) != 7 {
		t.Errorf("报告应包含全部7个模式: %d", len(result.DetailedPatterns))
	}
}

func TestRunAnalysisEmptyTable(t *testing.T) {
	p := newTestPipeline(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	p.SetExporter(report.NewExporter(path))

	p.runAnalysis()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result model.AggregateReport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if result.TotalTradesAnalyzed != 0 || result.RiskLevel != model.SeverityLow {
		t.Errorf("空表应产出零报告LOW: %+v", result)
	}

	stats := p.Stats()
	if stats["analysis_rounds"].(int64) != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
