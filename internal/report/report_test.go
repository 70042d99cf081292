package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ninja0404/wash-signal/internal/model"
)

func finding(pattern string, count int, sev model.Severity, txs, wallets, tokens []string) *model.Finding {
	return &model.Finding{
		Pattern:      pattern,
		Count:        count,
		Severity:     sev,
		Transactions: txs,
		Wallets:      wallets,
		Tokens:       tokens,
	}
}

func TestBuildReportRiskScore(t *testing.T) {
	cases := []struct {
		name      string
		highs     int
		mediums   int
		wantScore int
		wantLevel model.Severity
	}{
		{"no_patterns", 0, 0, 0, model.SeverityLow},
		{"one_high", 1, 0, 3, model.SeverityMedium},
		{"one_medium", 0, 1, 1, model.SeverityLow},
		{"two_highs", 2, 0, 6, model.SeverityHigh},
		{"high_plus_three_mediums", 1, 3, 6, model.SeverityHigh},
		{"three_mediums", 0, 3, 3, model.SeverityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			findings := make(map[string]*model.Finding)
			for i := 0; i < tc.highs; i++ {
				name := fmt.Sprintf("high_%d", i)
				findings[name] = finding(name, 1, model.SeverityHigh, []string{"tx"}, nil, nil)
			}
			for i := 0; i < tc.mediums; i++ {
				name := fmt.Sprintf("medium_%d", i)
				findings[name] = finding(name, 1, model.SeverityMedium, []string{"tx"}, nil, nil)
			}

			r := BuildReport(100, findings)
			if r.RiskScore != tc.wantScore {
				t.Errorf("score = %d, want %d", r.RiskScore, tc.wantScore)
			}
			if r.RiskLevel != tc.wantLevel {
				t.Errorf("level = %s, want %s", r.RiskLevel, tc.wantLevel)
			}
		})
	}
}

func TestBuildReportZeroCountLowIgnored(t *testing.T) {
	// 命中数为0的LOW结果不贡献集合也不计分
	findings := map[string]*model.Finding{
		model.PatternSelfTrades: finding(model.PatternSelfTrades, 0, model.SeverityLow, []string{}, nil, nil),
	}
	r := BuildReport(10, findings)
	if r.RiskScore != 0 || r.RiskLevel != model.SeverityLow {
		t.Errorf("零结果不应计分: score=%d level=%s", r.RiskScore, r.RiskLevel)
	}
	if r.SuspiciousTransactions != 0 {
		t.Errorf("零结果不应贡献可疑集合")
	}
}

func TestBuildReportEmptyTable(t *testing.T) {
	r := BuildReport(0, nil)
	if r.TotalTradesAnalyzed != 0 || r.RiskLevel != model.SeverityLow || r.RiskScore != 0 {
		t.Errorf("空表应产出零报告LOW: %+v", r)
	}
	if r.SuspiciousTxList == nil || r.HighSeverityPatterns == nil {
		t.Errorf("列表字段应为空数组而非nil")
	}
}

func TestBuildReportUnionAndTruncation(t *testing.T) {
	var txs []string
	for i := 0; i < 30; i++ {
		txs = append(txs, fmt.Sprintf("tx%02d", i))
	}
	var wallets []string
	for i := 0; i < 15; i++ {
		wallets = append(wallets, fmt.Sprintf("w%02d", i))
	}
	findings := map[string]*model.Finding{
		model.PatternSelfTrades: finding(model.PatternSelfTrades, 30, model.SeverityHigh, txs, wallets, []string{"mint1"}),
		// 与上面重叠的tx，并集应去重
		model.PatternCircularTrading: finding(model.PatternCircularTrading, 1, model.SeverityHigh, txs[:5], nil, nil),
	}

	r := BuildReport(100, findings)
	if r.SuspiciousTransactions != 30 {
		t.Errorf("并集去重失败: %d", r.SuspiciousTransactions)
	}
	if len(r.SuspiciousTxList) != model.DisplayTxLimit {
		t.Errorf("tx展示列表 = %d, want %d", len(r.SuspiciousTxList), model.DisplayTxLimit)
	}
	if len(r.SuspiciousWalletList) != model.DisplayWalletLimit {
		t.Errorf("wallet展示列表 = %d, want %d", len(r.SuspiciousWalletList), model.DisplayWalletLimit)
	}
	if len(r.AllSuspiciousTxs) != 30 {
		t.Errorf("完整集合被截断: %d", len(r.AllSuspiciousTxs))
	}
	if r.SuspiciousWallets != 15 {
		t.Errorf("计数应基于完整集合: %d", r.SuspiciousWallets)
	}
}

func TestBuildReportIdempotent(t *testing.T) {
	findings := map[string]*model.Finding{
		model.PatternSelfTrades:     finding(model.PatternSelfTrades, 2, model.SeverityHigh, []string{"tx2", "tx1"}, []string{"wB", "wA"}, []string{"mint1"}),
		model.PatternTimingPatterns: finding(model.PatternTimingPatterns, 1, model.SeverityMedium, []string{"tx3"}, nil, nil),
	}

	first, err := Render(BuildReport(50, findings))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Render(BuildReport(50, findings))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("同一输入两次报告不一致")
	}
}

func TestExporterWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "report.json")

	r := BuildReport(5, map[string]*model.Finding{
		model.PatternSelfTrades: finding(model.PatternSelfTrades, 1, model.SeverityHigh, []string{"tx1"}, []string{"wA"}, []string{"mint1"}),
	})
	if err := NewExporter(path).Export(r); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"risk_score": 3`)) {
		t.Errorf("报告内容缺失risk_score: %s", data)
	}
	if !bytes.Contains(data, []byte(`"self_trades"`)) {
		t.Errorf("报告内容缺失模式明细")
	}
}
