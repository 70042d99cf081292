package model

// 展示列表的截断长度，完整集合保留在内存字段中
const (
	DisplayTxLimit     = 20
	DisplayWalletLimit = 10
	DisplayTokenLimit  = 5
)

// AggregateReport 一次完整分析的汇总结果，构建后不可变
type AggregateReport struct {
	TotalTradesAnalyzed    int `json:"total_trades_analyzed"`
	SuspiciousTransactions int `json:"suspicious_transactions"`
	SuspiciousWallets      int `json:"suspicious_wallets"`
	SuspiciousTokens       int `json:"suspicious_tokens"`

	HighSeverityPatterns   []string `json:"high_severity_patterns"`
	MediumSeverityPatterns []string `json:"medium_severity_patterns"`

	RiskScore int      `json:"risk_score"`
	RiskLevel Severity `json:"risk_level"`

	// 截断后的展示列表
	SuspiciousTxList     []string `json:"suspicious_tx_list"`
	SuspiciousWalletList []string `json:"suspicious_wallet_list"`
	SuspiciousTokenList  []string `json:"suspicious_token_list"`

	DetailedPatterns map[string]*Finding `json:"detailed_patterns"`

	// 完整去重集合（已排序），不参与序列化
	AllSuspiciousTxs     []string `json:"-"`
	AllSuspiciousWallets []string `json:"-"`
	AllSuspiciousTokens  []string `json:"-"`
}
