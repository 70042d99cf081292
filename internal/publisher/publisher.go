package publisher

import (
	"sync"
	"time"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Publisher 报告发布器接口
type Publisher interface {
	// Publish 发布分析报告
	Publish(report *model.AggregateReport) error

	// GetType 获取发布器类型
	GetType() string

	// Close 关闭发布器
	Close() error
}

// Config 发布管理器配置
type Config struct {
	// FeishuWebhookURL 为空时不启用飞书发布
	FeishuWebhookURL string `json:"feishu_webhook_url" yaml:"feishu_webhook_url"`
	// Cooldown 同一风险等级的报告在冷却期内只发一次
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

// Manager 报告发布管理器。
// 周期性分析会反复产出相似结论，按风险等级做冷却去重，
// 避免轰炸告警群。
type Manager struct {
	publishers []Publisher
	cooldown   time.Duration

	sentLevels map[model.Severity]time.Time
	mutex      sync.Mutex
}

// NewManager 创建发布管理器并注册默认发布器
func NewManager(cfg Config) *Manager {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Hour
	}

	m := &Manager{
		publishers: make([]Publisher, 0),
		cooldown:   cooldown,
		sentLevels: make(map[model.Severity]time.Time),
	}

	m.AddPublisher(&LogPublisher{})
	if cfg.FeishuWebhookURL != "" {
		m.AddPublisher(NewFeishuPublisher(cfg.FeishuWebhookURL))
	} else {
		logger.Warn("⚠️ 飞书发布器缺少webhook URL配置，仅启用日志发布")
	}

	return m
}

// AddPublisher 添加发布器
func (m *Manager) AddPublisher(publisher Publisher) {
	m.publishers = append(m.publishers, publisher)
}

// PublishReport 发布报告到所有发布器。
// LOW报告只走日志发布器，MEDIUM及以上才推送外部渠道。
func (m *Manager) PublishReport(report *model.AggregateReport) {
	for _, p := range m.publishers {
		if p.GetType() != "log" {
			if report.RiskLevel == model.SeverityLow {
				continue
			}
			if !m.shouldSend(report.RiskLevel) {
				logger.Debug("⏭️ 报告在冷却期内，跳过外部推送",
					logger.String("risk_level", string(report.RiskLevel)),
					logger.String("publisher", p.GetType()))
				continue
			}
		}

		if err := p.Publish(report); err != nil {
			logger.Error("❌ 报告发布失败",
				logger.String("publisher", p.GetType()),
				logger.FieldErr(err))
			continue
		}
		if p.GetType() != "log" {
			m.recordSent(report.RiskLevel)
		}
	}
}

// Close 关闭所有发布器
func (m *Manager) Close() error {
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			logger.Error("关闭发布器失败",
				logger.String("publisher", p.GetType()),
				logger.FieldErr(err))
		}
	}
	return nil
}

func (m *Manager) shouldSend(level model.Severity) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if lastSent, exists := m.sentLevels[level]; exists {
		if time.Since(lastSent) < m.cooldown {
			return false
		}
	}
	return true
}

func (m *Manager) recordSent(level model.Severity) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sentLevels[level] = time.Now()
}

// LogPublisher 把报告摘要写进结构化日志
type LogPublisher struct{}

func (p *LogPublisher) GetType() string {
	return "log"
}

func (p *LogPublisher) Publish(report *model.AggregateReport) error {
	logger.Info("📊 洗盘分析报告",
		logger.Int("total_trades", report.TotalTradesAnalyzed),
		logger.Int("suspicious_txs", report.SuspiciousTransactions),
		logger.Int("suspicious_wallets", report.SuspiciousWallets),
		logger.Int("suspicious_tokens", report.SuspiciousTokens),
		logger.Int("risk_score", report.RiskScore),
		logger.String("risk_level", string(report.RiskLevel)),
		logger.Any("high_patterns", report.HighSeverityPatterns),
		logger.Any("medium_patterns", report.MediumSeverityPatterns))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
