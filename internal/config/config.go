package config

import (
	"time"

	"github.com/ninja0404/wash-signal/internal/detector"
	"github.com/ninja0404/wash-signal/internal/labeler"
	"github.com/ninja0404/wash-signal/internal/pipeline"
	"github.com/ninja0404/wash-signal/internal/publisher"
	"github.com/ninja0404/wash-signal/internal/source/bitquery"
	"github.com/ninja0404/wash-signal/internal/source/database"
	ksource "github.com/ninja0404/wash-signal/internal/source/kafka"
	"github.com/ninja0404/wash-signal/pkg/config"
	"github.com/ninja0404/wash-signal/pkg/config/source/file"
	"github.com/ninja0404/wash-signal/pkg/logger"
	"github.com/ninja0404/wash-signal/pkg/mq/kafka"
)

// AppConfig 应用配置结构。时间类字段统一用秒/分钟的整数表达，
// 在构造组件时再转成Duration。
type AppConfig struct {
	Sources   SourcesConfig   `yaml:"sources" json:"sources"`
	Detector  detector.Config `yaml:"detector" json:"detector"`
	Labeler   labeler.Config  `yaml:"labeler" json:"labeler"`
	Report    ReportConfig    `yaml:"report" json:"report"`
	Publisher PublisherConfig `yaml:"publisher" json:"publisher"`
	Analysis  AnalysisConfig  `yaml:"analysis" json:"analysis"`
}

// SourcesConfig 数据源开关与配置
type SourcesConfig struct {
	Bitquery BitquerySourceConfig `yaml:"bitquery" json:"bitquery"`
	Kafka    KafkaSourceConfig    `yaml:"kafka" json:"kafka"`
	Database DatabaseSourceConfig `yaml:"database" json:"database"`
}

// BitquerySourceConfig Bitquery数据源配置
type BitquerySourceConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	PollIntervalSec int    `yaml:"poll_interval" json:"poll_interval"` // 秒
	BatchLimit      int    `yaml:"batch_limit" json:"batch_limit"`
	TimeoutSec      int    `yaml:"timeout" json:"timeout"` // 秒
}

// ToSourceConfig 转换为数据源组件配置
func (c BitquerySourceConfig) ToSourceConfig() bitquery.SourceConfig {
	return bitquery.SourceConfig{
		Endpoint:     c.Endpoint,
		PollInterval: time.Duration(c.PollIntervalSec) * time.Second,
		BatchLimit:   c.BatchLimit,
		Timeout:      time.Duration(c.TimeoutSec) * time.Second,
	}
}

// KafkaSourceConfig Kafka数据源配置
type KafkaSourceConfig struct {
	Enabled  bool                      `yaml:"enabled" json:"enabled"`
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Consumer kafka.KafkaConsumerConfig `yaml:"consumer" json:"consumer"`
}

// ToSourceConfig 转换为数据源组件配置
func (c KafkaSourceConfig) ToSourceConfig() ksource.SourceConfig {
	return ksource.SourceConfig{
		Brokers:  c.Brokers,
		Topic:    c.Topic,
		Consumer: c.Consumer,
	}
}

// DatabaseSourceConfig 数据库数据源配置
type DatabaseSourceConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	QueryIntervalSec  int  `yaml:"query_interval" json:"query_interval"` // 秒
	InitWindowMinutes int  `yaml:"init_window_minutes" json:"init_window_minutes"`
	BatchSize         int  `yaml:"batch_size" json:"batch_size"`
}

// ToSourceConfig 转换为数据源组件配置
func (c DatabaseSourceConfig) ToSourceConfig() database.SourceConfig {
	return database.SourceConfig{
		QueryInterval:     time.Duration(c.QueryIntervalSec) * time.Second,
		InitWindowMinutes: c.InitWindowMinutes,
		BatchSize:         c.BatchSize,
	}
}

// ReportConfig 报告导出配置
type ReportConfig struct {
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// PublisherConfig 发布器配置
type PublisherConfig struct {
	Feishu          FeishuConfig `yaml:"feishu" json:"feishu"`
	CooldownMinutes int          `yaml:"cooldown_minutes" json:"cooldown_minutes"`
}

// FeishuConfig 飞书发布器配置
type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// ToPublisherConfig 转换为发布管理器配置
func (c PublisherConfig) ToPublisherConfig() publisher.Config {
	return publisher.Config{
		FeishuWebhookURL: c.Feishu.WebhookURL,
		Cooldown:         time.Duration(c.CooldownMinutes) * time.Minute,
	}
}

// AnalysisConfig 周期分析配置
type AnalysisConfig struct {
	IntervalSec       int  `yaml:"interval" json:"interval"` // 秒
	AnalyzeOnShutdown bool `yaml:"analyze_on_shutdown" json:"analyze_on_shutdown"`
	PersistTrades     bool `yaml:"persist_trades" json:"persist_trades"`
	MaxTableSize      int  `yaml:"max_table_size" json:"max_table_size"`
}

// ToPipelineConfig 转换为管道配置
func (c AnalysisConfig) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		AnalysisInterval:  time.Duration(c.IntervalSec) * time.Second,
		AnalyzeOnShutdown: c.AnalyzeOnShutdown,
		MaxTableSize:      c.MaxTableSize,
	}
}

// Manager 配置管理器
type Manager struct {
	config *AppConfig
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{}
}

// Load 加载配置文件
func (m *Manager) Load(configPath string) error {
	err := config.Load(file.NewSource(
		file.WithPath(configPath),
		file.WithFormat("yaml"),
	))
	if err != nil {
		return err
	}

	var appConfig AppConfig
	err = config.Scan(&appConfig)
	if err != nil {
		return err
	}

	if appConfig.Report.OutputPath == "" {
		appConfig.Report.OutputPath = "./wash_trading_report.json"
	}

	m.config = &appConfig
	return nil
}

// GetAppConfig 获取应用配置
func (m *Manager) GetAppConfig() *AppConfig {
	return m.config
}

// GetSourcesConfig 获取数据源配置
func (m *Manager) GetSourcesConfig() SourcesConfig {
	return m.config.Sources
}

// GetDetectorConfig 获取检测器阈值配置
func (m *Manager) GetDetectorConfig() detector.Config {
	return m.config.Detector
}

// GetLabelerConfig 获取标注规则配置
func (m *Manager) GetLabelerConfig() labeler.Config {
	return m.config.Labeler
}

// GetReportConfig 获取报告导出配置
func (m *Manager) GetReportConfig() ReportConfig {
	return m.config.Report
}

// GetPublisherConfig 获取发布器配置
func (m *Manager) GetPublisherConfig() PublisherConfig {
	return m.config.Publisher
}

// GetAnalysisConfig 获取周期分析配置
func (m *Manager) GetAnalysisConfig() AnalysisConfig {
	return m.config.Analysis
}

// InitLogger 初始化日志系统
func (m *Manager) InitLogger() error {
	loggerConfig := logger.FromConfig("logger")
	loggerInstance := loggerConfig.Build()
	logger.SetDefault(loggerInstance)
	return nil
}
