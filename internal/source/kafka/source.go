package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/normalizer"
	"github.com/ninja0404/wash-signal/pkg/logger"
	"github.com/ninja0404/wash-signal/pkg/mq/kafka"
)

const consumerName = "wash-signal-trades"

// Source Kafka数据源，消费原始交易消息并现场归一化
type Source struct {
	tradeChan chan *model.Trade
	errChan   chan error
	config    SourceConfig
	loaded    bool
}

// SourceConfig Kafka数据源配置
type SourceConfig struct {
	Brokers  []string                  `json:"brokers" yaml:"brokers"`
	Topic    string                    `json:"topic" yaml:"topic"`
	Consumer kafka.KafkaConsumerConfig `json:"consumer" yaml:"consumer"`
}

// NewSource 创建Kafka数据源
func NewSource(config SourceConfig) *Source {
	return &Source{
		tradeChan: make(chan *model.Trade, 10000),
		errChan:   make(chan error, 100),
		config:    config,
	}
}

// Start 建立消费者组并开始消费
func (s *Source) Start(ctx context.Context) error {
	cfg := s.config.Consumer
	if len(cfg.Topics) == 0 {
		cfg.Topics = []string{s.config.Topic}
	}

	if err := kafka.SetupNamedKafkaConsumer(consumerName, s.config.Brokers, cfg); err != nil {
		return errors.Wrap(err, "创建Kafka消费者失败")
	}
	if err := kafka.RegisterTopicHandlerForConsumer(consumerName, s.config.Topic, s.handleMessage); err != nil {
		return errors.Wrap(err, "注册topic处理器失败")
	}
	if err := kafka.StartNamedConsumer(consumerName); err != nil {
		return errors.Wrap(err, "启动Kafka消费者失败")
	}

	// 流式数据源没有历史回放阶段
	s.loaded = true

	logger.Info("📡 Kafka数据源已启动",
		logger.String("topic", s.config.Topic),
		logger.String("group_id", cfg.GroupId))
	return nil
}

// Stop 停止消费
func (s *Source) Stop() error {
	logger.Info("🛑 停止Kafka数据源")
	if err := kafka.CloseNamedConsumer(consumerName); err != nil {
		return err
	}
	close(s.tradeChan)
	close(s.errChan)
	return nil
}

// Subscribe 订阅交易数据流
func (s *Source) Subscribe() <-chan *model.Trade {
	return s.tradeChan
}

// Errors 获取错误通道
func (s *Source) Errors() <-chan error {
	return s.errChan
}

// String 数据源名称
func (s *Source) String() string {
	return "kafka"
}

// IsInitialDataLoaded 检查初始数据是否已加载完成
func (s *Source) IsInitialDataLoaded() bool {
	return s.loaded
}

// handleMessage 解码单条原始交易并归一化。
// 解码失败只上报错误，不中断消费。
func (s *Source) handleMessage(message []byte) error {
	var record model.RawTradeRecord
	if err := json.Unmarshal(message, &record); err != nil {
		s.reportError(fmt.Errorf("解码交易消息失败: %w", err))
		return nil
	}

	for _, trade := range normalizer.Normalize([]model.RawTradeRecord{record}) {
		s.tradeChan <- trade
	}
	return nil
}

func (s *Source) reportError(err error) {
	select {
	case s.errChan <- err:
	default:
		logger.Error("Kafka数据源错误通道已满", logger.FieldErr(err))
	}
}
