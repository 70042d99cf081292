package kafka

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/pkg/logger"
)

type MessageHandler func(message []byte) error

type KafkaConsumer struct {
	group    sarama.ConsumerGroup
	topics   []string
	groupId  string
	handlers map[string]MessageHandler

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	closed     chan struct{}
}

func NewKafkaConsumer(brokers []string, cfg KafkaConsumerConfig) (*KafkaConsumer, error) {
	config, err := newConsumerConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "build consumer config")
	}

	group, err := sarama.NewConsumerGroup(brokers, cfg.GroupId, config)
	if err != nil {
		return nil, errors.Wrap(err, "create consumer group")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaConsumer{
		group:      group,
		topics:     cfg.Topics,
		groupId:    cfg.GroupId,
		handlers:   make(map[string]MessageHandler),
		cancelCtx:  ctx,
		cancelFunc: cancel,
		closed:     make(chan struct{}),
	}, nil
}

func (kc *KafkaConsumer) RegisterTopicHandler(t string, h MessageHandler) error {
	for _, topic := range kc.topics {
		if topic == t {
			kc.handlers[t] = h
			return nil
		}
	}
	return errors.New("topic not in consumer list")
}

func (kc *KafkaConsumer) Start() error {
	go func() {
		defer close(kc.closed)
		for {
			// Consume在rebalance后返回，需要循环重入
			if err := kc.group.Consume(kc.cancelCtx, kc.topics, kc); err != nil {
				logger.Error("kafka consumer group error",
					logger.FieldErr(err),
					logger.String("group_id", kc.groupId))
			}
			if kc.cancelCtx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range kc.group.Errors() {
			logger.Error("kafka consumer error", logger.FieldErr(err))
		}
	}()

	return nil
}

func (kc *KafkaConsumer) Close() error {
	kc.cancelFunc()
	if err := kc.group.Close(); err != nil {
		return fmt.Errorf("close consumer error: %w", err)
	}
	<-kc.closed

	logger.Info("consumer closed successfully")
	return nil
}

// Setup sarama.ConsumerGroupHandler
func (kc *KafkaConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup sarama.ConsumerGroupHandler
func (kc *KafkaConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim 消费单个分区，处理成功才标记offset
func (kc *KafkaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			h, exists := kc.handlers[msg.Topic]
			if !exists {
				logger.Warn("kafka consumer no handler for topic", logger.String("topic", msg.Topic))
				session.MarkMessage(msg, "")
				continue
			}

			if err := kc.safeHandle(h, msg); err != nil {
				logger.Error("kafka message handler error",
					logger.FieldErr(err),
					logger.String("topic", msg.Topic),
					logger.Int64("offset", msg.Offset))
				// 失败的消息也标记，避免卡死分区；检测是幂等的批量分析
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (kc *KafkaConsumer) safeHandle(h MessageHandler, msg *sarama.ConsumerMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovery from kafka message handler",
				logger.String("topic", msg.Topic),
				logger.Int32("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.FieldStack(debug.Stack()),
			)
			err = fmt.Errorf("panic in message handler: %v", r)
		}
	}()
	return h(msg.Value)
}
