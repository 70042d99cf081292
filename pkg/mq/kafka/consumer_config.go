package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type KafkaConsumerConfig struct {
	Topics       []string `json:"topics" yaml:"topics"`
	Version      string   `json:"version" yaml:"version"`
	Assignor     string   `json:"assignor" yaml:"assignor"`
	OffsetIntial string   `json:"offset_initial" yaml:"offset_initial"`
	GroupId      string   `json:"group_id" yaml:"group_id"`
	ClientID     string   `json:"client_id" yaml:"client_id"`

	SessionTimeout    int `json:"session_timeout" yaml:"session_timeout"`       // 秒
	HeartbeatInterval int `json:"heartbeat_interval" yaml:"heartbeat_interval"` // 秒

	SecurityProtocol string `json:"security_protocol" yaml:"security_protocol"`
	SaslUsername     string `json:"sasl_username" yaml:"sasl_username"`
	SaslPassword     string `json:"sasl_password" yaml:"sasl_password"`
	SaslMechanism    string `json:"sasl_mechanism" yaml:"sasl_mechanism"`
}

func newConsumerConfig(cfg KafkaConsumerConfig) (*sarama.Config, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = 5 * time.Second

	if cfg.Version != "" {
		version, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		config.Version = version
	}

	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	switch cfg.OffsetIntial {
	case "earliest":
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "latest", "":
		config.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	switch cfg.Assignor {
	case "sticky":
		config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	case "roundrobin":
		config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	default:
		config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	}

	if cfg.SessionTimeout > 0 {
		config.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeout) * time.Second
	}
	if cfg.HeartbeatInterval > 0 {
		config.Consumer.Group.Heartbeat.Interval = time.Duration(cfg.HeartbeatInterval) * time.Second
	}

	if cfg.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = cfg.SaslUsername
		config.Net.SASL.Password = cfg.SaslPassword
		config.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SaslMechanism)
	}

	return config, nil
}
