package bitquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/normalizer"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

const defaultEndpoint = "https://streaming.bitquery.io/eap"

// tokenEnvKey 访问令牌从环境变量读取，不落配置文件
const tokenEnvKey = "BITQUERY_ACCESS_TOKEN"

// dexTradesQuery 拉取最新的Solana DEX交易
const dexTradesQuery = `
query ($limit: Int!) {
  Solana {
    DEXTrades(limit: {count: $limit}, orderBy: {descending: Block_Time}) {
      Trade {
        Dex { ProtocolName ProtocolFamily }
        Buy {
          Amount
          AmountInUSD
          PriceInUSD
          Account { Address }
          Currency { Symbol Name MintAddress }
        }
        Sell {
          Amount
          AmountInUSD
          PriceInUSD
          Account { Address }
          Currency { Symbol Name MintAddress }
        }
      }
      Block { Time Height }
      Transaction { Signature FeePayer }
    }
  }
}`

// Source Bitquery数据源，轮询GraphQL接口拉取最新DEX交易
type Source struct {
	tradeChan chan *model.Trade
	errChan   chan error
	ctx       context.Context
	cancel    context.CancelFunc
	config    SourceConfig
	client    *http.Client
	token     string
	loaded    bool

	started bool
	done    chan struct{}

	// 已见过的交易签名，避免轮询窗口重叠导致重复下发
	seen map[string]struct{}
}

// SourceConfig Bitquery数据源配置
type SourceConfig struct {
	Endpoint     string        `json:"endpoint" yaml:"endpoint"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	BatchLimit   int           `json:"batch_limit" yaml:"batch_limit"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
}

// NewSource 创建Bitquery数据源
func NewSource(config SourceConfig) *Source {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.BatchLimit <= 0 {
		config.BatchLimit = 1000
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Source{
		tradeChan: make(chan *model.Trade, 10000),
		errChan:   make(chan error, 100),
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
		client:    &http.Client{Timeout: config.Timeout},
		token:     os.Getenv(tokenEnvKey),
		done:      make(chan struct{}),
		seen:      make(map[string]struct{}),
	}
}

// Start 启动轮询
func (s *Source) Start(ctx context.Context) error {
	if s.token == "" {
		return errors.Errorf("缺少环境变量 %s", tokenEnvKey)
	}

	logger.Info("🌐 启动Bitquery数据源",
		logger.String("endpoint", s.config.Endpoint),
		logger.String("poll_interval", s.config.PollInterval.String()),
		logger.Int("batch_limit", s.config.BatchLimit))

	s.started = true
	go s.startPolling()

	return nil
}

// Stop 停止轮询。等轮询协程退出后再关通道，避免关闭时正好有一笔在下发。
func (s *Source) Stop() error {
	logger.Info("🛑 停止Bitquery数据源")
	s.cancel()
	if s.started {
		<-s.done
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
	return "bitquery"
}

// IsInitialDataLoaded 检查初始数据是否已加载完成
func (s *Source) IsInitialDataLoaded() bool {
	return s.loaded
}

func (s *Source) startPolling() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.pollOnce()
	s.loaded = true

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce 拉取一批交易，去重后归一化下发。
// 单次失败只上报错误，下个周期继续。
func (s *Source) pollOnce() {
	records, err := s.fetchTrades()
	if err != nil {
		s.reportError(err)
		return
	}

	fresh := make([]model.RawTradeRecord, 0, len(records))
	for _, r := range records {
		sig := r.Transaction.Signature
		if sig != "" {
			if _, ok := s.seen[sig]; ok {
				continue
			}
			s.seen[sig] = struct{}{}
		}
		fresh = append(fresh, r)
	}

	trades := normalizer.Normalize(fresh)
	for _, trade := range trades {
		select {
		case s.tradeChan <- trade:
		case <-s.ctx.Done():
			return
		}
	}

	logger.Debug("🌐 Bitquery拉取完成",
		logger.Int("fetched", len(records)),
		logger.Int("fresh", len(fresh)),
		logger.Int("emitted", len(trades)))
}

// fetchTrades 执行GraphQL查询并解开响应包裹
func (s *Source) fetchTrades() ([]model.RawTradeRecord, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": dexTradesQuery,
		"variables": map[string]interface{}{
			"limit": s.config.BatchLimit,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "构造GraphQL请求失败")
	}

	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "创建HTTP请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "请求Bitquery失败")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "读取Bitquery响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Bitquery返回 %d: %s", resp.StatusCode, truncateBody(payload))
	}

	return decodeTrades(payload)
}

// decodeTrades 解开data.Solana.DEXTrades包裹并反序列化
func decodeTrades(payload []byte) ([]model.RawTradeRecord, error) {
	js, err := simplejson.NewJson(payload)
	if err != nil {
		return nil, errors.Wrap(err, "解析Bitquery响应失败")
	}

	if gqlErrors, ok := js.CheckGet("errors"); ok {
		msg, _ := gqlErrors.GetIndex(0).Get("message").String()
		return nil, errors.Errorf("GraphQL错误: %s", msg)
	}

	tradesJSON, err := js.Get("data").Get("Solana").Get("DEXTrades").MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "提取DEXTrades失败")
	}

	var records []model.RawTradeRecord
	if err := json.Unmarshal(tradesJSON, &records); err != nil {
		return nil, errors.Wrap(err, "反序列化交易记录失败")
	}
	return records, nil
}

func (s *Source) reportError(err error) {
	select {
	case s.errChan <- err:
	default:
		logger.Error("Bitquery数据源错误通道已满", logger.FieldErr(err))
	}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return fmt.Sprintf("%s...(%d bytes)", body[:max], len(body))
	}
	return string(body)
}
