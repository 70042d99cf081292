package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/repo"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Source 数据库数据源，按ID增量轮询已落库的交易
type Source struct {
	tradeChan  chan *model.Trade
	errChan    chan error
	ctx        context.Context
	cancel     context.CancelFunc
	config     SourceConfig
	repo       repo.TradeRepo
	lastId     uint64
	isFirstRun bool

	started bool
	done    chan struct{}
}

// SourceConfig 数据库数据源配置
type SourceConfig struct {
	QueryInterval     time.Duration `json:"query_interval" yaml:"query_interval"`
	InitWindowMinutes int           `json:"init_window_minutes" yaml:"init_window_minutes"`
	BatchSize         int           `json:"batch_size" yaml:"batch_size"`
}

// NewSource 创建数据库数据源
func NewSource(config SourceConfig, tradeRepo repo.TradeRepo) *Source {
	ctx, cancel := context.WithCancel(context.Background())

	if config.QueryInterval <= 0 {
		config.QueryInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 2000
	}

	return &Source{
		tradeChan:  make(chan *model.Trade, 10000),
		errChan:    make(chan error, 100),
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		repo:       tradeRepo,
		lastId:     0,
		isFirstRun: true,
		done:       make(chan struct{}),
	}
}

// Start 启动数据库数据源
func (s *Source) Start(ctx context.Context) error {
	logger.Info("🗄️ 启动数据库数据源",
		logger.String("query_interval", s.config.QueryInterval.String()),
		logger.Int("init_window_minutes", s.config.InitWindowMinutes),
		logger.Int("batch_size", s.config.BatchSize))

	s.started = true
	go s.startPolling()

	return nil
}

// Stop 停止数据库数据源。等轮询协程退出后再关通道，
// 避免关闭时正好有一笔在下发。
func (s *Source) Stop() error {
	logger.Info("🛑 停止数据库数据源")
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
	return "database"
}

// IsInitialDataLoaded 检查初始数据是否已加载完成
func (s *Source) IsInitialDataLoaded() bool {
	return !s.isFirstRun
}

// startPolling 首次做窗口回放，之后按ID增量查询
func (s *Source) startPolling() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.QueryInterval)
	defer ticker.Stop()

	s.performInitialQuery()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.performIncrementalQuery()
		}
	}
}

// performInitialQuery 回放初始窗口内的历史交易。
// 窗口固定，分页游标用自增ID而不是block_time：同一秒的整批
// 交易会让时间游标原地打转。
func (s *Source) performInitialQuery() {
	defer func() { s.isFirstRun = false }()

	if s.config.InitWindowMinutes <= 0 {
		// 不回放历史，从当前最大ID开始增量
		maxId, err := s.repo.GetMaxId()
		if err != nil {
			s.reportError(fmt.Errorf("查询最大ID失败: %w", err))
			return
		}
		s.lastId = maxId
		logger.Info("⏩ 跳过历史回放", logger.Any("last_id", s.lastId))
		return
	}

	since := time.Now().Add(-time.Duration(s.config.InitWindowMinutes) * time.Minute)
	total := 0
	for {
		rows, err := s.repo.GetTradesSinceAfterId(since, s.lastId, s.config.BatchSize)
		if err != nil {
			s.reportError(fmt.Errorf("初始查询失败: %w", err))
			return
		}
		if len(rows) == 0 {
			break
		}
		total += s.emitRows(rows)
		if len(rows) < s.config.BatchSize {
			break
		}
	}

	logger.Info("✅ 历史交易回放完成",
		logger.Int("total", total),
		logger.Any("last_id", s.lastId))
}

// performIncrementalQuery 拉取上次之后的新交易
func (s *Source) performIncrementalQuery() {
	for {
		rows, err := s.repo.GetTradesAfterId(s.lastId, s.config.BatchSize)
		if err != nil {
			s.reportError(fmt.Errorf("增量查询失败: %w", err))
			return
		}
		if len(rows) == 0 {
			return
		}
		s.emitRows(rows)
		if len(rows) < s.config.BatchSize {
			return
		}
	}
}

func (s *Source) emitRows(rows []*model.DexTrade) int {
	emitted := 0
	for _, row := range rows {
		if row.ID > s.lastId {
			s.lastId = row.ID
		}
		select {
		case s.tradeChan <- row.ToTrade():
			emitted++
		case <-s.ctx.Done():
			return emitted
		}
	}
	return emitted
}

func (s *Source) reportError(err error) {
	select {
	case s.errChan <- err:
	default:
		logger.Error("数据库数据源错误通道已满", logger.FieldErr(err))
	}
}
