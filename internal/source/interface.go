package source

import (
	"context"

	"github.com/ninja0404/wash-signal/internal/model"
)

// TradeSource 交易数据源接口，产出的是已归一化的交易行
type TradeSource interface {
	// Start 启动数据源
	Start(ctx context.Context) error

	// Stop 停止数据源
	Stop() error

	// Subscribe 订阅交易数据流
	Subscribe() <-chan *model.Trade

	// Errors 错误通道
	Errors() <-chan error

	// String 数据源名称
	String() string

	// IsInitialDataLoaded 检查初始数据是否已加载完成
	IsInitialDataLoaded() bool
}

// Manager 数据源管理器，把多个数据源合并成单一交易流
type Manager struct {
	sources   []TradeSource
	tradeChan chan *model.Trade
	errorChan chan error
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager 创建数据源管理器
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sources:   make([]TradeSource, 0),
		tradeChan: make(chan *model.Trade, 100_000),
		errorChan: make(chan error, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AddSource 添加数据源
func (m *Manager) AddSource(source TradeSource) {
	m.sources = append(m.sources, source)
}

// Start 启动所有数据源
func (m *Manager) Start() error {
	for _, source := range m.sources {
		if err := source.Start(m.ctx); err != nil {
			return err
		}

		go m.listenSource(source)
	}

	return nil
}

// Stop 停止所有数据源
func (m *Manager) Stop() error {
	m.cancel()

	for _, source := range m.sources {
		if err := source.Stop(); err != nil {
			return err
		}
	}

	close(m.tradeChan)
	close(m.errorChan)

	return nil
}

// Trades 获取合并后的交易流
func (m *Manager) Trades() <-chan *model.Trade {
	return m.tradeChan
}

// Errors 获取错误流
func (m *Manager) Errors() <-chan error {
	return m.errorChan
}

// IsInitialDataLoaded 检查所有数据源的初始数据是否已加载完成
func (m *Manager) IsInitialDataLoaded() bool {
	for _, source := range m.sources {
		if !source.IsInitialDataLoaded() {
			return false
		}
	}
	return len(m.sources) > 0
}

// listenSource 把单个数据源的输出汇入合并流
func (m *Manager) listenSource(source TradeSource) {
	tradeChan := source.Subscribe()
	errChan := source.Errors()

	for {
		select {
		case <-m.ctx.Done():
			return
		case trade, ok := <-tradeChan:
			if !ok {
				return
			}
			select {
			case m.tradeChan <- trade:
			case <-m.ctx.Done():
				return
			}
		case err, ok := <-errChan:
			if !ok {
				return
			}
			select {
			case m.errorChan <- err:
			case <-m.ctx.Done():
				return
			}
		}
	}
}
