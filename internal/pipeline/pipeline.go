package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ninja0404/wash-signal/internal/detector"
	"github.com/ninja0404/wash-signal/internal/labeler"
	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/internal/publisher"
	"github.com/ninja0404/wash-signal/internal/repo"
	"github.com/ninja0404/wash-signal/internal/report"
	"github.com/ninja0404/wash-signal/internal/source"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Config 管道配置
type Config struct {
	// AnalysisInterval 周期分析的间隔
	AnalysisInterval time.Duration `json:"analysis_interval" yaml:"analysis_interval"`
	// AnalyzeOnShutdown 停机前是否再跑一轮分析
	AnalyzeOnShutdown bool `json:"analyze_on_shutdown" yaml:"analyze_on_shutdown"`
	// MaxTableSize 内存交易表上限，超出时淘汰最旧的行
	MaxTableSize int `json:"max_table_size" yaml:"max_table_size"`
}

// Pipeline 数据处理管道。
// 把数据源的交易流累积成内存快照，周期性地在快照上跑
// 检测引擎，汇总成报告后落库、导出、发布，并回写训练标签。
type Pipeline struct {
	sourceManager    *source.Manager
	detectorEngine   *detector.Engine
	tradeLabeler     *labeler.Labeler
	publisherManager *publisher.Manager
	exporter         *report.Exporter
	tradeRepo        repo.TradeRepo
	reportRepo       repo.ReportRepo

	config Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// 累积的交易表，分析时整体快照
	mu     sync.RWMutex
	trades []*model.Trade
	byTx   map[string]struct{}

	// 统计计数
	received int64
	analyzed int64
	rounds   int64

	initialDataLoaded bool
}

// NewPipeline 创建数据处理管道
func NewPipeline(cfg Config, engine *detector.Engine, tradeLabeler *labeler.Labeler) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.AnalysisInterval <= 0 {
		cfg.AnalysisInterval = 5 * time.Minute
	}
	if cfg.MaxTableSize <= 0 {
		cfg.MaxTableSize = 100_000
	}

	return &Pipeline{
		sourceManager:  source.NewManager(),
		detectorEngine: engine,
		tradeLabeler:   tradeLabeler,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
		trades:         make([]*model.Trade, 0),
		byTx:           make(map[string]struct{}),
	}
}

// SetPublisherManager 设置发布管理器
func (p *Pipeline) SetPublisherManager(m *publisher.Manager) {
	p.publisherManager = m
}

// SetExporter 设置报告导出器
func (p *Pipeline) SetExporter(e *report.Exporter) {
	p.exporter = e
}

// SetRepositories 设置持久化仓库，不设置时跳过落库
func (p *Pipeline) SetRepositories(tradeRepo repo.TradeRepo, reportRepo repo.ReportRepo) {
	p.tradeRepo = tradeRepo
	p.reportRepo = reportRepo
}

// GetSourceManager 获取数据源管理器
func (p *Pipeline) GetSourceManager() *source.Manager {
	return p.sourceManager
}

// IsInitialDataLoaded 获取初始数据加载状态
func (p *Pipeline) IsInitialDataLoaded() bool {
	return p.initialDataLoaded
}

// Start 启动数据处理管道
func (p *Pipeline) Start() error {
	logger.Info("启动数据处理管道",
		logger.String("analysis_interval", p.config.AnalysisInterval.String()))

	if err := p.sourceManager.Start(); err != nil {
		return err
	}

	p.wg.Add(3)
	go p.collectTrades()
	go p.runAnalysisLoop()
	go p.processErrors()

	logger.Info("数据处理管道已启动")
	return nil
}

// Stop 停止数据处理管道
func (p *Pipeline) Stop() error {
	logger.Info("停止数据处理管道")

	if p.config.AnalyzeOnShutdown {
		p.runAnalysis()
	}

	p.cancel()

	if err := p.sourceManager.Stop(); err != nil {
		logger.Error("停止数据源管理器失败", logger.FieldErr(err))
	}

	p.wg.Wait()

	if p.publisherManager != nil {
		if err := p.publisherManager.Close(); err != nil {
			logger.Error("关闭发布管理器失败", logger.FieldErr(err))
		}
	}

	logger.Info("数据处理管道已停止",
		logger.Int64("received", atomic.LoadInt64(&p.received)),
		logger.Int64("analysis_rounds", atomic.LoadInt64(&p.rounds)))
	return nil
}

// collectTrades 把数据源的交易流累积进内存表，按签名去重
func (p *Pipeline) collectTrades() {
	defer p.wg.Done()
	tradeChan := p.sourceManager.Trades()

	for {
		select {
		case <-p.ctx.Done():
			return
		case trade, ok := <-tradeChan:
			if !ok {
				return
			}

			if !p.initialDataLoaded && p.sourceManager.IsInitialDataLoaded() {
				p.initialDataLoaded = true
				logger.Info("🎯 初始数据加载完成，开始周期分析")
			}

			p.appendTrade(trade)
		}
	}
}

func (p *Pipeline) appendTrade(trade *model.Trade) {
	atomic.AddInt64(&p.received, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if trade.TxID != "" {
		if _, ok := p.byTx[trade.TxID]; ok {
			return
		}
		p.byTx[trade.TxID] = struct{}{}
	}
	p.trades = append(p.trades, trade)

	// 表满时整体淘汰最旧的10%，避免逐行搬移
	if len(p.trades) > p.config.MaxTableSize {
		evict := p.config.MaxTableSize / 10
		if evict < 1 {
			evict = 1
		}
		for _, old := range p.trades[:evict] {
			if old.TxID != "" {
				delete(p.byTx, old.TxID)
			}
		}
		p.trades = append(p.trades[:0:0], p.trades[evict:]...)
		logger.Warn("⚠️ 交易表达到上限，已淘汰最旧的行",
			logger.Int("evicted", evict),
			logger.Int("table_size", len(p.trades)))
	}
}

// snapshot 拷贝当前交易表。行本身归一化后不再修改，浅拷贝即可。
func (p *Pipeline) snapshot() []*model.Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*model.Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

// runAnalysisLoop 周期性地跑一轮完整分析
func (p *Pipeline) runAnalysisLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runAnalysis()
		}
	}
}

// runAnalysis 在当前快照上执行检测、汇总、持久化、发布和标注。
// 空表也产出一份零报告，不视为错误。
func (p *Pipeline) runAnalysis() {
	trades := p.snapshot()
	started := time.Now()

	findings, err := p.detectorEngine.Run(trades)
	if err != nil {
		// 单个检测器失败已降级为零结果，整体分析继续
		logger.Warn("⚠️ 部分检测器执行失败", logger.FieldErr(err))
	}

	result := report.BuildReport(len(trades), findings)

	atomic.AddInt64(&p.rounds, 1)
	atomic.StoreInt64(&p.analyzed, int64(len(trades)))

	logger.Info("✅ 分析轮次完成",
		logger.Int("trades", result.TotalTradesAnalyzed),
		logger.Int("risk_score", result.RiskScore),
		logger.String("risk_level", string(result.RiskLevel)),
		logger.FieldCost(time.Since(started)))

	if p.exporter != nil {
		if err := p.exporter.Export(result); err != nil {
			logger.Error("❌ 报告导出失败", logger.FieldErr(err))
		}
	}

	if p.reportRepo != nil {
		if err := p.reportRepo.SaveReport(result); err != nil {
			logger.Error("❌ 报告落库失败", logger.FieldErr(err))
		}
	}

	if p.tradeRepo != nil {
		if err := p.tradeRepo.SaveTrades(trades); err != nil {
			logger.Error("❌ 交易落库失败", logger.FieldErr(err))
		}
		if p.tradeLabeler != nil {
			labeled := p.tradeLabeler.Label(trades)
			if err := p.tradeRepo.UpdateWashLabels(labeled); err != nil {
				logger.Error("❌ 标签回写失败", logger.FieldErr(err))
			}
		}
	}

	if p.publisherManager != nil {
		p.publisherManager.PublishReport(result)
	}
}

// processErrors 消费数据源的错误流
func (p *Pipeline) processErrors() {
	defer p.wg.Done()
	errChan := p.sourceManager.Errors()

	for {
		select {
		case <-p.ctx.Done():
			return
		case err, ok := <-errChan:
			if !ok {
				return
			}
			logger.Error("⚠️ 数据源错误", logger.FieldErr(err))
		}
	}
}

// Stats 管道运行统计
func (p *Pipeline) Stats() map[string]interface{} {
	p.mu.RLock()
	pending := len(p.trades)
	p.mu.RUnlock()

	return map[string]interface{}{
		"received":        atomic.LoadInt64(&p.received),
		"last_analyzed":   atomic.LoadInt64(&p.analyzed),
		"analysis_rounds": atomic.LoadInt64(&p.rounds),
		"table_size":      pending,
	}
}
