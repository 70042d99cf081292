package app

import (
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"github.com/ninja0404/wash-signal/internal/config"
	"github.com/ninja0404/wash-signal/internal/detector"
	"github.com/ninja0404/wash-signal/internal/labeler"
	"github.com/ninja0404/wash-signal/internal/pipeline"
	"github.com/ninja0404/wash-signal/internal/publisher"
	"github.com/ninja0404/wash-signal/internal/repo"
	"github.com/ninja0404/wash-signal/internal/report"
	"github.com/ninja0404/wash-signal/internal/source/bitquery"
	"github.com/ninja0404/wash-signal/internal/source/database"
	ksource "github.com/ninja0404/wash-signal/internal/source/kafka"
	"github.com/ninja0404/wash-signal/pkg/database/mysql"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Application 洗盘交易检测应用
type Application struct {
	configManager *config.Manager
	pipeline      *pipeline.Pipeline
	db            *gorm.DB
	tradeRepo     repo.TradeRepo
	reportRepo    repo.ReportRepo
	dbEnabled     bool
}

// New 创建洗盘检测应用实例
func New() *Application {
	return &Application{
		configManager: config.NewManager(),
	}
}

// Initialize 初始化应用
func (app *Application) Initialize(configPath string) error {
	// 1. 加载配置
	if err := app.configManager.Load(configPath); err != nil {
		return err
	}

	// 2. 初始化日志系统
	if err := app.configManager.InitLogger(); err != nil {
		return err
	}
	logger.Info("🚀 洗盘交易检测服务初始化开始", logger.String("config_path", configPath))

	// 3. 构建检测引擎和标注器
	engine, err := detector.NewEngine(app.configManager.GetDetectorConfig())
	if err != nil {
		return err
	}
	tradeLabeler, err := labeler.NewLabeler(app.configManager.GetLabelerConfig())
	if err != nil {
		return err
	}

	app.pipeline = pipeline.NewPipeline(
		app.configManager.GetAnalysisConfig().ToPipelineConfig(),
		engine,
		tradeLabeler,
	)

	// 4. 初始化数据库(数据库数据源或落库任一开启时)
	if err := app.initDatabase(); err != nil {
		return err
	}

	// 5. 设置数据源和出口
	if err := app.setupDataSources(); err != nil {
		return err
	}
	app.setupOutputs()

	logger.Info("✅ 洗盘交易检测服务初始化完成")
	return nil
}

// initDatabase 初始化数据库连接
func (app *Application) initDatabase() error {
	sources := app.configManager.GetSourcesConfig()
	analysis := app.configManager.GetAnalysisConfig()

	if !sources.Database.Enabled && !analysis.PersistTrades {
		logger.Info("⏩ 未启用数据库，跳过连接初始化")
		return nil
	}

	if err := mysql.SetupDatabaseFromDefaultConfig(); err != nil {
		return err
	}

	db, err := mysql.GetDb()
	if err != nil {
		return err
	}
	app.db = db
	app.dbEnabled = true

	app.tradeRepo = repo.NewTradeRepo(db)
	app.reportRepo = repo.NewReportRepo(db)

	logger.Info("📊 数据库连接已建立")
	return nil
}

// setupDataSources 按配置挂载数据源
func (app *Application) setupDataSources() error {
	sources := app.configManager.GetSourcesConfig()
	manager := app.pipeline.GetSourceManager()
	enabled := 0

	if sources.Bitquery.Enabled {
		manager.AddSource(bitquery.NewSource(sources.Bitquery.ToSourceConfig()))
		enabled++
		logger.Info("🌐 已配置Bitquery数据源")
	}

	if sources.Kafka.Enabled {
		manager.AddSource(ksource.NewSource(sources.Kafka.ToSourceConfig()))
		enabled++
		logger.Info("📡 已配置Kafka数据源", logger.String("topic", sources.Kafka.Topic))
	}

	if sources.Database.Enabled {
		manager.AddSource(database.NewSource(sources.Database.ToSourceConfig(), app.tradeRepo))
		enabled++
		logger.Info("🗄️ 已配置数据库数据源")
	}

	if enabled == 0 {
		logger.Warn("⚠️ 未启用任何数据源，服务只会产出空报告")
	}
	return nil
}

// setupOutputs 挂载报告出口：导出文件、落库和发布渠道
func (app *Application) setupOutputs() {
	app.pipeline.SetExporter(report.NewExporter(app.configManager.GetReportConfig().OutputPath))

	publisherManager := publisher.NewManager(app.configManager.GetPublisherConfig().ToPublisherConfig())
	app.pipeline.SetPublisherManager(publisherManager)

	if app.dbEnabled && app.configManager.GetAnalysisConfig().PersistTrades {
		app.pipeline.SetRepositories(app.tradeRepo, app.reportRepo)
		logger.Info("💾 已启用交易与报告落库")
	}
}

// Run 运行应用
func (app *Application) Run() error {
	logger.Info("🎯 启动洗盘交易检测管道")

	if err := app.pipeline.Start(); err != nil {
		return err
	}

	logger.Info("🔥 洗盘交易检测服务已启动，开始分析DEX交易...")
	logger.Info("🔍 检测模式: 自成交 | 高频买卖对 | 环形对倒 | 规律间隔 | 交易量集中 | 价格操纵 | 新钱包集群")

	app.waitForShutdown()

	return nil
}

// waitForShutdown 等待关闭信号
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("📤 收到终止信号，开始优雅关闭应用...", logger.String("signal", sig.String()))

	app.Shutdown()
}

// Shutdown 优雅关闭应用
func (app *Application) Shutdown() {
	logger.Info("🛑 开始关闭洗盘交易检测服务...")

	if err := app.pipeline.Stop(); err != nil {
		logger.Error("停止数据处理管道失败", logger.FieldErr(err))
	}

	if app.dbEnabled {
		if err := mysql.Stop(); err != nil {
			logger.Error("关闭数据库连接失败", logger.FieldErr(err))
		}
	}

	logger.Info("📈 服务运行统计", logger.Any("stats", app.pipeline.Stats()))
	logger.Info("✨ 洗盘交易检测服务已成功关闭")
}

// Start 启动应用的便捷方法
func (app *Application) Start(configPath string) error {
	if err := app.Initialize(configPath); err != nil {
		logger.Error("❌ 洗盘检测服务初始化失败", logger.FieldErr(err))
		return err
	}

	if err := app.Run(); err != nil {
		logger.Error("❌ 洗盘检测服务运行失败", logger.FieldErr(err))
		return err
	}

	return nil
}

// GetPipeline 获取数据处理管道（用于调试和监控）
func (app *Application) GetPipeline() *pipeline.Pipeline {
	return app.pipeline
}

// GetConfigManager 获取配置管理器
func (app *Application) GetConfigManager() *config.Manager {
	return app.configManager
}

// GetTradeRepo 获取交易仓储
func (app *Application) GetTradeRepo() repo.TradeRepo {
	return app.tradeRepo
}
