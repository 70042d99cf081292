package detector

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Engine 并行跑所有检测器。
// 检测器是纯函数，快照在分析期间不可变，可以安全并发。
// 单个检测器panic只会让它自己降级为零结果，不影响其他检测器。
type Engine struct {
	detectors []Detector
}

// NewEngine 构建携带全部7个检测器的引擎
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, errors.Wrap(err, "合并检测器默认配置失败")
	}

	return &Engine{
		detectors: []Detector{
			NewSelfTradeDetector(),
			NewRepeatedPairDetector(cfg),
			NewCircularDetector(cfg),
			NewTimingDetector(cfg),
			NewVolumeDetector(cfg),
			NewPriceDetector(cfg),
			NewNewWalletDetector(cfg),
		},
	}, nil
}

// Detectors 已注册的检测器列表
func (e *Engine) Detectors() []Detector {
	return e.detectors
}

// Run 在交易快照上执行全部检测器，返回模式名到Finding的映射。
// 返回的error是所有失败检测器的聚合，调用方可以只记日志继续。
func (e *Engine) Run(trades []*model.Trade) (map[string]*model.Finding, error) {
	findings := make(map[string]*model.Finding, len(e.detectors))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var errs *multierror.Error

	for _, d := range e.detectors {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()

			finding, err := e.runOne(d, trades)
			mu.Lock()
			defer mu.Unlock()
			findings[d.Name()] = finding
			if err != nil {
				errs = multierror.Append(errs, err)
			}
		}(d)
	}
	wg.Wait()

	return findings, errs.ErrorOrNil()
}

// runOne 执行单个检测器，panic转换为error并降级为零结果
func (e *Engine) runOne(d Detector, trades []*model.Trade) (finding *model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("检测器panic: %s: %v", d.Name(), r)
			logger.Error("💥 检测器执行崩溃",
				logger.FieldPattern(d.Name()),
				logger.Any("panic", r))
			finding = &model.Finding{
				Pattern:      d.Name(),
				Severity:     model.SeverityLow,
				Transactions: []string{},
			}
		}
	}()

	finding = d.Detect(trades)
	logger.Debug("🔍 检测器执行完成",
		logger.FieldPattern(d.Name()),
		logger.Int("count", finding.Count),
		logger.String("severity", string(finding.Severity)))
	return finding, nil
}
