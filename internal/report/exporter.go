package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/logger"
)

// Exporter 把报告写成缩进JSON文件
type Exporter struct {
	outputPath string
}

func NewExporter(outputPath string) *Exporter {
	return &Exporter{outputPath: outputPath}
}

// Export 序列化报告并落盘。正常序列化失败时退化为字符串化
// 兜底，导出永远产出文件而不是报错中断分析。
func (e *Exporter) Export(report *model.AggregateReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Warn("⚠️ 报告JSON序列化失败，使用字符串化兜底",
			logger.FieldErr(err))
		data = []byte(fmt.Sprintf("%+v\n", report))
	}

	dir := filepath.Dir(e.outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "创建报告目录失败: %s", dir)
		}
	}

	if err := os.WriteFile(e.outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "写入报告文件失败: %s", e.outputPath)
	}

	logger.Info("📄 分析报告已导出",
		logger.String("path", e.outputPath),
		logger.Int("risk_score", report.RiskScore),
		logger.String("risk_level", string(report.RiskLevel)))
	return nil
}

// Render 返回报告的缩进JSON，供发布渠道复用
func Render(report *model.AggregateReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "报告序列化失败")
	}
	return data, nil
}
