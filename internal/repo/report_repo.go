package repo

import (
	"gorm.io/gorm"

	"github.com/ninja0404/wash-signal/internal/model"
	"github.com/ninja0404/wash-signal/pkg/utils"
)

type ReportRepo interface {
	// SaveReport 保存一次分析的汇总报告
	SaveReport(report *model.AggregateReport) error

	// GetLatestReports 获取最近的若干份报告
	GetLatestReports(limit int) ([]*model.WashReport, error)
}

type reportRepoImpl struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepo {
	return &reportRepoImpl{
		db: db,
	}
}

// SaveReport 汇总列拆平，完整明细存JSON
func (r *reportRepoImpl) SaveReport(report *model.AggregateReport) error {
	row := &model.WashReport{
		TotalTradesAnalyzed:    report.TotalTradesAnalyzed,
		SuspiciousTransactions: report.SuspiciousTransactions,
		SuspiciousWallets:      report.SuspiciousWallets,
		SuspiciousTokens:       report.SuspiciousTokens,
		RiskScore:              report.RiskScore,
		RiskLevel:              string(report.RiskLevel),
		Detail:                 utils.ConvertToJsonString(report),
	}
	return r.db.Create(row).Error
}

// GetLatestReports 按生成时间倒序
func (r *reportRepoImpl) GetLatestReports(limit int) ([]*model.WashReport, error) {
	var rows []*model.WashReport

	err := r.db.
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error

	return rows, err
}
