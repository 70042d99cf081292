package repo

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninja0404/wash-signal/internal/model"
)

type TradeRepo interface {
	// SaveTrades 批量落库归一化交易，按交易签名幂等
	SaveTrades(trades []*model.Trade) error

	// GetTradesAfterId 获取指定ID之后的交易
	GetTradesAfterId(lastId uint64, limit int) ([]*model.DexTrade, error)

	// GetTradesSince 获取指定时间之后的交易
	GetTradesSince(since time.Time, limit int) ([]*model.DexTrade, error)

	// GetTradesSinceAfterId 获取指定时间窗口内且ID大于lastId的交易
	GetTradesSinceAfterId(since time.Time, lastId uint64, limit int) ([]*model.DexTrade, error)

	// GetAllTrades 分页拉取整张交易表
	GetAllTrades(limit int, offset int) ([]*model.DexTrade, error)

	// GetMaxId 获取当前最大ID
	GetMaxId() (uint64, error)

	// UpdateWashLabels 批量回写训练标签
	UpdateWashLabels(labeled []*model.LabeledTrade) error
}

type tradeRepoImpl struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) TradeRepo {
	return &tradeRepoImpl{
		db: db,
	}
}

// SaveTrades 批量落库，重复签名只更新数值列
func (r *tradeRepoImpl) SaveTrades(trades []*model.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	rows := make([]*model.DexTrade, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, model.FromTrade(t))
	}

	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tx_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"buy_amount", "sell_amount", "buy_price_usd", "sell_price_usd", "block_time",
			}),
		}).
		CreateInBatches(rows, 200).Error
}

// GetTradesAfterId 获取指定ID之后的交易（用于增量查询）
func (r *tradeRepoImpl) GetTradesAfterId(lastId uint64, limit int) ([]*model.DexTrade, error) {
	var rows []*model.DexTrade

	err := r.db.
		Where("id > ?", lastId).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error

	return rows, err
}

// GetTradesSince 获取指定时间之后的交易（用于首次初始化）
func (r *tradeRepoImpl) GetTradesSince(since time.Time, limit int) ([]*model.DexTrade, error) {
	var rows []*model.DexTrade

	err := r.db.
		Where("block_time >= ?", since).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error

	return rows, err
}

// GetTradesSinceAfterId 时间窗口内按ID分页（用于历史回放）。
// 同一秒可能落上千行，按block_time分页会原地打转，必须用ID做游标。
func (r *tradeRepoImpl) GetTradesSinceAfterId(since time.Time, lastId uint64, limit int) ([]*model.DexTrade, error) {
	var rows []*model.DexTrade

	err := r.db.
		Where("block_time >= ? AND id > ?", since, lastId).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error

	return rows, err
}

// GetAllTrades 分页拉取整张交易表（用于数据库回放源）
func (r *tradeRepoImpl) GetAllTrades(limit int, offset int) ([]*model.DexTrade, error) {
	var rows []*model.DexTrade

	err := r.db.
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error

	return rows, err
}

// GetMaxId 获取当前最大ID
func (r *tradeRepoImpl) GetMaxId() (uint64, error) {
	var maxId uint64

	err := r.db.Model(&model.DexTrade{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxId).Error

	return maxId, err
}

// UpdateWashLabels 按交易签名批量回写标签
func (r *tradeRepoImpl) UpdateWashLabels(labeled []*model.LabeledTrade) error {
	if len(labeled) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, lt := range labeled {
			err := tx.Model(&model.DexTrade{}).
				Where("tx_id = ?", lt.Trade.TxID).
				Update("is_wash_trade", lt.IsWashTrade).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
