package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ninja0404/wash-signal/internal/model"
)

// fakeTradeRepo 预置交易表，按ID游标分页
type fakeTradeRepo struct {
	rows  []*model.DexTrade
	calls int
}

func (f *fakeTradeRepo) SaveTrades([]*model.Trade) error { return nil }

func (f *fakeTradeRepo) GetTradesAfterId(lastId uint64, limit int) ([]*model.DexTrade, error) {
	return nil, nil
}

func (f *fakeTradeRepo) GetTradesSince(since time.Time, limit int) ([]*model.DexTrade, error) {
	return nil, nil
}

func (f *fakeTradeRepo) GetTradesSinceAfterId(since time.Time, lastId uint64, limit int) ([]*model.DexTrade, error) {
	f.calls++
	out := make([]*model.DexTrade, 0, limit)
	for _, r := range f.rows {
		if r.ID <= lastId {
			continue
		}
		if r.BlockTime == nil || r.BlockTime.Before(since) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeTradeRepo) GetAllTrades(limit int, offset int) ([]*model.DexTrade, error) {
	return nil, nil
}

func (f *fakeTradeRepo) GetMaxId() (uint64, error) { return 0, nil }

func (f *fakeTradeRepo) UpdateWashLabels([]*model.LabeledTrade) error { return nil }

func sameTimeRows(n int) []*model.DexTrade {
	bt := time.Now().Add(-time.Minute)
	rows := make([]*model.DexTrade, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, &model.DexTrade{
			ID:        uint64(i),
			TxID:      fmt.Sprintf("tx%02d", i),
			Buyer:     "buyer",
			Seller:    "seller",
			TokenMint: "mint",
			BlockTime: &bt,
		})
	}
	return rows
}

// 整批交易落在同一秒时，回放必须按ID推进而不是原地重查
func TestInitialReplayTerminatesOnSameBlockTime(t *testing.T) {
	fake := &fakeTradeRepo{rows: sameTimeRows(12)}
	s := NewSource(SourceConfig{
		QueryInterval:     time.Hour,
		InitWindowMinutes: 60,
		BatchSize:         5,
	}, fake)

	finished := make(chan struct{})
	go func() {
		s.performInitialQuery()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("回放未终止")
	}

	// 5+5+2，末批不满即停
	if fake.calls != 3 {
		t.Errorf("查询次数 = %d, want 3", fake.calls)
	}
	if s.lastId != 12 {
		t.Errorf("lastId = %d, want 12", s.lastId)
	}
	if got := len(s.tradeChan); got != 12 {
		t.Errorf("下发行数 = %d, want 12", got)
	}
	if !s.IsInitialDataLoaded() {
		t.Error("回放完成后应标记初始数据已加载")
	}
}

// Stop要等轮询协程退出再关通道，且关闭后通道可被安全读尽
func TestStartStopLifecycle(t *testing.T) {
	fake := &fakeTradeRepo{rows: sameTimeRows(3)}
	s := NewSource(SourceConfig{
		QueryInterval:     time.Hour,
		InitWindowMinutes: 60,
		BatchSize:         10,
	}, fake)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	drained := 0
	for range s.Subscribe() {
		drained++
	}
	if drained > 3 {
		t.Errorf("下发行数 = %d, 最多3", drained)
	}
}
