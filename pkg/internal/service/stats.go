package service

import (
	"context"
	"fmt"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
)

// StatsService 提供统计计算（基于 transfers 表的聚合查询）.
type StatsService struct{ *TransferService }

func NewStatsService(c context.Context) *StatsService { return &StatsService{NewTransferService(c)} }

// 按状态聚合结果行.
type statusAggRow struct {
	Status    string `gorm:"column:status_key"`
	Count     int64  `gorm:"column:cnt"`
	Size      int64  `gorm:"column:sz"`
	Downloads int64  `gorm:"column:dls"`
}

// TransferStats 统计各状态的数量与字节总量.
// 状态按观察语义归类：过期未固化的 INIT/READY 记录计入 EXPIRED.
func (s *StatsService) TransferStats(ctx context.Context) (*types.TransferStatsResponse, error) {
	dbx := s.dbClient.GetDB().WithContext(ctx)
	now := s.now()

	// SQLite/PostgreSQL/MySQL 兼容：CASE 归一观察状态，COALESCE 规避 NULL
	selectExpr := "CASE WHEN status IN ('INIT','READY') AND expires_at <= ? THEN 'EXPIRED' ELSE status END AS status_key, " +
		"COUNT(*) AS cnt, " +
		"COALESCE(SUM(file_size),0) AS sz, " +
		"COALESCE(SUM(download_count),0) AS dls"

	var rows []statusAggRow
	if err := dbx.Model(&model.Transfer{}).
		Select(selectExpr, now).
		Group("status_key").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate transfer stats: %w", err)
	}

	resp := &types.TransferStatsResponse{
		ByStatus: make([]types.StatsStatusItem, 0, len(rows)),
	}

	for _, r := range rows {
		resp.TotalTransfers += r.Count
		resp.TotalSize += r.Size
		resp.TotalDownloads += r.Downloads
		resp.ByStatus = append(resp.ByStatus, types.StatsStatusItem{
			Status: r.Status,
			Count:  r.Count,
			Size:   r.Size,
		})
	}

	return resp, nil
}
