package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
)

// listSortColumns 排序字段白名单，防止任意列名注入 ORDER BY.
var listSortColumns = map[string]string{
	"created_at": "created_at",
	"expires_at": "expires_at",
	"file_size":  "file_size",
	"status":     "status",
}

// applyStatusFilter 按观察语义过滤状态：过期未固化的 INIT/READY 记录
// 归入 EXPIRED，且不出现在 INIT/READY 的结果里.
func applyStatusFilter(dbx *gorm.DB, status model.TransferStatus, now time.Time) *gorm.DB {
	switch status {
	case model.StatusExpired:
		return dbx.Where("status = ? OR (status IN ? AND expires_at <= ?)",
			model.StatusExpired, []model.TransferStatus{model.StatusInit, model.StatusReady}, now)
	case model.StatusInit, model.StatusReady:
		return dbx.Where("status = ? AND expires_at > ?", status, now)
	default:
		return dbx.Where("status = ?", status)
	}
}

// List 过滤、排序、分页查询传输列表.total_count 为过滤后总数，
// 与分页无关；相同排序键按 id 升序稳定输出.
func (ts *TransferService) List(ctx context.Context, q *types.ListTransfersQuery) (*types.ListTransfersResponse, error) {
	now := ts.now()

	limit := ts.cfg.ClampListLimit(q.Limit)

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	dbx := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{})

	if q.Status != "" {
		status := model.TransferStatus(strings.ToUpper(q.Status))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, q.Status)
		}

		dbx = applyStatusFilter(dbx, status, now)
	}

	if q.CreatedGe != "" {
		ge, err := time.Parse(time.RFC3339, q.CreatedGe)
		if err != nil {
			return nil, fmt.Errorf("%w: created_ge must be RFC3339", ErrInvalidArgument)
		}

		dbx = dbx.Where("created_at >= ?", ge.UTC())
	}

	if q.CreatedLe != "" {
		le, err := time.Parse(time.RFC3339, q.CreatedLe)
		if err != nil {
			return nil, fmt.Errorf("%w: created_le must be RFC3339", ErrInvalidArgument)
		}

		dbx = dbx.Where("created_at <= ?", le.UTC())
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}

	column, ok := listSortColumns[sortBy]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sort_by %q", ErrInvalidArgument, q.SortBy)
	}

	order := strings.ToLower(q.Order)
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return nil, fmt.Errorf("%w: order must be asc or desc", ErrInvalidArgument)
	}

	var total int64
	if err := dbx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count transfers: %w", err)
	}

	var rows []model.Transfer
	if err := dbx.
		Order(column + " " + order).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}

	items := make([]types.TransferResponse, 0, len(rows))
	for i := range rows {
		items = append(items, ts.toResponse(&rows[i]))
	}

	return &types.ListTransfersResponse{
		Items:      items,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}, nil
}
