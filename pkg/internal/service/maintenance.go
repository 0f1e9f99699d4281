package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/transvault/pkg/internal/model"
	nlog "github.com/yeisme/transvault/pkg/log"
)

// purgeConcurrency 清理任务删除对象字节的并发上限.
const purgeConcurrency = 8

// ReconcileExpired 批量固化过期状态：把所有已过期的 INIT/READY 记录
// 一次 UPDATE 置为 EXPIRED.读路径的惰性固化只覆盖被访问的记录，
// 这里兜底收敛其余记录.
func (ts *TransferService) ReconcileExpired(ctx context.Context) (int64, error) {
	now := ts.now()

	res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
		Where("status IN ? AND expires_at <= ?",
			[]model.TransferStatus{model.StatusInit, model.StatusReady}, now).
		Updates(map[string]any{
			"status":     model.StatusExpired,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reconcile expired transfers: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// PurgeDeleted 清理软删除传输的对象字节：删除保留期之前进入 DELETED
// 且尚未清理的记录对应的对象，并打上 purged_at 标记.记录本身保留.
func (ts *TransferService) PurgeDeleted(ctx context.Context) (int64, error) {
	if ts.gateway == nil {
		return 0, fmt.Errorf("%w: object storage gateway unavailable", ErrDependencyFailure)
	}

	cutoff := ts.now().Add(-ts.cfg.PurgeRetention())

	var rows []model.Transfer
	if err := ts.dbClient.GetDB().WithContext(ctx).
		Where("status = ? AND purged_at IS NULL AND updated_at <= ?", model.StatusDeleted, cutoff).
		Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("list purgeable transfers: %w", err)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	var purged atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(purgeConcurrency)

	for i := range rows {
		t := rows[i]

		g.Go(func() error {
			if err := ts.gateway.RemoveObject(gctx, t.StorageKey); err != nil {
				nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("purge object failed")
				// 单条失败不中断整批，留待下次清理
				return nil
			}

			now := time.Now().UTC()
			if err := ts.dbClient.GetDB().WithContext(gctx).Model(&model.Transfer{}).
				Where("id = ?", t.ID).
				Update("purged_at", now).Error; err != nil {
				nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("mark purged failed")
				return nil
			}

			purged.Add(1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return purged.Load(), err
	}

	return purged.Load(), nil
}
