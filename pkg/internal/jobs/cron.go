// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"

	ctxPkg "github.com/yeisme/transvault/pkg/context"
	"github.com/yeisme/transvault/pkg/internal/service"
	"github.com/yeisme/transvault/pkg/internal/storage"
	"github.com/yeisme/transvault/pkg/log"
	"github.com/yeisme/transvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每 5 分钟批量固化过期传输（INIT/READY -> EXPIRED）
//   - 每天 03:30 清理超过保留期的已删除传输对象字节
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	// 每 5 分钟对账过期状态
	_ = sched.AddCron(JobExpiryReconcile, CronExpiryReconcile, func(ctx context.Context) {
		RunExpiryReconcile(ctx)
	}, baseCtx)

	// 每天 03:30 清理已删除传输的对象字节
	_ = sched.AddCron(JobPurgeDeleted, CronPurgeDeleted, func(ctx context.Context) {
		RunPurgeDeleted(ctx)
	}, baseCtx)

	return nil
}

// RunExpiryReconcile 执行一次过期对账.手动触发入口也走这里.
func RunExpiryReconcile(ctx context.Context) {
	l := log.Logger().With().Str("job", JobExpiryReconcile).Logger()

	svc := service.NewTransferService(ctx)

	n, err := svc.ReconcileExpired(ctx)
	if err != nil {
		l.Error().Err(err).Msg("expiry reconcile failed")
		return
	}

	if n > 0 {
		l.Info().Int64("affected", n).Msg("expired transfers reconciled")
	}
}

// RunPurgeDeleted 执行一次对象字节清理.手动触发入口也走这里.
func RunPurgeDeleted(ctx context.Context) {
	l := log.Logger().With().Str("job", JobPurgeDeleted).Logger()

	svc := service.NewTransferService(ctx)

	n, err := svc.PurgeDeleted(ctx)
	if err != nil {
		l.Error().Err(err).Msg("purge deleted failed")
		return
	}

	if n > 0 {
		l.Info().Int64("purged", n).Msg("deleted transfer objects purged")
	}
}
