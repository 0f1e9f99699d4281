package service

import (
	"context"
	"testing"
	"time"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
)

// 对账任务批量固化过期状态.
func TestReconcileExpired(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	short1 := mustCreate(t, svc, clock, time.Minute, 0)
	short2 := mustReady(t, svc, clock, time.Minute, 1)
	long := mustReady(t, svc, clock, 24*time.Hour, 1)

	clock.Advance(time.Hour)

	n, err := svc.ReconcileExpired(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if n != 2 {
		t.Fatalf("reconciled = %d, want 2", n)
	}

	for _, id := range []string{short1.ID, short2.ID} {
		var row model.Transfer
		if err := svc.dbClient.GetDB().First(&row, "id = ?", id).Error; err != nil {
			t.Fatalf("load %s: %v", id, err)
		}

		if row.Status != model.StatusExpired {
			t.Fatalf("%s stored status = %s, want EXPIRED", id, row.Status)
		}
	}

	var untouched model.Transfer
	if err := svc.dbClient.GetDB().First(&untouched, "id = ?", long.ID).Error; err != nil {
		t.Fatalf("load %s: %v", long.ID, err)
	}

	if untouched.Status != model.StatusReady {
		t.Fatalf("unexpired status = %s, want READY", untouched.Status)
	}

	// 再次对账无事可做
	n, err = svc.ReconcileExpired(ctx)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}

	if n != 0 {
		t.Fatalf("second reconcile affected = %d, want 0", n)
	}
}

// 清理任务删除保留期外 DELETED 记录的对象字节并打标记.
func TestPurgeDeleted(t *testing.T) {
	svc, gw, _, clock := newTestService(t)
	ctx := context.Background()

	old := mustReady(t, svc, clock, 90*24*time.Hour, 1)
	if err := svc.Delete(ctx, old.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// 让已删除记录超过保留期（默认 30 天）
	clock.Advance(31 * 24 * time.Hour)

	fresh := mustReady(t, svc, clock, 90*24*time.Hour, 1)
	if err := svc.Delete(ctx, fresh.ID); err != nil {
		t.Fatalf("delete fresh: %v", err)
	}

	n, err := svc.PurgeDeleted(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if n != 1 {
		t.Fatalf("purged = %d, want 1 (fresh delete stays)", n)
	}

	if len(gw.removed) != 1 || gw.removed[0] != "transfers/"+old.ID {
		t.Fatalf("removed objects = %v", gw.removed)
	}

	// 记录保留，purged_at 被标记
	var row model.Transfer
	if err := svc.dbClient.GetDB().First(&row, "id = ?", old.ID).Error; err != nil {
		t.Fatalf("load purged row: %v", err)
	}

	if row.PurgedAt == nil {
		t.Fatal("purged_at not set")
	}

	// 已清理的记录不会重复清理
	n, err = svc.PurgeDeleted(ctx)
	if err != nil {
		t.Fatalf("second purge: %v", err)
	}

	if n != 0 {
		t.Fatalf("second purge = %d, want 0", n)
	}
}

// 统计按观察状态聚合数量与字节.
func TestTransferStats(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	mustReady(t, svc, clock, 24*time.Hour, 1) // READY, 2048 字节
	mustReady(t, svc, clock, time.Minute, 1)  // 稍后过期
	mustCreate(t, svc, clock, time.Hour, 0)   // INIT，无字节

	clock.Advance(time.Hour)

	stats := &StatsService{svc}

	resp, err := stats.TransferStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if resp.TotalTransfers != 3 {
		t.Fatalf("total = %d, want 3", resp.TotalTransfers)
	}

	if resp.TotalSize != 4096 {
		t.Fatalf("total size = %d, want 4096", resp.TotalSize)
	}

	byStatus := map[string]types.StatsStatusItem{}
	for _, item := range resp.ByStatus {
		byStatus[item.Status] = item
	}

	if byStatus[string(model.StatusReady)].Count != 1 {
		t.Fatalf("ready count = %d, want 1", byStatus[string(model.StatusReady)].Count)
	}

	// 过期未固化的 READY 行与过期的 INIT 行都计入 EXPIRED
	if byStatus[string(model.StatusExpired)].Count != 2 {
		t.Fatalf("expired count = %d, want 2", byStatus[string(model.StatusExpired)].Count)
	}
}
