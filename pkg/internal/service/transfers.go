package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
	nlog "github.com/yeisme/transvault/pkg/log"
	"github.com/yeisme/transvault/pkg/metrics"
)

// ulidEntropy 单例熵源，保证同一毫秒内生成的 ID 单调递增.
var ulidEntropy = ulid.Monotonic(crand.Reader, 0)

// newTransferID 生成 ULID 字符串作为传输 ID.
func newTransferID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy).String()
}

// storageKeyFor 传输对象在桶内的存储键，创建时确定且不可变.
func storageKeyFor(id string) string {
	return "transfers/" + id
}

// Create 创建一条 INIT 状态的传输记录.
func (ts *TransferService) Create(ctx context.Context, req *types.CreateTransferRequest) (*types.TransferResponse, error) {
	now := ts.now()

	if !req.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidArgument)
	}

	maxDownloads := ts.cfg.DefaultMaxDownloads()
	if req.MaxDownloads != nil {
		if *req.MaxDownloads < 1 {
			return nil, fmt.Errorf("%w: max_downloads must be >= 1", ErrInvalidArgument)
		}

		maxDownloads = *req.MaxDownloads
	}

	id := newTransferID(now)
	t := &model.Transfer{
		ID:           id,
		Status:       model.StatusInit,
		MaxDownloads: maxDownloads,
		StorageKey:   storageKeyFor(id),
		ExpiresAt:    req.ExpiresAt.UTC(),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := ts.dbClient.GetDB().WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	metrics.TransfersCreated.Inc()
	ts.publishCreated(t)

	resp := ts.toResponse(t)

	return &resp, nil
}

// loadTransfer 按 ID 加载记录，未找到映射为 ErrNotFound.
func (ts *TransferService) loadTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	var t model.Transfer
	if err := ts.dbClient.GetDB().WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("load transfer %s: %w", id, err)
	}

	return &t, nil
}

// persistExpiry 惰性固化过期状态：对过期的 INIT/READY 记录做一次 CAS 写入.
// 尽力而为，CAS 失败（并发改动）不影响调用方，状态收敛交给对账任务.
func (ts *TransferService) persistExpiry(ctx context.Context, t *model.Transfer) {
	if !t.PastDue(ts.now()) {
		return
	}

	if t.Status != model.StatusInit && t.Status != model.StatusReady {
		return
	}

	res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]any{
			"status":     model.StatusExpired,
			"version":    gorm.Expr("version + 1"),
			"updated_at": ts.now(),
		})
	if res.Error != nil {
		nlog.Logger().Warn().Err(res.Error).Str("transfer", t.ID).Msg("persist expiry failed")
		return
	}

	if res.RowsAffected == 1 {
		t.Status = model.StatusExpired
		t.Version++
		ts.publishExpired(t)
	}
}

// Get 查询单条传输，过期记录顺带惰性固化.
func (ts *TransferService) Get(ctx context.Context, id string) (*types.TransferResponse, error) {
	t, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	ts.persistExpiry(ctx, t)

	resp := ts.toResponse(t)

	return &resp, nil
}

// Update 部分更新传输记录，乐观锁 CAS，重试耗尽返回 ErrConflict.
// 状态字段仅接受 READY/EXPIRED：READY 自 EXPIRED 为复活，要求生效后的
// 过期时间在未来；单独修改 expires_at 不会改变已固化的状态.
func (ts *TransferService) Update(ctx context.Context, id string, req *types.UpdateTransferRequest) (*types.TransferResponse, error) {
	if req.ExpiresAt == nil && req.MaxDownloads == nil && req.Status == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
	}

	if req.MaxDownloads != nil && *req.MaxDownloads < 1 {
		return nil, fmt.Errorf("%w: max_downloads must be >= 1", ErrInvalidArgument)
	}

	if req.Status != nil {
		s := model.TransferStatus(*req.Status)
		if s != model.StatusReady && s != model.StatusExpired {
			return nil, fmt.Errorf("%w: status may only be set to READY or EXPIRED", ErrInvalidArgument)
		}
	}

	retries := ts.cfg.Retries()
	for attempt := 0; attempt < retries; attempt++ {
		t, err := ts.loadTransfer(ctx, id)
		if err != nil {
			return nil, err
		}

		if t.Status == model.StatusDeleted {
			return nil, fmt.Errorf("%w: transfer %s is deleted", ErrInvalidState, id)
		}

		now := ts.now()
		updates := map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}

		effectiveExpiry := t.ExpiresAt
		if req.ExpiresAt != nil {
			effectiveExpiry = req.ExpiresAt.UTC()
			updates["expires_at"] = effectiveExpiry
		}

		if req.MaxDownloads != nil {
			updates["max_downloads"] = *req.MaxDownloads
		}

		if req.Status != nil {
			target := model.TransferStatus(*req.Status)

			if t.Status == model.StatusInit {
				return nil, fmt.Errorf("%w: cannot change status of an INIT transfer", ErrInvalidState)
			}

			if target == model.StatusReady && !effectiveExpiry.After(now) {
				return nil, fmt.Errorf("%w: reviving requires a future expires_at", ErrInvalidArgument)
			}

			updates["status"] = target
		}

		res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
			Where("id = ? AND version = ?", t.ID, t.Version).
			Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update transfer %s: %w", id, res.Error)
		}

		if res.RowsAffected == 1 {
			updated, err := ts.loadTransfer(ctx, id)
			if err != nil {
				return nil, err
			}

			resp := ts.toResponse(updated)

			return &resp, nil
		}
		// 版本被并发修改，重读后重试
	}

	return nil, fmt.Errorf("%w: transfer %s", ErrConflict, id)
}

// Delete 软删除：无条件置 DELETED，幂等，从不触碰对象字节.
func (ts *TransferService) Delete(ctx context.Context, id string) error {
	t, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return err
	}

	if t.Status == model.StatusDeleted {
		return nil
	}

	res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status <> ?", id, model.StatusDeleted).
		Updates(map[string]any{
			"status":     model.StatusDeleted,
			"version":    gorm.Expr("version + 1"),
			"updated_at": ts.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("delete transfer %s: %w", id, res.Error)
	}

	if res.RowsAffected == 1 {
		t.Status = model.StatusDeleted
		ts.publishDeleted(t)
	}

	return nil
}
