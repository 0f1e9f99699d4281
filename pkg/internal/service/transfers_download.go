package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
	"github.com/yeisme/transvault/pkg/metrics"
)

// classifyDownloadDenial 根据记录现状判定下载签发被拒的原因.
func (ts *TransferService) classifyDownloadDenial(ctx context.Context, t *model.Transfer) error {
	switch {
	case t.Status == model.StatusDeleted:
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	case t.PastDue(ts.now()) || t.Status == model.StatusExpired:
		ts.persistExpiry(ctx, t)
		ts.publishIssueDenied(t, "expired")

		return fmt.Errorf("%w: %s", ErrGone, t.ID)
	case t.Exhausted():
		ts.publishIssueDenied(t, "exhausted")

		return fmt.Errorf("%w: %s", ErrResourceExhausted, t.ID)
	case t.Status != model.StatusReady:
		ts.publishIssueDenied(t, "invalid_state")

		return fmt.Errorf("%w: download credential requires READY, got %s", ErrInvalidState, t.Status)
	default:
		return nil
	}
}

// IssueDownloadCredential 签发预签名下载 URL 并原子消耗一次下载额度.
// 先铸造 URL，再用单条条件 UPDATE 完成守卫与计数：铸造失败不消耗额度，
// 计数失败则 URL 被丢弃（预签名本身无副作用）.
func (ts *TransferService) IssueDownloadCredential(ctx context.Context, id string, requestedMinutes int) (*types.DownloadURLResponse, error) {
	if requestedMinutes < 0 {
		return nil, fmt.Errorf("%w: expiry_minutes must be >= 0", ErrInvalidArgument)
	}

	t, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ts.classifyDownloadDenial(ctx, t); err != nil {
		return nil, err
	}

	if ts.gateway == nil {
		return nil, fmt.Errorf("%w: object storage gateway unavailable", ErrDependencyFailure)
	}

	ttl := ts.cfg.DownloadURLTTL(requestedMinutes)

	downloadURL, err := ts.gateway.PresignDownloadURL(ctx, t.StorageKey, t.FileName, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: presign download: %v", ErrDependencyFailure, err)
	}

	now := ts.now()
	res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status = ? AND download_count < max_downloads AND expires_at > ?",
			t.ID, model.StatusReady, now).
		Updates(map[string]any{
			"download_count": gorm.Expr("download_count + 1"),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("consume download slot %s: %w", id, res.Error)
	}

	if res.RowsAffected == 0 {
		// 守卫在铸造期间失效，重读后判定具体原因
		current, err := ts.loadTransfer(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := ts.classifyDownloadDenial(ctx, current); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: transfer %s", ErrConflict, id)
	}

	updated, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.CredentialsIssued.WithLabelValues("download").Inc()
	ts.publishAccessed(updated)

	remaining := updated.MaxDownloads - updated.DownloadCount
	if remaining < 0 {
		remaining = 0
	}

	return &types.DownloadURLResponse{
		TransferID:         updated.ID,
		DownloadURL:        downloadURL,
		ExpiresIn:          int(ttl.Seconds()),
		RemainingDownloads: remaining,
	}, nil
}
