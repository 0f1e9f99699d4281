package service

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
	"github.com/yeisme/transvault/pkg/metrics"
)

// validateFileName 校验上传文件名：非空、不含路径分隔符、不含上跳序列.
func validateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: file_name is required", ErrInvalidArgument)
	}

	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: file_name must not contain path separators", ErrInvalidArgument)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: file_name must not contain traversal sequences", ErrInvalidArgument)
	}

	return nil
}

// IssueUploadCredential 为 INIT 状态的传输签发预签名上传 URL.
// 同时记录文件名与内容类型；仍处 INIT 时允许重复签发（覆盖记录）.
func (ts *TransferService) IssueUploadCredential(ctx context.Context, id string, req *types.UploadURLRequest) (*types.UploadURLResponse, error) {
	if err := validateFileName(req.FileName); err != nil {
		return nil, err
	}

	t, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.Status == model.StatusDeleted {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if t.PastDue(ts.now()) {
		ts.persistExpiry(ctx, t)
		ts.publishIssueDenied(t, "expired")

		return nil, fmt.Errorf("%w: %s", ErrGone, id)
	}

	if t.Status != model.StatusInit {
		ts.publishIssueDenied(t, "invalid_state")

		return nil, fmt.Errorf("%w: upload credential requires INIT, got %s", ErrInvalidState, t.Status)
	}

	if ts.gateway == nil {
		return nil, fmt.Errorf("%w: object storage gateway unavailable", ErrDependencyFailure)
	}

	ttl := ts.cfg.UploadURLTTL()

	uploadURL, err := ts.gateway.PresignUploadURL(ctx, t.StorageKey, req.ContentType, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: presign upload: %v", ErrDependencyFailure, err)
	}

	// 记录文件元信息，CAS 失败说明状态被并发推进，按冲突处理
	res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
		Where("id = ? AND version = ? AND status = ?", t.ID, t.Version, model.StatusInit).
		Updates(map[string]any{
			"file_name":    req.FileName,
			"content_type": req.ContentType,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   ts.now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("record upload metadata: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: transfer %s", ErrConflict, id)
	}

	metrics.CredentialsIssued.WithLabelValues("upload").Inc()

	return &types.UploadURLResponse{
		TransferID: t.ID,
		ObjectKey:  t.StorageKey,
		UploadURL:  uploadURL,
		ExpiresIn:  int(ttl.Seconds()),
	}, nil
}

// CompleteUpload 声明上传完成，CAS 推进 INIT→READY 并记录观察到的字节数.
// 不回源校验对象（信任调用方声明）.
func (ts *TransferService) CompleteUpload(ctx context.Context, id string, req *types.CompleteUploadRequest) (*types.TransferResponse, error) {
	if req.FileSize == nil || *req.FileSize < 0 {
		return nil, fmt.Errorf("%w: file_size must be >= 0", ErrInvalidArgument)
	}

	retries := ts.cfg.Retries()
	for attempt := 0; attempt < retries; attempt++ {
		t, err := ts.loadTransfer(ctx, id)
		if err != nil {
			return nil, err
		}

		if t.Status == model.StatusDeleted {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		if t.PastDue(ts.now()) {
			ts.persistExpiry(ctx, t)

			return nil, fmt.Errorf("%w: %s", ErrGone, id)
		}

		if t.Status != model.StatusInit {
			return nil, fmt.Errorf("%w: complete requires INIT, got %s", ErrInvalidState, t.Status)
		}

		if t.FileName == "" {
			return nil, fmt.Errorf("%w: no upload credential issued for %s", ErrInvalidState, id)
		}

		now := ts.now()
		res := ts.dbClient.GetDB().WithContext(ctx).Model(&model.Transfer{}).
			Where("id = ? AND version = ? AND status = ?", t.ID, t.Version, model.StatusInit).
			Updates(map[string]any{
				"status":      model.StatusReady,
				"file_size":   *req.FileSize,
				"uploaded_at": now,
				"version":     gorm.Expr("version + 1"),
				"updated_at":  now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("complete upload %s: %w", id, res.Error)
		}

		if res.RowsAffected == 1 {
			updated, err := ts.loadTransfer(ctx, id)
			if err != nil {
				return nil, err
			}

			ts.publishReady(updated)

			resp := ts.toResponse(updated)

			return &resp, nil
		}
		// 版本竞争，重读后再判定一次状态
	}

	return nil, fmt.Errorf("%w: transfer %s", ErrConflict, id)
}
