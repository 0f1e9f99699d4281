package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/notify"
	"github.com/yeisme/transvault/pkg/internal/types"
	nlog "github.com/yeisme/transvault/pkg/log"
	"github.com/yeisme/transvault/pkg/rule"
)

// ShareDownload 签发一条下载凭证并把链接通过通知通道分发给收件人.
// 签发消耗一次下载额度且走完整守卫；分发失败返回 ErrDependencyFailure，
// 但已消耗的额度不回滚（链接已经铸造，无法收回）.
func (ts *TransferService) ShareDownload(ctx context.Context, id string, req *types.ShareDownloadRequest) (*types.ShareDownloadResponse, error) {
	if len(req.Emails) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidArgument)
	}

	if maxN := ts.cfg.MaxRecipients(); len(req.Emails) > maxN {
		return nil, fmt.Errorf("%w: at most %d recipients per share", ErrInvalidArgument, maxN)
	}

	for _, email := range req.Emails {
		if err := rule.ValidateVar(email, "required,email"); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidArgument, email)
		}
	}

	if ts.dispatcher == nil {
		return nil, fmt.Errorf("%w: notification dispatcher unavailable", ErrDependencyFailure)
	}

	cred, err := ts.IssueDownloadCredential(ctx, id, req.ExpiryMinutes)
	if err != nil {
		return nil, err
	}

	t, err := ts.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	now := ts.now()
	urlExpiresAt := now.Add(time.Duration(cred.ExpiresIn) * time.Second)

	notice := &notify.DownloadNotice{
		TransferID:   t.ID,
		StorageKey:   t.StorageKey,
		FileName:     t.FileName,
		ContentType:  t.ContentType,
		FileSize:     t.FileSize,
		DownloadURL:  cred.DownloadURL,
		URLExpiresAt: urlExpiresAt,
		Message:      req.Message,
	}

	if err := ts.dispatcher.Send(ctx, req.Emails, notice); err != nil {
		return nil, fmt.Errorf("%w: dispatch notification: %v", ErrDependencyFailure, err)
	}

	shareID := newTransferID(now)
	record := &model.ShareRecord{
		ShareID:      shareID,
		TransferID:   t.ID,
		Recipients:   req.Emails,
		URLExpiresAt: urlExpiresAt,
		CreatedAt:    now,
	}

	// 审计记录尽力而为，落库失败不影响已完成的分发
	if share, err := model.FromRecord(record); err == nil {
		if err := ts.dbClient.GetDB().WithContext(ctx).Create(share).Error; err != nil {
			nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("persist share record failed")
		}
	}

	return &types.ShareDownloadResponse{
		ShareID:            shareID,
		TransferID:         t.ID,
		Recipients:         req.Emails,
		DownloadURL:        cred.DownloadURL,
		URLExpiresAt:       urlExpiresAt.Format(time.RFC3339),
		RemainingDownloads: cred.RemainingDownloads,
	}, nil
}
