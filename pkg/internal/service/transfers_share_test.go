package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/types"
)

func TestShareDownload(t *testing.T) {
	svc, _, disp, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 2)

	resp, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{
		Emails:  []string{"alice@example.com", "bob@example.com"},
		Message: "here you go",
	})
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	if resp.RemainingDownloads != 1 {
		t.Fatalf("remaining = %d, want 1 (share consumes a slot)", resp.RemainingDownloads)
	}

	if len(disp.recipients) != 1 || len(disp.recipients[0]) != 2 {
		t.Fatalf("dispatched recipients = %v", disp.recipients)
	}

	if disp.notices[0].DownloadURL != resp.DownloadURL {
		t.Fatalf("notice url = %s, want %s", disp.notices[0].DownloadURL, resp.DownloadURL)
	}

	if disp.notices[0].Message != "here you go" {
		t.Fatalf("notice message = %q", disp.notices[0].Message)
	}

	// 审计记录落库
	var share model.Share
	if err := svc.dbClient.GetDB().First(&share, "share_id = ?", resp.ShareID).Error; err != nil {
		t.Fatalf("load share record: %v", err)
	}

	record, err := share.ToRecord()
	if err != nil {
		t.Fatalf("decode share record: %v", err)
	}

	if len(record.Recipients) != 2 || record.TransferID != ready.ID {
		t.Fatalf("share record = %+v", record)
	}
}

func TestShareDownloadValidation(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 5)

	// 无收件人
	if _, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("no recipients: err = %v, want ErrInvalidArgument", err)
	}

	// 非法邮箱
	if _, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{Emails: []string{"not-an-email"}}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad email: err = %v, want ErrInvalidArgument", err)
	}

	// 收件人数量超限（默认上限 10）
	many := make([]string, 11)
	for i := range many {
		many[i] = "user@example.com"
	}

	if _, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{Emails: many}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("too many recipients: err = %v, want ErrInvalidArgument", err)
	}

	// 校验失败不消耗额度
	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.DownloadCount != 0 {
		t.Fatalf("download_count = %d, want 0", got.DownloadCount)
	}
}

// 分发失败返回依赖错误，但已签发的额度不回滚.
func TestShareDispatchFailureKeepsSlot(t *testing.T) {
	svc, _, disp, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 1)

	disp.sendErr = errors.New("broker down")

	if _, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{Emails: []string{"alice@example.com"}}); !errors.Is(err, ErrDependencyFailure) {
		t.Fatalf("err = %v, want ErrDependencyFailure", err)
	}

	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.DownloadCount != 1 {
		t.Fatalf("download_count = %d, want 1 (slot stays consumed)", got.DownloadCount)
	}
}

// 分享走完整下载守卫：过期与额度耗尽同样拒绝.
func TestShareGuards(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Minute, 1)

	clock.Advance(time.Hour)

	if _, err := svc.ShareDownload(ctx, ready.ID, &types.ShareDownloadRequest{Emails: []string{"a@example.com"}}); !errors.Is(err, ErrGone) {
		t.Fatalf("share expired: err = %v, want ErrGone", err)
	}
}
