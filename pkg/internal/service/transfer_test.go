package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/transvault/pkg/configs"
	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/notify"
	dbc "github.com/yeisme/transvault/pkg/internal/storage/db"
	"github.com/yeisme/transvault/pkg/internal/types"
)

// testClock 可拨动的测试时钟.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fakeGateway 假对象存储网关，记录调用并可注入错误.
type fakeGateway struct {
	presignErr error
	removed    []string
	mu         sync.Mutex
}

func (g *fakeGateway) PresignUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	if g.presignErr != nil {
		return "", g.presignErr
	}

	return "https://s3.test/upload/" + objectKey, nil
}

func (g *fakeGateway) PresignDownloadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	if g.presignErr != nil {
		return "", g.presignErr
	}

	return "https://s3.test/download/" + objectKey, nil
}

func (g *fakeGateway) RemoveObject(_ context.Context, objectKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removed = append(g.removed, objectKey)

	return nil
}

// recordingDispatcher 假通知分发器，记录每次分发的收件人.
type recordingDispatcher struct {
	sendErr    error
	recipients [][]string
	notices    []*notify.DownloadNotice
	mu         sync.Mutex
}

func (d *recordingDispatcher) Send(_ context.Context, recipients []string, notice *notify.DownloadNotice) error {
	if d.sendErr != nil {
		return d.sendErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.recipients = append(d.recipients, recipients)
	d.notices = append(d.notices, notice)

	return nil
}

var testDBSeq atomic.Int64

// newTestService 在内存 SQLite 上构建被测服务.
func newTestService(t *testing.T) (*TransferService, *fakeGateway, *recordingDispatcher, *testClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", testDBSeq.Add(1))

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// 共享内存库的连接生命周期与连接数绑定，单连接避免表丢失与写竞争
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(&model.Transfer{}, &model.Share{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &testClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	gw := &fakeGateway{}
	disp := &recordingDispatcher{}

	svc := &TransferService{
		gateway:    gw,
		dbClient:   &dbc.Client{DB: gdb},
		dispatcher: disp,
		cfg:        &configs.TransferConfig{},
		now:        clock.Now,
	}

	return svc, gw, disp, clock
}

// mustCreate 创建一条传输并返回响应.
func mustCreate(t *testing.T, svc *TransferService, clock *testClock, ttl time.Duration, maxDownloads int) *types.TransferResponse {
	t.Helper()

	req := &types.CreateTransferRequest{ExpiresAt: clock.Now().Add(ttl)}
	if maxDownloads > 0 {
		req.MaxDownloads = &maxDownloads
	}

	resp, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	return resp
}

// mustReady 创建并推进到 READY 状态.
func mustReady(t *testing.T, svc *TransferService, clock *testClock, ttl time.Duration, maxDownloads int) *types.TransferResponse {
	t.Helper()

	created := mustCreate(t, svc, clock, ttl, maxDownloads)

	ctx := context.Background()
	if _, err := svc.IssueUploadCredential(ctx, created.ID, &types.UploadURLRequest{
		FileName:    "report.pdf",
		ContentType: "application/pdf",
	}); err != nil {
		t.Fatalf("issue upload credential: %v", err)
	}

	size := int64(2048)

	resp, err := svc.CompleteUpload(ctx, created.ID, &types.CompleteUploadRequest{FileSize: &size})
	if err != nil {
		t.Fatalf("complete upload: %v", err)
	}

	return resp
}

func TestCreateTransfer(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	resp := mustCreate(t, svc, clock, time.Hour, 0)

	if resp.Status != string(model.StatusInit) {
		t.Fatalf("status = %s, want INIT", resp.Status)
	}

	if resp.MaxDownloads != 1 {
		t.Fatalf("max_downloads = %d, want default 1", resp.MaxDownloads)
	}

	if resp.RemainingDownloads != 1 {
		t.Fatalf("remaining = %d, want 1", resp.RemainingDownloads)
	}

	// 过期时间必须在未来
	if _, err := svc.Create(ctx, &types.CreateTransferRequest{ExpiresAt: clock.Now().Add(-time.Minute)}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("past expires_at: err = %v, want ErrInvalidArgument", err)
	}

	// 等于当前时间也不行
	if _, err := svc.Create(ctx, &types.CreateTransferRequest{ExpiresAt: clock.Now()}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("now expires_at: err = %v, want ErrInvalidArgument", err)
	}

	bad := 0
	if _, err := svc.Create(ctx, &types.CreateTransferRequest{ExpiresAt: clock.Now().Add(time.Hour), MaxDownloads: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("max_downloads=0: err = %v, want ErrInvalidArgument", err)
	}
}

func TestUploadCredentialLifecycle(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, clock, time.Hour, 0)

	// INIT 状态签发成功并记录文件名
	urlResp, err := svc.IssueUploadCredential(ctx, created.ID, &types.UploadURLRequest{FileName: "a.txt", ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("issue upload: %v", err)
	}

	if urlResp.ObjectKey != "transfers/"+created.ID {
		t.Fatalf("object_key = %s", urlResp.ObjectKey)
	}

	// 仍处 INIT 允许重复签发，文件名被覆盖
	if _, err := svc.IssueUploadCredential(ctx, created.ID, &types.UploadURLRequest{FileName: "b.txt"}); err != nil {
		t.Fatalf("re-issue upload: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.FileName != "b.txt" {
		t.Fatalf("file_name = %s, want b.txt", got.FileName)
	}

	// 非法文件名
	for _, name := range []string{"", "  ", "a/b.txt", `a\b.txt`, "../etc/passwd"} {
		if _, err := svc.IssueUploadCredential(ctx, created.ID, &types.UploadURLRequest{FileName: name}); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("filename %q: err = %v, want ErrInvalidArgument", name, err)
		}
	}

	// 完成上传，进入 READY
	size := int64(100)

	ready, err := svc.CompleteUpload(ctx, created.ID, &types.CompleteUploadRequest{FileSize: &size})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if ready.Status != string(model.StatusReady) {
		t.Fatalf("status = %s, want READY", ready.Status)
	}

	if ready.FileSize == nil || *ready.FileSize != 100 {
		t.Fatalf("file_size = %v, want 100", ready.FileSize)
	}

	if ready.UploadedAt == "" {
		t.Fatal("uploaded_at not recorded")
	}

	// READY 后不能再签发上传凭证
	if _, err := svc.IssueUploadCredential(ctx, created.ID, &types.UploadURLRequest{FileName: "c.txt"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("issue on READY: err = %v, want ErrInvalidState", err)
	}

	// READY 后不能重复完成
	if _, err := svc.CompleteUpload(ctx, created.ID, &types.CompleteUploadRequest{FileSize: &size}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("complete on READY: err = %v, want ErrInvalidState", err)
	}
}

func TestCompleteWithoutCredential(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, clock, time.Hour, 0)
	size := int64(1)

	// 未签发过上传凭证（无文件名记录）不允许完成
	if _, err := svc.CompleteUpload(ctx, created.ID, &types.CompleteUploadRequest{FileSize: &size}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestDownloadIssuance(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 2)

	first, err := svc.IssueDownloadCredential(ctx, ready.ID, 0)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}

	if first.RemainingDownloads != 1 {
		t.Fatalf("remaining = %d, want 1", first.RemainingDownloads)
	}

	if first.ExpiresIn != int((5 * time.Minute).Seconds()) {
		t.Fatalf("expires_in = %d, want default 300", first.ExpiresIn)
	}

	second, err := svc.IssueDownloadCredential(ctx, ready.ID, 0)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if second.RemainingDownloads != 0 {
		t.Fatalf("remaining = %d, want 0", second.RemainingDownloads)
	}

	// 额度耗尽
	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("exhausted: err = %v, want ErrResourceExhausted", err)
	}

	// 未知 ID
	if _, err := svc.IssueDownloadCredential(ctx, "01TVUNKNOWN000000000000000", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: err = %v, want ErrNotFound", err)
	}

	// INIT 状态不可下载
	initOnly := mustCreate(t, svc, clock, time.Hour, 0)
	if _, err := svc.IssueDownloadCredential(ctx, initOnly.ID, 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("init state: err = %v, want ErrInvalidState", err)
	}
}

func TestDownloadTTLClamp(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, 30*24*time.Hour, 10)

	// 超过 7 天上限的请求被收敛
	resp, err := svc.IssueDownloadCredential(ctx, ready.ID, 20000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if want := int((10080 * time.Minute).Seconds()); resp.ExpiresIn != want {
		t.Fatalf("expires_in = %d, want %d", resp.ExpiresIn, want)
	}
}

// 并发签发下载凭证时，成功次数恰好等于剩余额度.
func TestDownloadConcurrentBudget(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	const budget = 5

	const workers = 20

	ready := mustReady(t, svc, clock, time.Hour, budget)

	var (
		ok        atomic.Int64
		exhausted atomic.Int64
		other     atomic.Int64
		wg        sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.IssueDownloadCredential(ctx, ready.ID, 0)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrResourceExhausted):
				exhausted.Add(1)
			default:
				other.Add(1)
			}
		}()
	}

	wg.Wait()

	if ok.Load() != budget {
		t.Fatalf("successes = %d, want %d", ok.Load(), budget)
	}

	if other.Load() != 0 {
		t.Fatalf("unexpected errors: %d", other.Load())
	}

	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.DownloadCount != budget {
		t.Fatalf("download_count = %d, want %d", got.DownloadCount, budget)
	}
}

// 过期后所有签发路径拒绝，且惰性固化落库.
func TestExpiryGating(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 3)

	clock.Advance(2 * time.Hour)

	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); !errors.Is(err, ErrGone) {
		t.Fatalf("download after expiry: err = %v, want ErrGone", err)
	}

	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != string(model.StatusExpired) {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}

	// 固化后的存储状态同样是 EXPIRED
	var row model.Transfer
	if err := svc.dbClient.GetDB().First(&row, "id = ?", ready.ID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}

	if row.Status != model.StatusExpired {
		t.Fatalf("stored status = %s, want EXPIRED", row.Status)
	}

	// 过期的 INIT 记录不能签发上传凭证
	expired := mustCreate(t, svc, clock, time.Minute, 0)
	clock.Advance(time.Hour)

	if _, err := svc.IssueUploadCredential(ctx, expired.ID, &types.UploadURLRequest{FileName: "x.txt"}); !errors.Is(err, ErrGone) {
		t.Fatalf("upload after expiry: err = %v, want ErrGone", err)
	}
}

// 复活：EXPIRED 记录延长有效期并置回 READY，下载计数保留.
func TestRevive(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 3)

	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.Advance(2 * time.Hour)

	if _, err := svc.Get(ctx, ready.ID); err != nil { // 触发惰性固化
		t.Fatalf("get: %v", err)
	}

	// 不带未来有效期的复活被拒绝
	status := string(model.StatusReady)
	if _, err := svc.Update(ctx, ready.ID, &types.UpdateTransferRequest{Status: &status}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("revive without expiry: err = %v, want ErrInvalidArgument", err)
	}

	// 带未来有效期的复活成功
	newExpiry := clock.Now().Add(24 * time.Hour)

	revived, err := svc.Update(ctx, ready.ID, &types.UpdateTransferRequest{Status: &status, ExpiresAt: &newExpiry})
	if err != nil {
		t.Fatalf("revive: %v", err)
	}

	if revived.Status != string(model.StatusReady) {
		t.Fatalf("status = %s, want READY", revived.Status)
	}

	if revived.DownloadCount != 1 {
		t.Fatalf("download_count = %d, want preserved 1", revived.DownloadCount)
	}

	// 复活后可以继续下载
	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); err != nil {
		t.Fatalf("download after revive: %v", err)
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, clock, time.Hour, 0)

	// 空更新
	if _, err := svc.Update(ctx, created.ID, &types.UpdateTransferRequest{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty update: err = %v, want ErrInvalidArgument", err)
	}

	// 非法状态值
	bad := "DELETED"
	if _, err := svc.Update(ctx, created.ID, &types.UpdateTransferRequest{Status: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("status=DELETED: err = %v, want ErrInvalidArgument", err)
	}

	// INIT 状态不允许状态迁移
	ready := string(model.StatusReady)
	if _, err := svc.Update(ctx, created.ID, &types.UpdateTransferRequest{Status: &ready}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("status change on INIT: err = %v, want ErrInvalidState", err)
	}

	// 单独延长有效期合法，不改变状态
	newExpiry := clock.Now().Add(48 * time.Hour)

	updated, err := svc.Update(ctx, created.ID, &types.UpdateTransferRequest{ExpiresAt: &newExpiry})
	if err != nil {
		t.Fatalf("extend expiry: %v", err)
	}

	if updated.Status != string(model.StatusInit) {
		t.Fatalf("status = %s, want INIT unchanged", updated.Status)
	}

	// DELETED 记录不允许更新
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Update(ctx, created.ID, &types.UpdateTransferRequest{ExpiresAt: &newExpiry}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("update deleted: err = %v, want ErrInvalidState", err)
	}
}

// 删除幂等，删除后按不存在处理下载请求.
func TestDeleteIdempotent(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 1)

	if err := svc.Delete(ctx, ready.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}

	if err := svc.Delete(ctx, ready.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.Status != string(model.StatusDeleted) {
		t.Fatalf("status = %s, want DELETED", got.Status)
	}

	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("download deleted: err = %v, want ErrNotFound", err)
	}

	// 未知 ID 删除仍是 NotFound
	if err := svc.Delete(ctx, "01TVUNKNOWN000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete unknown: err = %v, want ErrNotFound", err)
	}
}

// 分页确定性：相同排序键按 id 升序稳定输出，total 不受分页影响.
func TestListPagination(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	const total = 7

	for i := 0; i < total; i++ {
		mustCreate(t, svc, clock, time.Hour, 0)
	}

	seen := map[string]bool{}

	for offset := 0; offset < total; offset += 3 {
		page, err := svc.List(ctx, &types.ListTransfersQuery{SortBy: "created_at", Order: "asc", Limit: 3, Offset: offset})
		if err != nil {
			t.Fatalf("list offset %d: %v", offset, err)
		}

		if page.TotalCount != total {
			t.Fatalf("total = %d, want %d", page.TotalCount, total)
		}

		for _, item := range page.Items {
			if seen[item.ID] {
				t.Fatalf("duplicate item %s across pages", item.ID)
			}

			seen[item.ID] = true
		}
	}

	if len(seen) != total {
		t.Fatalf("collected %d unique items, want %d", len(seen), total)
	}

	// 默认与上限收敛
	page, err := svc.List(ctx, &types.ListTransfersQuery{})
	if err != nil {
		t.Fatalf("list default: %v", err)
	}

	if page.Limit != 50 {
		t.Fatalf("default limit = %d, want 50", page.Limit)
	}

	page, err = svc.List(ctx, &types.ListTransfersQuery{Limit: 1000})
	if err != nil {
		t.Fatalf("list big limit: %v", err)
	}

	if page.Limit != 100 {
		t.Fatalf("clamped limit = %d, want 100", page.Limit)
	}

	// 白名单外的排序字段
	if _, err := svc.List(ctx, &types.ListTransfersQuery{SortBy: "storage_key"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad sort_by: err = %v, want ErrInvalidArgument", err)
	}

	// 非法状态过滤
	if _, err := svc.List(ctx, &types.ListTransfersQuery{Status: "UPLOADING"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad status: err = %v, want ErrInvalidArgument", err)
	}
}

// 列表按观察语义呈现：过期未固化的 READY 行归入 EXPIRED.
func TestListDerivedExpired(t *testing.T) {
	svc, _, _, clock := newTestService(t)
	ctx := context.Background()

	short := mustReady(t, svc, clock, time.Minute, 1)
	long := mustReady(t, svc, clock, 24*time.Hour, 1)

	clock.Advance(time.Hour)

	expiredPage, err := svc.List(ctx, &types.ListTransfersQuery{Status: "expired"})
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}

	if expiredPage.TotalCount != 1 || expiredPage.Items[0].ID != short.ID {
		t.Fatalf("expired page = %+v, want only %s", expiredPage.Items, short.ID)
	}

	if expiredPage.Items[0].Status != string(model.StatusExpired) {
		t.Fatalf("derived status = %s, want EXPIRED", expiredPage.Items[0].Status)
	}

	readyPage, err := svc.List(ctx, &types.ListTransfersQuery{Status: "READY"})
	if err != nil {
		t.Fatalf("list ready: %v", err)
	}

	if readyPage.TotalCount != 1 || readyPage.Items[0].ID != long.ID {
		t.Fatalf("ready page = %+v, want only %s", readyPage.Items, long.ID)
	}
}

func TestGatewayFailure(t *testing.T) {
	svc, gw, _, clock := newTestService(t)
	ctx := context.Background()

	ready := mustReady(t, svc, clock, time.Hour, 1)

	gw.presignErr = errors.New("connection refused")

	if _, err := svc.IssueDownloadCredential(ctx, ready.ID, 0); !errors.Is(err, ErrDependencyFailure) {
		t.Fatalf("err = %v, want ErrDependencyFailure", err)
	}

	// 铸造失败不消耗额度
	got, err := svc.Get(ctx, ready.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.DownloadCount != 0 {
		t.Fatalf("download_count = %d, want 0", got.DownloadCount)
	}
}
