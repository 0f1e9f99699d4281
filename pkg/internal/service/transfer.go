package service

import (
	"context"
	"time"

	"github.com/yeisme/transvault/pkg/configs"
	ctxPkg "github.com/yeisme/transvault/pkg/context"
	"github.com/yeisme/transvault/pkg/internal/model"
	"github.com/yeisme/transvault/pkg/internal/notify"
	"github.com/yeisme/transvault/pkg/internal/storage/db"
	"github.com/yeisme/transvault/pkg/internal/storage/mq"
	"github.com/yeisme/transvault/pkg/internal/types"
	nlog "github.com/yeisme/transvault/pkg/log"
	"github.com/yeisme/transvault/pkg/metrics"
	"github.com/yeisme/transvault/pkg/queue"
)

// TransferService 传输生命周期核心服务.
// 所有时间判断走 now 注入的时钟（UTC），便于测试.
type TransferService struct {
	gateway    ObjectStorage
	dbClient   *db.Client
	mqClient   *mq.Client
	dispatcher notify.Dispatcher
	cfg        *configs.TransferConfig
	now        func() time.Time
}

// NewTransferService 从 context 聚合存储客户端构建服务.
func NewTransferService(c context.Context) *TransferService {
	s3c := ctxPkg.GetS3Client(c)
	dbc := ctxPkg.GetDBClient(c)
	mqc := ctxPkg.GetMQClient(c)

	svc := &TransferService{
		dbClient: dbc,
		mqClient: mqc,
		cfg:      &configs.GetConfig().Transfer,
		now:      func() time.Time { return time.Now().UTC() },
	}

	if s3c != nil {
		svc.gateway = NewS3Gateway(s3c, &configs.GetConfig().CircuitBreaker)
	}

	if mqc != nil {
		svc.dispatcher = notify.NewQueueDispatcher(mqc)
	}

	return svc
}

// toResponse 将模型转换为对外响应，状态按观察语义呈现（过期即 EXPIRED）.
func (ts *TransferService) toResponse(t *model.Transfer) types.TransferResponse {
	now := ts.now()
	status := t.EffectiveStatus(now)

	remaining := t.MaxDownloads - t.DownloadCount
	if remaining < 0 {
		remaining = 0
	}

	resp := types.TransferResponse{
		ID:                 t.ID,
		Status:             string(status),
		FileName:           t.FileName,
		ContentType:        t.ContentType,
		FileSize:           t.FileSize,
		MaxDownloads:       t.MaxDownloads,
		DownloadCount:      t.DownloadCount,
		RemainingDownloads: remaining,
		ExpiresAt:          t.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          t.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if t.UploadedAt != nil {
		resp.UploadedAt = t.UploadedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

// transferRef 构造事件引用.
func transferRef(t *model.Transfer) queue.TransferRef {
	return queue.TransferRef{
		TransferID:  t.ID,
		StorageKey:  t.StorageKey,
		FileName:    t.FileName,
		ContentType: t.ContentType,
		FileSize:    t.FileSize,
	}
}

// eventsEnabled 检查事件总开关与 MQ 可用性.
func (ts *TransferService) eventsEnabled() bool {
	return ts.mqClient != nil && configs.GetConfig().Events.Enabled
}

// publishCreated 尽力而为发布创建事件.
func (ts *TransferService) publishCreated(t *model.Transfer) {
	if !ts.eventsEnabled() || !configs.GetConfig().Events.Transfer.Created {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferCreated, queue.TransferCreatedPayload{
		Transfer:     transferRef(t),
		MaxDownloads: t.MaxDownloads,
		ExpiresAt:    t.ExpiresAt.UTC(),
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicTransferCreated, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish created event failed")
	}
}

// publishReady 尽力而为发布就绪事件.
func (ts *TransferService) publishReady(t *model.Transfer) {
	if !ts.eventsEnabled() || !configs.GetConfig().Events.Transfer.Ready {
		return
	}

	uploadedAt := ts.now()
	if t.UploadedAt != nil {
		uploadedAt = t.UploadedAt.UTC()
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferReady, queue.TransferReadyPayload{
		Transfer:   transferRef(t),
		UploadedAt: uploadedAt,
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicTransferReady, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish ready event failed")
	}
}

// publishDeleted 尽力而为发布删除事件.
func (ts *TransferService) publishDeleted(t *model.Transfer) {
	if !ts.eventsEnabled() || !configs.GetConfig().Events.Transfer.Deleted {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferDeleted, queue.TransferDeletedPayload{
		Transfer: transferRef(t),
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicTransferDeleted, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish deleted event failed")
	}
}

// publishAccessed 尽力而为发布访问事件（凭证签发成功后）.
func (ts *TransferService) publishAccessed(t *model.Transfer) {
	if !ts.eventsEnabled() || !configs.GetConfig().Events.Transfer.Accessed {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferAccessed, queue.TransferAccessedPayload{
		Transfer:      transferRef(t),
		DownloadCount: t.DownloadCount,
		MaxDownloads:  t.MaxDownloads,
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicTransferAccessed, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish accessed event failed")
	}
}

// publishIssueDenied 记录凭证签发被拒：计数指标始终累加，
// 审计事件在 MQ 可用时尽力而为发布.
func (ts *TransferService) publishIssueDenied(t *model.Transfer, reason string) {
	metrics.IssueDenied.WithLabelValues(reason).Inc()

	if !ts.eventsEnabled() {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicAuditIssueDenied, queue.IssueDeniedPayload{
		Transfer: transferRef(t),
		Reason:   reason,
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicAuditIssueDenied, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish issue denied event failed")
	}
}

// publishExpired 尽力而为发布过期事件（惰性固化时）.
func (ts *TransferService) publishExpired(t *model.Transfer) {
	if !ts.eventsEnabled() || !configs.GetConfig().Events.Transfer.Expired {
		return
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferExpired, queue.TransferExpiredPayload{
		Transfer:  transferRef(t),
		ExpiresAt: t.ExpiresAt.UTC(),
	}, queue.WithProducer(configs.AppName))
	if err == nil {
		err = ts.mqClient.Publish(context.Background(), queue.TopicTransferExpired, msg)
	}

	if err != nil {
		nlog.Logger().Warn().Err(err).Str("transfer", t.ID).Msg("publish expired event failed")
	}
}
