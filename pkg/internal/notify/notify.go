// Package notify 提供下载链接分享通知的分发抽象.
// 生产实现将 tv.transfer.shared 事件发布到消息队列，
// 由外部邮件工作者消费该主题并实际发送邮件；服务本身不做 SMTP.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/yeisme/transvault/pkg/configs"
	"github.com/yeisme/transvault/pkg/internal/storage/mq"
	"github.com/yeisme/transvault/pkg/queue"
)

// DownloadNotice 一次分享通知的内容.
type DownloadNotice struct {
	TransferID   string
	StorageKey   string
	FileName     string
	ContentType  string
	FileSize     *int64
	DownloadURL  string
	URLExpiresAt time.Time
	Message      string
}

// Dispatcher 通知分发接口.
type Dispatcher interface {
	// Send 将通知交给分发通道，返回错误表示通道不可用或投递失败.
	Send(ctx context.Context, recipients []string, notice *DownloadNotice) error
}

// queueDispatcher 基于 MQ 的 Dispatcher 实现.
type queueDispatcher struct {
	mqClient *mq.Client
}

// NewQueueDispatcher 创建基于消息队列的分发器.
func NewQueueDispatcher(mqClient *mq.Client) Dispatcher {
	return &queueDispatcher{mqClient: mqClient}
}

// Send 发布 tv.transfer.shared 事件.
func (d *queueDispatcher) Send(ctx context.Context, recipients []string, notice *DownloadNotice) error {
	if d.mqClient == nil {
		return fmt.Errorf("mq client not initialized")
	}

	payload := queue.TransferSharedPayload{
		Transfer: queue.TransferRef{
			TransferID:  notice.TransferID,
			StorageKey:  notice.StorageKey,
			FileName:    notice.FileName,
			ContentType: notice.ContentType,
			FileSize:    notice.FileSize,
		},
		Recipients:   recipients,
		DownloadURL:  notice.DownloadURL,
		URLExpiresAt: notice.URLExpiresAt.UTC(),
		Message:      notice.Message,
	}

	msg, err := queue.NewWatermillMessage(queue.TopicTransferShared, payload,
		queue.WithProducer(configs.AppName))
	if err != nil {
		return fmt.Errorf("encode shared event: %w", err)
	}

	return d.mqClient.Publish(ctx, queue.TopicTransferShared, msg)
}
