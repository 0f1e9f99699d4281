package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 传输生命周期领域 --------------------------

// TransferRef 标识一条传输记录及其对象存储位置.
type TransferRef struct {
	TransferID  string `json:"transfer_id"`
	StorageKey  string `json:"storage_key,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	FileSize    *int64 `json:"file_size,omitempty"`
}

// TransferCreatedPayload 传输记录已创建（INIT）.
type TransferCreatedPayload struct {
	Transfer     TransferRef `json:"transfer"`
	MaxDownloads int         `json:"max_downloads"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// TransferReadyPayload 上传完成，传输进入 READY.
type TransferReadyPayload struct {
	Transfer   TransferRef `json:"transfer"`
	UploadedAt time.Time   `json:"uploaded_at"`
}

// TransferExpiredPayload 传输过期.
type TransferExpiredPayload struct {
	Transfer  TransferRef `json:"transfer"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// TransferDeletedPayload 传输被软删除.
type TransferDeletedPayload struct {
	Transfer TransferRef `json:"transfer"`
}

// TransferAccessedPayload 下载凭证签发成功，额度已扣减.
type TransferAccessedPayload struct {
	Transfer      TransferRef `json:"transfer"`
	DownloadCount int         `json:"download_count"`
	MaxDownloads  int         `json:"max_downloads"`
}

// TransferSharedPayload 下载链接通过邮件分享，外部邮件工作者消费该事件发送邮件.
type TransferSharedPayload struct {
	Transfer     TransferRef `json:"transfer"`
	Recipients   []string    `json:"recipients"`
	DownloadURL  string      `json:"download_url"`
	URLExpiresAt time.Time   `json:"url_expires_at"`
	Message      string      `json:"message,omitempty"`
}

// -------------------------- 通知分发领域 --------------------------

// NotifyDispatchedPayload 通知已成功交给分发通道.
type NotifyDispatchedPayload struct {
	Transfer   TransferRef `json:"transfer"`
	Channel    string      `json:"channel"` // 如 email
	Recipients []string    `json:"recipients"`
}

// NotifyFailedPayload 通知分发失败.
type NotifyFailedPayload struct {
	Transfer   TransferRef `json:"transfer"`
	Channel    string      `json:"channel"`
	Recipients []string    `json:"recipients,omitempty"`
	Error      string      `json:"error"`
}

// -------------------------- 审计领域 --------------------------

// IssueDeniedPayload 凭证签发被拒.
type IssueDeniedPayload struct {
	Transfer TransferRef `json:"transfer"`
	Reason   string      `json:"reason"` // expired / exhausted / invalid_state / not_found
}
