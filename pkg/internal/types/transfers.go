// Package types 定义对外请求和响应结构.
package types

import "time"

// CreateTransferRequest 创建传输请求.
type CreateTransferRequest struct {
	ExpiresAt    time.Time `json:"expires_at" binding:"required"` // 过期时间，必须晚于当前时间
	MaxDownloads *int      `json:"max_downloads,omitempty"`       // 下载额度，缺省为 1
}

// TransferResponse 传输详情响应.时间均为 RFC3339 UTC.
type TransferResponse struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	FileName           string `json:"file_name,omitempty"`
	ContentType        string `json:"content_type,omitempty"`
	FileSize           *int64 `json:"file_size,omitempty"`
	MaxDownloads       int    `json:"max_downloads"`
	DownloadCount      int    `json:"download_count"`
	RemainingDownloads int    `json:"remaining_downloads"`
	ExpiresAt          string `json:"expires_at"`
	UploadedAt         string `json:"uploaded_at,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

// UpdateTransferRequest 更新传输请求.均为可选字段，只更新出现的字段.
type UpdateTransferRequest struct {
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`    // 新过期时间，必须晚于当前时间
	MaxDownloads *int       `json:"max_downloads,omitempty"` // 新下载额度，必须 >= 1
	Status       *string    `json:"status,omitempty"`        // 仅允许 READY/EXPIRED 之间的受控迁移
}

// ListTransfersQuery 列表查询参数.
type ListTransfersQuery struct {
	Status    string `form:"status"`     // 按观察状态过滤（INIT/READY/EXPIRED/DELETED）
	CreatedGe string `form:"created_ge"` // 创建时间下界（RFC3339）
	CreatedLe string `form:"created_le"` // 创建时间上界（RFC3339）
	SortBy    string `form:"sort_by"`    // created_at/expires_at/file_size/status
	Order     string `form:"order"`      // asc/desc，默认 desc
	Limit     int    `form:"limit"`      // 单页条数，[1,100]，默认 50
	Offset    int    `form:"offset"`     // 偏移，负数按 0 处理
}

// ListTransfersResponse 列表响应.
type ListTransfersResponse struct {
	Items      []TransferResponse `json:"items"`
	TotalCount int64              `json:"total_count"` // 过滤后总数（不受分页影响）
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// UploadURLRequest 签发上传凭证请求.
type UploadURLRequest struct {
	FileName    string `json:"file_name"   binding:"required"` // 原始文件名，不允许路径分隔符
	ContentType string `json:"content_type"`                   // 可选，提供则绑定到预签名 URL
}

// UploadURLResponse 上传凭证响应.
type UploadURLResponse struct {
	TransferID string `json:"transfer_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
	ExpiresIn  int    `json:"expires_in"` // 凭证有效期（秒）
}

// CompleteUploadRequest 上传完成声明.
type CompleteUploadRequest struct {
	FileSize *int64 `json:"file_size" binding:"required"` // 实际上传的字节数
}

// DownloadURLQuery 签发下载凭证的查询参数.
type DownloadURLQuery struct {
	ExpiryMinutes int `form:"expiry_minutes"` // 链接有效期（分钟），上限 7 天
}

// DownloadURLResponse 下载凭证响应.
type DownloadURLResponse struct {
	TransferID         string `json:"transfer_id"`
	DownloadURL        string `json:"download_url"`
	ExpiresIn          int    `json:"expires_in"` // 链接有效期（秒）
	RemainingDownloads int    `json:"remaining_downloads"`
}

// ShareDownloadRequest 邮件分享下载链接请求.
type ShareDownloadRequest struct {
	Emails        []string `json:"emails"         binding:"required,min=1,dive,email"`
	ExpiryMinutes int      `json:"expiry_minutes"` // 链接有效期（分钟），上限 7 天
	Message       string   `json:"message"`        // 附加留言，透传给通知通道
}

// ShareDownloadResponse 分享响应.
type ShareDownloadResponse struct {
	ShareID            string   `json:"share_id"`
	TransferID         string   `json:"transfer_id"`
	Recipients         []string `json:"recipients"`
	DownloadURL        string   `json:"download_url"`
	URLExpiresAt       string   `json:"url_expires_at"`
	RemainingDownloads int      `json:"remaining_downloads"`
}
