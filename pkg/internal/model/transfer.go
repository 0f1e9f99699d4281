package model

import (
	"time"
)

// TransferStatus 传输记录的生命周期状态.
type TransferStatus string

const (
	// StatusInit 记录已创建，对象尚未上传.
	StatusInit TransferStatus = "INIT"
	// StatusReady 上传完成，可签发下载凭证.
	StatusReady TransferStatus = "READY"
	// StatusExpired 已过期；可通过更新有效期复活回 READY.
	StatusExpired TransferStatus = "EXPIRED"
	// StatusDeleted 已软删除，终态.
	StatusDeleted TransferStatus = "DELETED"
)

// Valid 判断状态值是否合法.
func (s TransferStatus) Valid() bool {
	switch s {
	case StatusInit, StatusReady, StatusExpired, StatusDeleted:
		return true
	default:
		return false
	}
}

// Transfer 传输记录模型.
// 状态机：INIT → READY →（EXPIRED ⇄ READY）→ DELETED；DELETED 为终态.
// download_count<=max_downloads 只在凭证签发的条件更新里保证，列本身不设约束.
type Transfer struct {
	// ULID，按时间有序，列表分页用它做平局裁决
	ID     string         `gorm:"primaryKey;size:26" json:"id"`
	Status TransferStatus `gorm:"size:16;index"      json:"status"`
	// 签发上传凭证时记录；INIT 且未签发过时为空
	FileName    string `gorm:"size:512"  json:"file_name,omitempty"`
	ContentType string `gorm:"size:255"  json:"content_type,omitempty"`
	// 上传完成后由客户端申报的字节数；完成前为 NULL
	FileSize      *int64 `gorm:"index" json:"file_size,omitempty"`
	MaxDownloads  int    `json:"max_downloads"`
	DownloadCount int    `json:"download_count"`
	// 对象存储键，创建时生成且不可变，不对外暴露
	StorageKey string    `gorm:"size:128;uniqueIndex" json:"-"`
	ExpiresAt  time.Time `gorm:"index"                json:"expires_at"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
	// 清理任务删除对象字节后打标，避免重复清理
	PurgedAt *time.Time `gorm:"index" json:"-"`
	// 乐观并发控制计数器
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名.
func (Transfer) TableName() string {
	return "transfers"
}

// PastDue 判断记录在 now 时刻是否已过有效期.
func (t *Transfer) PastDue(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// EffectiveStatus 返回观察语义下的状态：READY/INIT 且已过期时呈现为 EXPIRED，
// 存储中的固化由惰性写回或后台任务完成.
func (t *Transfer) EffectiveStatus(now time.Time) TransferStatus {
	if (t.Status == StatusReady || t.Status == StatusInit) && t.PastDue(now) {
		return StatusExpired
	}

	return t.Status
}

// Exhausted 判断下载额度是否已耗尽.
func (t *Transfer) Exhausted() bool {
	return t.DownloadCount >= t.MaxDownloads
}
