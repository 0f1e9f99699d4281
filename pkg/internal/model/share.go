package model

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Share 数据库模型：记录一次下载链接的邮件分享，供审计与统计。
// 收件人列表以 JSON 文本存储以保持实现简单。
// 注意：后续如需按收件人查询，可拆为 share_recipients 关联表。
type Share struct {
	ShareID        string    `gorm:"primaryKey;size:26" json:"share_id"`
	TransferID     string    `gorm:"size:26;index"      json:"transfer_id"`
	RecipientsJSON string    `gorm:"type:text"          json:"-"`
	URLExpiresAt   time.Time `json:"url_expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名.
func (Share) TableName() string {
	return "shares"
}

// ShareRecord 供 service 层使用的内部结构。
// 这里定义一个轻量结构，避免 service 直接依赖 model 的 JSON 细节。
type ShareRecord struct {
	ShareID      string
	TransferID   string
	Recipients   []string
	URLExpiresAt time.Time
	CreatedAt    time.Time
}

// ToRecord 将 DB 模型反序列化为 ShareRecord。
func (s *Share) ToRecord() (*ShareRecord, error) {
	var recipients []string
	if s.RecipientsJSON != "" {
		if err := sonic.Unmarshal([]byte(s.RecipientsJSON), &recipients); err != nil {
			return nil, fmt.Errorf("unmarshal recipients: %w", err)
		}
	}

	return &ShareRecord{
		ShareID:      s.ShareID,
		TransferID:   s.TransferID,
		Recipients:   recipients,
		URLExpiresAt: s.URLExpiresAt,
		CreatedAt:    s.CreatedAt,
	}, nil
}

// FromRecord 将 ShareRecord 序列化为 DB 模型。
func FromRecord(r *ShareRecord) (*Share, error) {
	recipientsBytes, err := sonic.Marshal(r.Recipients)
	if err != nil {
		return nil, fmt.Errorf("marshal recipients: %w", err)
	}

	return &Share{
		ShareID:        r.ShareID,
		TransferID:     r.TransferID,
		RecipientsJSON: string(recipientsBytes),
		URLExpiresAt:   r.URLExpiresAt,
		CreatedAt:      r.CreatedAt,
	}, nil
}
