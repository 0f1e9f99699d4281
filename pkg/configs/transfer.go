package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUploadURLTTLMinutes   = 5     // 上传预签名URL有效期（分钟）
	DefaultDownloadURLTTLMinutes = 5     // 下载预签名URL默认有效期（分钟）
	MaxDownloadURLTTLMinutes     = 10080 // 下载预签名URL最大有效期（7天，分钟）
	DefaultTransferMaxDownloads  = 1     // 未指定时的下载次数上限
	DefaultListLimit             = 50    // 列表默认分页大小
	MaxListLimit                 = 100   // 列表最大分页大小
	DefaultUpdateRetries         = 3     // 乐观锁更新内部重试次数
	DefaultPurgeRetentionDays    = 30    // 已删除传输对象字节保留天数
	DefaultShareMaxRecipients    = 10    // 单次分享最大收件人数量
)

// TransferConfig 传输业务配置.
type TransferConfig struct {
	UploadURLTTLMinutes      int `mapstructure:"upload_url_ttl_minutes"       rule:"min=1,max=60"`
	DownloadURLTTLMinutes    int `mapstructure:"download_url_ttl_minutes"     rule:"min=1"`
	MaxDownloadURLTTLMinutes int `mapstructure:"max_download_url_ttl_minutes" rule:"min=1"`
	MaxDownloads             int `mapstructure:"max_downloads"                rule:"min=1"`
	ListLimit                int `mapstructure:"list_limit"                   rule:"min=1,max=1000"`
	ListMaxLimit             int `mapstructure:"list_max_limit"               rule:"min=1,max=1000"`
	ListCacheTTLSeconds      int `mapstructure:"list_cache_ttl_seconds"       rule:"min=0"`
	UpdateRetries            int `mapstructure:"update_retries"               rule:"min=1,max=10"`
	PurgeRetentionDays       int `mapstructure:"purge_retention_days"         rule:"min=1"`
	ShareMaxRecipients       int `mapstructure:"share_max_recipients"         rule:"min=1,max=100"`
}

// UploadURLTTL 返回上传预签名URL的有效期.
func (c *TransferConfig) UploadURLTTL() time.Duration {
	minutes := c.UploadURLTTLMinutes
	if minutes <= 0 {
		minutes = DefaultUploadURLTTLMinutes
	}

	return time.Duration(minutes) * time.Minute
}

// DownloadURLTTL 返回下载预签名URL的有效期，requested 为 0 时使用默认值，
// 超过上限时收敛到上限.
func (c *TransferConfig) DownloadURLTTL(requestedMinutes int) time.Duration {
	minutes := requestedMinutes
	if minutes <= 0 {
		minutes = c.DownloadURLTTLMinutes
	}

	if minutes <= 0 {
		minutes = DefaultDownloadURLTTLMinutes
	}

	maxMinutes := c.MaxDownloadURLTTLMinutes
	if maxMinutes <= 0 {
		maxMinutes = MaxDownloadURLTTLMinutes
	}

	if minutes > maxMinutes {
		minutes = maxMinutes
	}

	return time.Duration(minutes) * time.Minute
}

// DefaultMaxDownloads 返回未指定时的下载次数上限.
func (c *TransferConfig) DefaultMaxDownloads() int {
	if c.MaxDownloads <= 0 {
		return DefaultTransferMaxDownloads
	}

	return c.MaxDownloads
}

// ClampListLimit 将请求的分页大小收敛到合法区间.
func (c *TransferConfig) ClampListLimit(limit int) int {
	def := c.ListLimit
	if def <= 0 {
		def = DefaultListLimit
	}

	maxLimit := c.ListMaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxListLimit
	}

	if limit <= 0 {
		return def
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}

// Retries 返回乐观锁更新的内部重试次数.
func (c *TransferConfig) Retries() int {
	if c.UpdateRetries <= 0 {
		return DefaultUpdateRetries
	}

	return c.UpdateRetries
}

// PurgeRetention 返回已删除传输对象字节的保留时长.
func (c *TransferConfig) PurgeRetention() time.Duration {
	days := c.PurgeRetentionDays
	if days <= 0 {
		days = DefaultPurgeRetentionDays
	}

	return time.Duration(days) * 24 * time.Hour
}

// MaxRecipients 返回单次分享允许的最大收件人数量.
func (c *TransferConfig) MaxRecipients() int {
	if c.ShareMaxRecipients <= 0 {
		return DefaultShareMaxRecipients
	}

	return c.ShareMaxRecipients
}

// setDefaults 设置传输业务配置的默认值.
func (c *TransferConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("transfer.upload_url_ttl_minutes", DefaultUploadURLTTLMinutes)
	v.SetDefault("transfer.download_url_ttl_minutes", DefaultDownloadURLTTLMinutes)
	v.SetDefault("transfer.max_download_url_ttl_minutes", MaxDownloadURLTTLMinutes)
	v.SetDefault("transfer.max_downloads", DefaultTransferMaxDownloads)
	v.SetDefault("transfer.list_limit", DefaultListLimit)
	v.SetDefault("transfer.list_max_limit", MaxListLimit)
	v.SetDefault("transfer.list_cache_ttl_seconds", 0)
	v.SetDefault("transfer.update_retries", DefaultUpdateRetries)
	v.SetDefault("transfer.purge_retention_days", DefaultPurgeRetentionDays)
	v.SetDefault("transfer.share_max_recipients", DefaultShareMaxRecipients)
}
