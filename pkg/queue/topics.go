// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：tv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：transfer(传输生命周期)、notify(通知分发)、audit(审计)等
// 动作：生命周期相关(created/ready/expired/deleted)、访问相关(accessed/shared)

const (
	// 传输生命周期领域.
	TopicTransferCreated  = "tv.transfer.created"  // 传输记录已创建（INIT 状态，对象尚未上传）
	TopicTransferReady    = "tv.transfer.ready"    // 上传完成，传输可被下载
	TopicTransferExpired  = "tv.transfer.expired"  // 传输过期（惰性或后台任务固化）
	TopicTransferDeleted  = "tv.transfer.deleted"  // 传输被软删除（对象字节由清理任务处理）
	TopicTransferAccessed = "tv.transfer.accessed" // 下载凭证签发成功（消耗一次下载额度）
	TopicTransferShared   = "tv.transfer.shared"   // 下载链接通过邮件分享，由外部邮件工作者消费

	// 通知分发领域.
	TopicNotifyDispatched = "tv.notify.dispatched" // 通知已交给分发通道
	TopicNotifyFailed     = "tv.notify.failed"     // 通知分发失败（供重试/告警消费）

	// 审计领域.
	TopicAuditIssueDenied = "tv.audit.issue.denied" // 凭证签发被拒（过期/额度耗尽），供风控统计
)

// 主题分组，用于批量操作或权限控制.
var (
	// 传输生命周期相关主题集合.
	TransferTopics = []string{
		TopicTransferCreated, TopicTransferReady, TopicTransferExpired,
		TopicTransferDeleted, TopicTransferAccessed, TopicTransferShared,
	}

	// 通知分发相关主题集合.
	NotifyTopics = []string{
		TopicNotifyDispatched, TopicNotifyFailed,
	}

	// 审计相关主题集合.
	AuditTopics = []string{
		TopicAuditIssueDenied,
	}
)
