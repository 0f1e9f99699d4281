package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobExpiryReconcile = "transfer.expiry.reconcile"
	JobPurgeDeleted    = "transfer.purge.deleted"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronExpiryReconcile = "*/5 * * * *"
	CronPurgeDeleted    = "30 3 * * *"
)
