package service

import "errors"

// 业务错误哨兵，service 层统一返回，handle 层映射 HTTP 状态码.
// 具体上下文通过 fmt.Errorf("%w: ...") 包装，调用方用 errors.Is 判别.
var (
	// ErrInvalidArgument 请求参数非法（过期时间非未来、max_downloads<1、文件名非法等）.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound 记录不存在，或对当前操作而言等同不存在（如对 DELETED 签发下载）.
	ErrNotFound = errors.New("transfer not found")
	// ErrInvalidState 当前状态不允许该操作（如对 READY 记录签发上传凭证）.
	ErrInvalidState = errors.New("invalid transfer state")
	// ErrGone 记录已过有效期.
	ErrGone = errors.New("transfer expired")
	// ErrResourceExhausted 下载额度已耗尽.
	ErrResourceExhausted = errors.New("download limit reached")
	// ErrConflict 并发更新冲突，重试耗尽.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrDependencyFailure 外部依赖（对象存储网关、通知分发）失败.
	ErrDependencyFailure = errors.New("dependency failure")
)
