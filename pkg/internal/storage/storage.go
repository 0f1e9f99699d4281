// Package storage 聚合并初始化存储资源：数据库、对象存储、键值存储与消息队列.
//
// Example:
//
// 初始化
//
//	 ctx := context.Background()
//	 mgr, err := storage.Init(ctx)
//
//		if err != nil {
//		    // 处理错误
//		}
//
// 获取存储客户端
//
//	s3Client := mgr.GetS3Client()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"sync"

	"github.com/yeisme/transvault/pkg/configs"
	dbc "github.com/yeisme/transvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/transvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/transvault/pkg/internal/storage/mq"
	s3c "github.com/yeisme/transvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/transvault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
// DB 与 S3 是必需资源，初始化失败直接返回错误；
// KV 与 MQ 是可选资源，失败时记录告警后继续（对应功能退化）.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		m := &Manager{}

		// DB
		if dbi, e := dbc.New(ctx); e != nil {
			err = e

			return
		} else {
			m.DB = dbi
		}

		// S3
		if s3i, e := s3c.New(ctx); e != nil {
			err = e

			return
		} else {
			m.S3 = s3i
		}

		// KV
		if kvi, e := kvc.New(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("KV store unavailable, cache disabled")
		} else {
			m.KV = kvi
		}

		// MQ
		if mqi, e := mqc.New(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("MQ unavailable, event publishing disabled")
		} else {
			m.MQ = mqi
		}

		mgr = m

		nlog.Logger().Info().
			Str("app", configs.AppName).
			Msg("storage manager initialized")
	})

	return mgr, err
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}
