package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker"

	"github.com/yeisme/transvault/pkg/configs"
	"github.com/yeisme/transvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/transvault/pkg/log"
)

// ObjectStorage 对象存储网关，屏蔽具体实现，凭证签发只依赖这三个能力.
type ObjectStorage interface {
	// PresignUploadURL 生成绑定对象键与内容类型的预签名 PUT URL.
	PresignUploadURL(ctx context.Context, objectKey, contentType string, ttl time.Duration) (string, error)
	// PresignDownloadURL 生成预签名 GET URL，附带下载文件名响应头.
	PresignDownloadURL(ctx context.Context, objectKey, fileName string, ttl time.Duration) (string, error)
	// RemoveObject 删除对象字节（清理任务使用）.
	RemoveObject(ctx context.Context, objectKey string) error
}

// s3Gateway 基于 MinIO 客户端的 ObjectStorage 实现，可选熔断保护.
type s3Gateway struct {
	client  *s3.Client
	bucket  string
	breaker *gobreaker.CircuitBreaker
}

// NewS3Gateway 创建 S3 网关.熔断配置启用时，签发调用经过 gobreaker.
func NewS3Gateway(client *s3.Client, cbCfg *configs.CircuitBreakerConfig) ObjectStorage {
	g := &s3Gateway{
		client: client,
		bucket: client.GetConfig().BucketName,
	}

	if cbCfg != nil && cbCfg.Enabled {
		settings := gobreaker.Settings{
			Name:        "s3-gateway",
			MaxRequests: cbCfg.MaxRequestsInHalf,
			Interval:    time.Duration(cbCfg.IntervalSeconds) * time.Second,
			Timeout:     time.Duration(cbCfg.TimeoutSeconds) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cbCfg.MinRequests {
					return false
				}

				failureRate := float64(counts.TotalFailures) / float64(counts.Requests)

				return failureRate >= cbCfg.FailureRate
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				nlog.Logger().Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("s3 gateway breaker state changed")
			},
		}
		g.breaker = gobreaker.NewCircuitBreaker(settings)
	}

	return g
}

// execute 经过熔断器（若启用）执行网关调用.
func (g *s3Gateway) execute(fn func() (string, error)) (string, error) {
	if g.breaker == nil {
		return fn()
	}

	result, err := g.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}

	s, _ := result.(string)

	return s, nil
}

// PresignUploadURL 生成预签名 PUT URL.内容类型通过签名头绑定，上传方必须回传一致的 Content-Type.
func (g *s3Gateway) PresignUploadURL(ctx context.Context, objectKey, contentType string, ttl time.Duration) (string, error) {
	return g.execute(func() (string, error) {
		if contentType != "" {
			headers := http.Header{}
			headers.Set("Content-Type", contentType)

			u, err := g.client.PresignHeader(ctx, http.MethodPut, g.bucket, objectKey, ttl, url.Values{}, headers)
			if err != nil {
				return "", fmt.Errorf("presign put %s: %w", objectKey, err)
			}

			return u.String(), nil
		}

		u, err := g.client.PresignedPutObject(ctx, g.bucket, objectKey, ttl)
		if err != nil {
			return "", fmt.Errorf("presign put %s: %w", objectKey, err)
		}

		return u.String(), nil
	})
}

// PresignDownloadURL 生成预签名 GET URL，设置 attachment 响应头还原原始文件名.
func (g *s3Gateway) PresignDownloadURL(ctx context.Context, objectKey, fileName string, ttl time.Duration) (string, error) {
	return g.execute(func() (string, error) {
		var params url.Values
		if fileName != "" {
			params = url.Values{}
			params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		}

		u, err := g.client.PresignedGetObject(ctx, g.bucket, objectKey, ttl, params)
		if err != nil {
			return "", fmt.Errorf("presign get %s: %w", objectKey, err)
		}

		return u.String(), nil
	})
}

// RemoveObject 删除对象字节.
func (g *s3Gateway) RemoveObject(ctx context.Context, objectKey string) error {
	_, err := g.execute(func() (string, error) {
		return "", g.client.RemoveObject(ctx, g.bucket, objectKey, minio.RemoveObjectOptions{})
	})

	return err
}
