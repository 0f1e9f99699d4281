// Package api 将各业务路由组装到 gin 引擎上.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/transvault/pkg/cache"
	"github.com/yeisme/transvault/pkg/configs"
	"github.com/yeisme/transvault/pkg/internal/router"
	"github.com/yeisme/transvault/pkg/internal/storage"
	"github.com/yeisme/transvault/pkg/middleware"
)

// RegisterGroup 注册 /api/v1 下的全部业务路由.
func RegisterGroup(e *gin.Engine, mgr *storage.Manager) *gin.Engine {
	v1 := e.Group("/api/v1")

	// 列表响应缓存：仅在配置了 TTL 且 KV 可用时启用
	cfg := configs.GetConfig()
	if ttl := cfg.Transfer.ListCacheTTLSeconds; ttl > 0 && mgr != nil && mgr.GetKVClient() != nil {
		cacheCfg := middleware.DefaultCacheConfig(appcache.NewCache(mgr.GetKVClient()))
		cacheCfg.TTL = time.Duration(ttl) * time.Second
		cacheCfg.Skipper = func(c *gin.Context) bool {
			return c.FullPath() != "/api/v1/transfers"
		}

		v1.Use(middleware.CacheMiddleware(cacheCfg))
	}

	router.RegisterTransfersRoutes(v1)
	router.RegisterStatsRoutes(v1)
	router.RegisterHealthCheckRoute(v1)
	router.RegisterSchedulerRoutes(v1)

	return e
}
