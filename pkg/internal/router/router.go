// Package router 管理路由配置，用于设置HTTP服务的路由规则.
// router 包只负责将路径和处理器绑定到 gin 引擎，
// 处理器的实现由 pkg/internal/handle 提供.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/transvault/pkg/internal/handle"
)

// RegisterTransfersRoutes 注册传输生命周期与凭证签发路由.
//
//	POST   /transfers                      -> 创建传输
//	GET    /transfers                      -> 列表查询
//	GET    /transfers/:id                  -> 查询单条
//	PATCH  /transfers/:id                  -> 部分更新
//	DELETE /transfers/:id                  -> 软删除
//	POST   /transfers/:id/upload-url       -> 签发上传凭证
//	POST   /transfers/:id/complete         -> 声明上传完成
//	GET    /transfers/:id/download-url     -> 签发下载凭证
//	POST   /transfers/:id/share-download   -> 分享下载链接
func RegisterTransfersRoutes(g *gin.RouterGroup) {
	transfersRoutes := g.Group("/transfers")
	{
		transfersRoutes.POST("", handle.CreateTransfer)
		transfersRoutes.GET("", handle.ListTransfers)

		singleGroup := transfersRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetTransfer)
			singleGroup.PATCH("", handle.UpdateTransfer)
			singleGroup.DELETE("", handle.DeleteTransfer)

			singleGroup.POST("/upload-url", handle.IssueUploadURL)
			singleGroup.POST("/complete", handle.CompleteUpload)
			singleGroup.GET("/download-url", handle.IssueDownloadURL)
			singleGroup.POST("/share-download", handle.ShareDownload)
		}
	}
}
