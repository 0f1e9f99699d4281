package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/transvault/pkg/internal/service"
	"github.com/yeisme/transvault/pkg/internal/types"
	"github.com/yeisme/transvault/pkg/log"
)

// IssueDownloadURL 签发预签名下载凭证，消耗一次下载额度.
//
//	@Summary	签发下载URL
//	@Tags		传输
//	@Produce	json
//	@Param		id				path		string	true	"传输ID"
//	@Param		expiry_minutes	query		int		false	"链接有效期（分钟）"
//	@Success	200				{object}	types.DownloadURLResponse
//	@Failure	410				{object}	map[string]string
//	@Failure	429				{object}	map[string]string
//	@Router		/api/v1/transfers/{id}/download-url [get]
func IssueDownloadURL(c *gin.Context) {
	var q types.DownloadURLQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.IssueDownloadCredential(c.Request.Context(), c.Param("id"), q.ExpiryMinutes)
	if err != nil {
		log.Logger().Warn().Err(err).Str("transfer", c.Param("id")).Msg("issue download url failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// ShareDownload 签发下载凭证并通过通知通道分享给收件人.
func ShareDownload(c *gin.Context) {
	var req types.ShareDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.ShareDownload(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		log.Logger().Warn().Err(err).Str("transfer", c.Param("id")).Msg("share download failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}
