package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/transvault/pkg/internal/service"
	"github.com/yeisme/transvault/pkg/internal/types"
	"github.com/yeisme/transvault/pkg/log"
)

// IssueUploadURL 签发预签名上传凭证.
//
//	@Summary	签发上传URL
//	@Tags		传输
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"传输ID"
//	@Param		body	body		types.UploadURLRequest	true	"文件信息"
//	@Success	200		{object}	types.UploadURLResponse
//	@Failure	409		{object}	map[string]string
//	@Failure	410		{object}	map[string]string
//	@Router		/api/v1/transfers/{id}/upload-url [post]
func IssueUploadURL(c *gin.Context) {
	var req types.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.IssueUploadCredential(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		log.Logger().Warn().Err(err).Str("transfer", c.Param("id")).Msg("issue upload url failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// CompleteUpload 声明上传完成，传输进入 READY.
func CompleteUpload(c *gin.Context) {
	var req types.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.CompleteUpload(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		log.Logger().Warn().Err(err).Str("transfer", c.Param("id")).Msg("complete upload failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}
