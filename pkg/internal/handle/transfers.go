package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/transvault/pkg/internal/service"
	"github.com/yeisme/transvault/pkg/internal/types"
	"github.com/yeisme/transvault/pkg/log"
)

// CreateTransfer 创建传输.
//
//	@Summary	创建传输
//	@Tags		传输
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateTransferRequest	true	"创建参数"
//	@Success	201		{object}	types.TransferResponse
//	@Failure	400		{object}	map[string]string
//	@Router		/api/v1/transfers [post]
func CreateTransfer(c *gin.Context) {
	var req types.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.Create(c.Request.Context(), &req)
	if err != nil {
		log.Logger().Warn().Err(err).Msg("create transfer failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusCreated, res)
}

// GetTransfer 查询单条传输.
func GetTransfer(c *gin.Context) {
	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ListTransfers 分页列出传输.
//
//	@Summary	传输列表
//	@Tags		传输
//	@Produce	json
//	@Param		status	query		string	false	"状态过滤"
//	@Param		sort_by	query		string	false	"排序字段"
//	@Param		order	query		string	false	"asc/desc"
//	@Param		limit	query		int		false	"分页大小"
//	@Param		offset	query		int		false	"偏移"
//	@Success	200		{object}	types.ListTransfersResponse
//	@Router		/api/v1/transfers [get]
func ListTransfers(c *gin.Context) {
	var q types.ListTransfersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.List(c.Request.Context(), &q)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// UpdateTransfer 部分更新传输.
func UpdateTransfer(c *gin.Context) {
	var req types.UpdateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service.NewTransferService(c.Request.Context())

	res, err := svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		log.Logger().Warn().Err(err).Str("transfer", c.Param("id")).Msg("update transfer failed")
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, res)
}

// DeleteTransfer 软删除传输，幂等.
func DeleteTransfer(c *gin.Context) {
	svc := service.NewTransferService(c.Request.Context())

	if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
