package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/transvault/pkg/internal/service"
	"github.com/yeisme/transvault/pkg/log"
)

// GetTransferStats 汇总传输统计.
//
//	@Summary	传输统计汇总
//	@Tags		统计
//	@Produce	json
//	@Success	200	{object}	types.TransferStatsResponse
//	@Failure	500	{object}	map[string]string
//	@Router		/api/v1/stats/transfers [get]
func GetTransferStats(c *gin.Context) {
	svc := service.NewStatsService(c.Request.Context())

	res, err := svc.TransferStats(c.Request.Context())
	if err != nil {
		log.Logger().Error().Err(err).Msg("transfer stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, res)
}
