package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/service"
)

// GenerateCountReport 立即生成一份集合计数快照.
//
//	@Summary	生成计数报表
//	@Tags		报表
//	@Produce	json
//	@Success	201	{object}	types.CountReport
//	@Failure	502	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/reports/collections [post]
func GenerateCountReport(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := service.NewReportService(service.DepsFromContext(ctx)).Snapshot(ctx)
	if err != nil {
		fail(c, "count report failed", err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// RebuildIndex 全量重建检索索引.
//
//	@Summary	重建索引
//	@Tags		索引
//	@Produce	json
//	@Success	200	{object}	types.ReindexResult
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/index/rebuild [post]
func RebuildIndex(c *gin.Context) {
	ctx := c.Request.Context()

	res, err := service.NewIndexerService(service.DepsFromContext(ctx)).ReindexAll(ctx)
	if err != nil {
		fail(c, "reindex failed", err)
		return
	}

	c.JSON(http.StatusOK, res)
}
